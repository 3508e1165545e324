package verify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// structuralRule validates the raw document against the JSON Schema
// generated from the artifact's Go types. It is the first rule of every
// catalogue; later rules still re-check what they touch.
func structuralRule(ruleID, schemaName string) Rule {
	compile := sync.OnceValues(func() (*sjsonschema.Schema, error) {
		data, err := schema.GenerateJSONSchema(schemaName)
		if err != nil {
			return nil, err
		}
		doc, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(data)))
		if err != nil {
			return nil, err
		}
		c := sjsonschema.NewCompiler()
		resource := schemaName + "-v1.json"
		if err := c.AddResource(resource, doc); err != nil {
			return nil, err
		}
		return c.Compile(resource)
	})

	return Rule{ID: ruleID, Check: func(doc map[string]any, opts Options) []Violation {
		sch, err := compile()
		if err != nil {
			return []Violation{{RuleID: ruleID, Path: "$", Message: fmt.Sprintf("schema unavailable: %v", err)}}
		}

		// Round-trip through JSON so the instance is in the value space the
		// validator expects, whatever the caller handed us.
		data, err := json.Marshal(doc)
		if err != nil {
			return []Violation{{RuleID: ruleID, Path: "$", Message: fmt.Sprintf("not JSON-encodable: %v", err)}}
		}
		instance, err := sjsonschema.UnmarshalJSON(strings.NewReader(string(data)))
		if err != nil {
			return []Violation{{RuleID: ruleID, Path: "$", Message: fmt.Sprintf("not JSON-decodable: %v", err)}}
		}

		if err := sch.Validate(instance); err != nil {
			ve, ok := err.(*sjsonschema.ValidationError)
			if !ok {
				return []Violation{{RuleID: ruleID, Path: "$", Message: err.Error()}}
			}
			var vs []Violation
			for _, cause := range flattenCauses(ve) {
				vs = append(vs, Violation{
					RuleID:  ruleID,
					Path:    instancePath(cause.InstanceLocation),
					Message: fmt.Sprintf("%v", cause.ErrorKind),
				})
			}
			return vs
		}
		return nil
	}}
}

func flattenCauses(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenCauses(cause)...)
	}
	return flat
}

// instancePath renders a validator instance location as $.a.b[0].c.
func instancePath(tokens []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, tok := range tokens {
		if _, err := strconv.Atoi(tok); err == nil {
			b.WriteString("[" + tok + "]")
		} else {
			b.WriteString("." + tok)
		}
	}
	return b.String()
}
