package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// artifactTypes maps exportable schema names to their Go types.
var artifactTypes = map[string]any{
	"intent":    &Intent{},
	"bundle":    &Bundle{},
	"session":   &ModelSession{},
	"repostate": &RepoState{},
	"workspace": &WorkspaceSnapshot{},
	"patch":     &Patch{},
	"apply":     &ApplyResult{},
}

// ArtifactSchemaNames lists the exportable schema names in sorted order.
func ArtifactSchemaNames() []string {
	return []string{"apply", "bundle", "intent", "patch", "repostate", "session", "workspace"}
}

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// Go types of the named artifact kind.
func GenerateJSONSchema(name string) ([]byte, error) {
	t, ok := artifactTypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q, want one of %v", name, ArtifactSchemaNames())
	}
	r := new(jsonschema.Reflector)
	r.AllowAdditionalProperties = true // older readers stay compatible within a MAJOR
	s := r.Reflect(t)
	s.ID = jsonschema.ID("https://github.com/ormasoftchile/kiln/schemas/" + name + "-v1.json")
	s.Title = "kiln artifact " + name + "/v1"
	s.Description = "Schema for kiln " + name + " artifacts (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	return data, nil
}
