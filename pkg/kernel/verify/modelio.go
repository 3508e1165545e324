package verify

import (
	"fmt"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Model-session rule catalogue (MI1..MI9).
//
//	MI1 document matches the session JSON Schema
//	MI2 header fields present and well-formed
//	MI3 interaction indices contiguous from zero
//	MI4 token counts non-negative
//	MI5 request_hash format
//	MI6 response_hash format
//	MI7 response_hash matches sha256(response_content)
//	MI8 request_hash matches sha256(request_content) when content present
//	MI9 size limits (opt-in)
var sessionCatalogue = &Catalogue{
	Kind: "modelio",
	Gate: "MI1",
	Rules: []Rule{
		structuralRule("MI1", "session"),
		{ID: "MI2", Check: sessionHeader},
		{ID: "MI3", Check: sessionIndices},
		{ID: "MI4", Check: sessionTokens},
		{ID: "MI5", Check: hashFormatRule("MI5", "request_hash")},
		{ID: "MI6", Check: hashFormatRule("MI6", "response_hash")},
		{ID: "MI7", Check: hashMatchRule("MI7", "response_hash", "response_content", true)},
		{ID: "MI8", Check: hashMatchRule("MI8", "request_hash", "request_content", false)},
		{ID: "MI9", Check: sessionLimits},
	},
	Core:    sessionCore,
	Summary: sessionSummary,
}

// VerifyModelIO checks a raw, untrusted recorded model session.
func VerifyModelIO(raw any, opts Options) Result {
	return sessionCatalogue.Verify(raw, opts)
}

func sessionHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "MI2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	for _, key := range []string{"session_id", "provider", "model"} {
		if v, ok := str(doc, key); !ok || v == "" {
			vs = append(vs, Violation{RuleID: "MI2", Path: "$." + key, Message: key + " is required"})
		}
	}
	return vs
}

func sessionIndices(doc map[string]any, _ Options) []Violation {
	interactions, ok := arr(doc, "interactions")
	if !ok {
		return nil
	}
	var vs []Violation
	for i, raw := range interactions {
		in, ok := record(raw)
		if !ok {
			continue
		}
		if got, ok := intField(in, "i"); !ok || got != int64(i) {
			vs = append(vs, Violation{RuleID: "MI3", Path: elemPath("interactions", i) + ".i", Message: fmt.Sprintf("index must be %d", i)})
		}
	}
	return vs
}

func sessionTokens(doc map[string]any, _ Options) []Violation {
	interactions, ok := arr(doc, "interactions")
	if !ok {
		return nil
	}
	var vs []Violation
	for i, raw := range interactions {
		in, ok := record(raw)
		if !ok {
			continue
		}
		if tokens, ok := intField(in, "tokens"); ok && tokens < 0 {
			vs = append(vs, Violation{RuleID: "MI4", Path: elemPath("interactions", i) + ".tokens", Message: "tokens must be non-negative"})
		}
	}
	return vs
}

// hashFormatRule checks the sha256:<64 hex> shape of a per-interaction
// hash field; hashMatchRule recomputes it against its payload. Format and
// match are separate rules so a wrong-but-well-formed hash is exactly one
// violation.
func hashFormatRule(ruleID, field string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, _ Options) []Violation {
		interactions, ok := arr(doc, "interactions")
		if !ok {
			return nil
		}
		var vs []Violation
		for i, raw := range interactions {
			in, ok := record(raw)
			if !ok {
				continue
			}
			if h, _ := str(in, field); !isHash(h) {
				vs = append(vs, Violation{RuleID: ruleID, Path: elemPath("interactions", i) + "." + field, Message: "must match sha256:<64 hex>"})
			}
		}
		return vs
	}
}

func hashMatchRule(ruleID, hashField, contentField string, contentRequired bool) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, opts Options) []Violation {
		if opts.SkipHashVerification {
			return nil
		}
		interactions, ok := arr(doc, "interactions")
		if !ok {
			return nil
		}
		var vs []Violation
		for i, raw := range interactions {
			in, ok := record(raw)
			if !ok {
				continue
			}
			content, haveContent := str(in, contentField)
			if !haveContent && !contentRequired {
				continue // redacted content cannot be re-verified
			}
			h, _ := str(in, hashField)
			if !isHash(h) {
				continue // format is the format rule's complaint
			}
			if canonical.HashBytes([]byte(content)) != h {
				vs = append(vs, Violation{
					RuleID:  ruleID,
					Path:    elemPath("interactions", i) + "." + hashField,
					Message: fmt.Sprintf("%s does not match %s", hashField, contentField),
				})
			}
		}
		return vs
	}
}

func sessionLimits(doc map[string]any, opts Options) []Violation {
	if !opts.EnforceSizeLimits {
		return nil
	}
	interactions, ok := arr(doc, "interactions")
	if !ok {
		return nil
	}
	var vs []Violation
	for i, raw := range interactions {
		in, ok := record(raw)
		if !ok {
			continue
		}
		for _, field := range []string{"request_content", "response_content"} {
			if content, ok := str(in, field); ok && len(content) > maxSessionContent {
				vs = append(vs, Violation{RuleID: "MI9", Path: elemPath("interactions", i) + "." + field, Message: fmt.Sprintf("%d bytes exceeds limit %d", len(content), maxSessionContent)})
			}
		}
	}
	return vs
}

func sessionCore(doc map[string]any) map[string]any {
	core := stripEphemeral(doc)
	resortField(core, "interactions", byIntKey("i"))
	return core
}

func sessionSummary(doc map[string]any) map[string]int {
	s := map[string]int{}
	if interactions, ok := arr(doc, "interactions"); ok {
		s["interactions"] = len(interactions)
		total := 0
		for _, raw := range interactions {
			if in, ok := record(raw); ok {
				if tokens, ok := intField(in, "tokens"); ok {
					total += int(tokens)
				}
			}
		}
		s["tokens"] = total
	}
	return s
}
