package verify

import (
	"fmt"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Patch rule catalogue (PT1..PT6).
//
//	PT1 document matches the patch JSON Schema
//	PT2 header fields: schema_version, patch_id, base_tree_hash
//	PT3 ops sorted by path, no duplicate paths
//	PT4 op kind enum
//	PT5 post-state fields consistent with op kind
//	PT6 size limits (opt-in)
var patchCatalogue = &Catalogue{
	Kind: "patch",
	Gate: "PT1",
	Rules: []Rule{
		structuralRule("PT1", "patch"),
		{ID: "PT2", Check: patchHeader},
		{ID: "PT3", Check: patchOpOrder},
		{ID: "PT4", Check: patchOpKinds},
		{ID: "PT5", Check: patchOpStates},
		{ID: "PT6", Check: patchLimits},
	},
	Core:    patchCore,
	Summary: patchSummary,
}

// VerifyPatch checks a raw, untrusted patch.
func VerifyPatch(raw any, opts Options) Result {
	return patchCatalogue.Verify(raw, opts)
}

func patchHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "PT2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	if id, ok := str(doc, "patch_id"); !ok || !isContentID("patch", id) {
		vs = append(vs, Violation{RuleID: "PT2", Path: "$.patch_id", Message: "patch_id must match patch_<16 hex>"})
	}
	if h, ok := str(doc, "base_tree_hash"); !ok || !isHash(h) {
		vs = append(vs, Violation{RuleID: "PT2", Path: "$.base_tree_hash", Message: "must match sha256:<64 hex>"})
	}
	return vs
}

func patchOpOrder(doc map[string]any, _ Options) []Violation {
	ops, ok := arr(doc, "ops")
	if !ok {
		return nil
	}
	var vs []Violation
	if !inOrder(ops, byStringKey("path")) {
		vs = append(vs, Violation{RuleID: "PT3", Path: "$.ops", Message: "must be sorted by path"})
	}
	seen := map[string]bool{}
	for i, raw := range ops {
		op, ok := record(raw)
		if !ok {
			continue
		}
		path, _ := str(op, "path")
		switch {
		case path == "":
			vs = append(vs, Violation{RuleID: "PT3", Path: elemPath("ops", i) + ".path", Message: "path is required"})
		case seen[path]:
			vs = append(vs, Violation{RuleID: "PT3", Path: elemPath("ops", i) + ".path", Message: fmt.Sprintf("duplicate path %q", path)})
		default:
			seen[path] = true
		}
	}
	return vs
}

func patchOpKinds(doc map[string]any, _ Options) []Violation {
	ops, ok := arr(doc, "ops")
	if !ok {
		return nil
	}
	var vs []Violation
	for i, raw := range ops {
		op, ok := record(raw)
		if !ok {
			continue
		}
		switch kind, _ := str(op, "op"); kind {
		case "add", "modify", "delete":
		default:
			vs = append(vs, Violation{RuleID: "PT4", Path: elemPath("ops", i) + ".op", Message: "op must be add, modify, or delete"})
		}
	}
	return vs
}

// patchOpStates: add and modify describe a post-state (hash required,
// size non-negative); delete carries neither.
func patchOpStates(doc map[string]any, _ Options) []Violation {
	ops, ok := arr(doc, "ops")
	if !ok {
		return nil
	}
	var vs []Violation
	for i, raw := range ops {
		op, ok := record(raw)
		if !ok {
			continue
		}
		base := elemPath("ops", i)
		kind, _ := str(op, "op")
		hash, haveHash := str(op, "content_hash")
		switch kind {
		case "add", "modify":
			if !haveHash || !isHash(hash) {
				vs = append(vs, Violation{RuleID: "PT5", Path: base + ".content_hash", Message: "must match sha256:<64 hex>"})
			}
			if size, ok := intField(op, "size"); ok && size < 0 {
				vs = append(vs, Violation{RuleID: "PT5", Path: base + ".size", Message: "size must be non-negative"})
			}
		case "delete":
			if haveHash {
				vs = append(vs, Violation{RuleID: "PT5", Path: base + ".content_hash", Message: "delete op must not carry a content_hash"})
			}
		}
	}
	return vs
}

func patchLimits(doc map[string]any, opts Options) []Violation {
	if !opts.EnforceSizeLimits {
		return nil
	}
	if ops, ok := arr(doc, "ops"); ok && len(ops) > maxPatchOps {
		return []Violation{{RuleID: "PT6", Path: "$.ops", Message: fmt.Sprintf("%d ops exceeds limit %d", len(ops), maxPatchOps)}}
	}
	return nil
}

func patchCore(doc map[string]any) map[string]any {
	core := stripEphemeral(doc)
	resortField(core, "ops", byStringKey("path"))
	return core
}

func patchSummary(doc map[string]any) map[string]int {
	s := map[string]int{}
	ops, ok := arr(doc, "ops")
	if !ok {
		return s
	}
	s["ops"] = len(ops)
	for _, raw := range ops {
		if op, ok := record(raw); ok {
			if kind, ok := str(op, "op"); ok {
				s[kind]++
			}
		}
	}
	return s
}
