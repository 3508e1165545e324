package verify

import (
	"fmt"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Apply-result rule catalogue (AP1..AP5).
//
//	AP1 document matches the apply JSON Schema
//	AP2 header fields: schema_version, patch_id, tree hashes
//	AP3 applied count non-negative
//	AP4 conflicts sorted by path, reasons present
//	AP5 result_tree_hash present iff no conflicts
var applyCatalogue = &Catalogue{
	Kind: "apply",
	Gate: "AP1",
	Rules: []Rule{
		structuralRule("AP1", "apply"),
		{ID: "AP2", Check: applyHeader},
		{ID: "AP3", Check: applyCount},
		{ID: "AP4", Check: applyConflicts},
		{ID: "AP5", Check: applyResultHash},
	},
	Core:    applyCore,
	Summary: applySummary,
}

// VerifyApplyResult checks a raw, untrusted apply result.
func VerifyApplyResult(raw any, opts Options) Result {
	return applyCatalogue.Verify(raw, opts)
}

func applyHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "AP2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	if id, ok := str(doc, "patch_id"); !ok || !isContentID("patch", id) {
		vs = append(vs, Violation{RuleID: "AP2", Path: "$.patch_id", Message: "patch_id must match patch_<16 hex>"})
	}
	if h, ok := str(doc, "base_tree_hash"); !ok || !isHash(h) {
		vs = append(vs, Violation{RuleID: "AP2", Path: "$.base_tree_hash", Message: "must match sha256:<64 hex>"})
	}
	return vs
}

func applyCount(doc map[string]any, _ Options) []Violation {
	if n, ok := intField(doc, "applied"); ok && n < 0 {
		return []Violation{{RuleID: "AP3", Path: "$.applied", Message: "applied must be non-negative"}}
	}
	return nil
}

func applyConflicts(doc map[string]any, _ Options) []Violation {
	conflicts, ok := arr(doc, "conflicts")
	if !ok {
		return nil
	}
	var vs []Violation
	if !inOrder(conflicts, byStringKey("path")) {
		vs = append(vs, Violation{RuleID: "AP4", Path: "$.conflicts", Message: "must be sorted by path"})
	}
	for i, raw := range conflicts {
		c, ok := record(raw)
		if !ok {
			continue
		}
		if reason, _ := str(c, "reason"); reason == "" {
			vs = append(vs, Violation{RuleID: "AP4", Path: elemPath("conflicts", i) + ".reason", Message: "reason is required"})
		}
	}
	return vs
}

// A clean apply pins the resulting tree; a conflicted one has no result
// tree to pin.
func applyResultHash(doc map[string]any, _ Options) []Violation {
	conflicts, _ := arr(doc, "conflicts")
	h, present := str(doc, "result_tree_hash")
	switch {
	case len(conflicts) == 0 && (!present || !isHash(h)):
		return []Violation{{RuleID: "AP5", Path: "$.result_tree_hash", Message: "must match sha256:<64 hex> when apply succeeded"}}
	case len(conflicts) > 0 && present:
		return []Violation{{RuleID: "AP5", Path: "$.result_tree_hash", Message: fmt.Sprintf("must be absent when %d conflicts remain", len(conflicts))}}
	}
	return nil
}

func applyCore(doc map[string]any) map[string]any {
	core := stripEphemeral(doc)
	resortField(core, "conflicts", byStringKey("path"))
	return core
}

func applySummary(doc map[string]any) map[string]int {
	s := map[string]int{}
	if n, ok := intField(doc, "applied"); ok {
		s["applied"] = int(n)
	}
	if conflicts, ok := arr(doc, "conflicts"); ok {
		s["conflicts"] = len(conflicts)
	}
	return s
}
