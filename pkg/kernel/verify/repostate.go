package verify

import "github.com/ormasoftchile/kiln/pkg/kernel/schema"

// Repo-state rule catalogue (RS1..RS7).
//
//	RS1 document matches the repostate JSON Schema
//	RS2 header fields present and well-formed
//	RS3 files sorted by path, no duplicates
//	RS4 per-file content_hash format
//	RS5 per-file sizes non-negative
//	RS6 tree_hash format and recompute over files
//	RS7 size limits (opt-in)
var repoStateCatalogue = &Catalogue{
	Kind: "repostate",
	Gate: "RS1",
	Rules: []Rule{
		structuralRule("RS1", "repostate"),
		{ID: "RS2", Check: repoStateHeader},
		{ID: "RS3", Check: fileOrderRule("RS3")},
		{ID: "RS4", Check: fileHashRule("RS4")},
		{ID: "RS5", Check: fileSizeRule("RS5")},
		{ID: "RS6", Check: treeHashRule("RS6")},
		{ID: "RS7", Check: fileCountLimitRule("RS7")},
	},
	Core:    filesetCore,
	Summary: filesetSummary,
}

// VerifyRepoState checks a raw, untrusted repo-state snapshot.
func VerifyRepoState(raw any, opts Options) Result {
	return repoStateCatalogue.Verify(raw, opts)
}

func repoStateHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "RS2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	if v, ok := str(doc, "label"); !ok || v == "" {
		vs = append(vs, Violation{RuleID: "RS2", Path: "$.label", Message: "label is required"})
	}
	return vs
}
