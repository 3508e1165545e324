package verify

import "github.com/ormasoftchile/kiln/pkg/kernel/schema"

// Workspace-snapshot rule catalogue (WS1..WS7). Same shape as repostate;
// the header differs (root path instead of label).
var workspaceCatalogue = &Catalogue{
	Kind: "workspace",
	Gate: "WS1",
	Rules: []Rule{
		structuralRule("WS1", "workspace"),
		{ID: "WS2", Check: workspaceHeader},
		{ID: "WS3", Check: fileOrderRule("WS3")},
		{ID: "WS4", Check: fileHashRule("WS4")},
		{ID: "WS5", Check: fileSizeRule("WS5")},
		{ID: "WS6", Check: treeHashRule("WS6")},
		{ID: "WS7", Check: fileCountLimitRule("WS7")},
	},
	Core:    filesetCore,
	Summary: filesetSummary,
}

// VerifyWorkspace checks a raw, untrusted workspace snapshot.
func VerifyWorkspace(raw any, opts Options) Result {
	return workspaceCatalogue.Verify(raw, opts)
}

func workspaceHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "WS2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	if v, ok := str(doc, "root"); !ok || v == "" {
		vs = append(vs, Violation{RuleID: "WS2", Path: "$.root", Message: "root is required"})
	}
	return vs
}
