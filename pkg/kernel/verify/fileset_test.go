package verify

import (
	"testing"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

func fileDoc(path, content string) map[string]any {
	return map[string]any{
		"path":         path,
		"size":         len(content),
		"content_hash": canonical.HashBytes([]byte(content)),
	}
}

func treeOf(t *testing.T, files []any) string {
	t.Helper()
	entries := make([]schema.FileEntry, 0, len(files))
	for _, raw := range files {
		f := raw.(map[string]any)
		entries = append(entries, schema.FileEntry{
			Path:        f["path"].(string),
			Size:        int64(f["size"].(int)),
			ContentHash: f["content_hash"].(string),
		})
	}
	h, err := schema.TreeHash(entries)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}
	return h
}

func validWorkspace(t *testing.T) map[string]any {
	t.Helper()
	files := []any{
		fileDoc("cmd/main.go", "package main\n"),
		fileDoc("go.mod", "module example.com/x\n"),
	}
	return map[string]any{
		"schema_version": "1.0.0",
		"root":           "/work/x",
		"files":          files,
		"tree_hash":      treeOf(t, files),
	}
}

func TestVerifyWorkspace_Valid(t *testing.T) {
	res := VerifyWorkspace(validWorkspace(t), Options{})
	if !res.OK {
		t.Fatalf("valid workspace rejected: %+v", res.Violations)
	}
	if res.Summary["files"] != 2 {
		t.Errorf("summary files = %d, want 2", res.Summary["files"])
	}
}

func TestVerifyWorkspace_UnsortedFiles(t *testing.T) {
	doc := validWorkspace(t)
	files := doc["files"].([]any)
	files[0], files[1] = files[1], files[0]
	res := VerifyWorkspace(doc, Options{})
	if res.OK {
		t.Fatal("unsorted files accepted")
	}
	if !hasRule(res.Violations, "WS3") {
		t.Errorf("no WS3 violation in %+v", res.Violations)
	}
}

func TestVerifyWorkspace_TreeHashMismatch(t *testing.T) {
	doc := validWorkspace(t)
	doc["files"].([]any)[0].(map[string]any)["size"] = 9999
	res := VerifyWorkspace(doc, Options{})
	if res.OK {
		t.Fatal("stale tree hash accepted")
	}
	if !hasRule(res.Violations, "WS6") {
		t.Errorf("no WS6 violation in %+v", res.Violations)
	}
	if res := VerifyWorkspace(doc, Options{SkipHashVerification: true}); !res.OK {
		t.Errorf("skip-hashes run rejected: %+v", res.Violations)
	}
}

func TestVerifyWorkspace_MissingRoot(t *testing.T) {
	doc := validWorkspace(t)
	doc["root"] = ""
	res := VerifyWorkspace(doc, Options{})
	if res.OK {
		t.Fatal("empty root accepted")
	}
	if !hasRule(res.Violations, "WS2") {
		t.Errorf("no WS2 violation in %+v", res.Violations)
	}
}

func TestVerifyRepoState_Valid(t *testing.T) {
	files := []any{fileDoc("README.md", "# x\n")}
	doc := map[string]any{
		"schema_version": "1.0.0",
		"label":          "HEAD",
		"files":          files,
		"tree_hash":      treeOf(t, files),
	}
	res := VerifyRepoState(doc, Options{})
	if !res.OK {
		t.Fatalf("valid repo state rejected: %+v", res.Violations)
	}
}

func TestVerifyRepoState_MissingLabel(t *testing.T) {
	files := []any{fileDoc("README.md", "# x\n")}
	doc := map[string]any{
		"schema_version": "1.0.0",
		"label":          "",
		"files":          files,
		"tree_hash":      treeOf(t, files),
	}
	res := VerifyRepoState(doc, Options{})
	if res.OK {
		t.Fatal("empty label accepted")
	}
	if !hasRule(res.Violations, "RS2") {
		t.Errorf("no RS2 violation in %+v", res.Violations)
	}
}

func TestVerifyRepoState_DuplicatePath(t *testing.T) {
	files := []any{fileDoc("a.txt", "1"), fileDoc("a.txt", "1")}
	doc := map[string]any{
		"schema_version": "1.0.0",
		"label":          "HEAD",
		"files":          files,
		"tree_hash":      treeOf(t, files),
	}
	res := VerifyRepoState(doc, Options{})
	if res.OK {
		t.Fatal("duplicate path accepted")
	}
	if !hasRule(res.Violations, "RS3") {
		t.Errorf("no RS3 violation in %+v", res.Violations)
	}
}
