package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "payload")
	hash, size, err := HashFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != int64(len("payload")) {
		t.Errorf("size = %d, want %d", size, len("payload"))
	}
	if hash != canonical.HashBytes([]byte("payload")) {
		t.Errorf("hash = %s", hash)
	}
}

func TestCaptureWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/x\n")
	writeFile(t, dir, "cmd/main.go", "package main\n")
	writeFile(t, dir, ".git/config", "ignored")
	writeFile(t, dir, "node_modules/dep/index.js", "ignored")

	snap, err := CaptureWorkspace(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var paths []string
	for _, f := range snap.Files {
		paths = append(paths, f.Path)
	}
	want := []string{"cmd/main.go", "go.mod"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	tree, err := schema.TreeHash(snap.Files)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}
	if snap.TreeHash != tree {
		t.Error("snapshot tree hash does not match its files")
	}
}

func TestCaptureWorkspace_DeterministicTreeHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "bb")
	writeFile(t, dir, "a.txt", "aa")
	s1, err := CaptureWorkspace(dir)
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	s2, err := CaptureWorkspace(dir)
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	if s1.TreeHash != s2.TreeHash {
		t.Errorf("tree hash unstable: %s vs %s", s1.TreeHash, s2.TreeHash)
	}
}

func TestCaptureRepoState_RequiresLabel(t *testing.T) {
	if _, err := CaptureRepoState(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for empty label")
	}
}

func entry(path, content string) schema.FileEntry {
	return schema.FileEntry{
		Path:        path,
		Size:        int64(len(content)),
		ContentHash: canonical.HashBytes([]byte(content)),
	}
}

func TestDiffApply_RoundTrip(t *testing.T) {
	base := []schema.FileEntry{
		entry("a.txt", "aa"),
		entry("b.txt", "bb"),
		entry("c.txt", "cc"),
	}
	target := []schema.FileEntry{
		entry("a.txt", "aa"),    // unchanged
		entry("b.txt", "bb v2"), // modified
		entry("d.txt", "dd"),    // added
	}
	baseTree, err := schema.TreeHash(base)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}
	targetTree, err := schema.TreeHash(target)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}

	patch, err := Diff(base, target, baseTree)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(patch.Ops) != 3 {
		t.Fatalf("ops = %d, want 3", len(patch.Ops))
	}
	kinds := map[string]schema.PatchOpKind{}
	for i := 1; i < len(patch.Ops); i++ {
		if patch.Ops[i-1].Path >= patch.Ops[i].Path {
			t.Fatalf("ops not sorted: %s >= %s", patch.Ops[i-1].Path, patch.Ops[i].Path)
		}
	}
	for _, op := range patch.Ops {
		kinds[op.Path] = op.Op
	}
	if kinds["b.txt"] != schema.OpModify || kinds["c.txt"] != schema.OpDelete || kinds["d.txt"] != schema.OpAdd {
		t.Errorf("op kinds = %v", kinds)
	}

	res, result, err := Apply(patch, base, baseTree)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("conflicts = %+v", res.Conflicts)
	}
	if res.Applied != 3 {
		t.Errorf("applied = %d, want 3", res.Applied)
	}
	if res.ResultTreeHash != targetTree {
		t.Errorf("result tree = %s, want %s", res.ResultTreeHash, targetTree)
	}
	if diff := cmp.Diff(target, result); diff != "" {
		t.Errorf("result files mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	files := []schema.FileEntry{entry("a.txt", "aa")}
	tree, _ := schema.TreeHash(files)
	patch, err := Diff(files, files, tree)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(patch.Ops) != 0 {
		t.Errorf("ops = %+v, want none", patch.Ops)
	}
	if patch.Ops == nil {
		t.Error("empty op list must stay an array on the wire")
	}
}

func TestDiff_DeterministicID(t *testing.T) {
	base := []schema.FileEntry{entry("a.txt", "aa")}
	target := []schema.FileEntry{entry("a.txt", "aa v2"), entry("b.txt", "bb")}
	tree, _ := schema.TreeHash(base)
	p1, err := Diff(base, target, tree)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	p2, err := Diff(base, target, tree)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if p1.PatchID != p2.PatchID {
		t.Errorf("patch ids differ: %s vs %s", p1.PatchID, p2.PatchID)
	}
	if !canonical.IDRe("patch").MatchString(p1.PatchID) {
		t.Errorf("patch id = %q", p1.PatchID)
	}
}

func TestApply_Conflicts(t *testing.T) {
	base := []schema.FileEntry{entry("a.txt", "aa")}
	baseTree, _ := schema.TreeHash(base)
	patch := &schema.Patch{
		SchemaVersion: schema.SchemaVersion,
		PatchID:       "patch_0000000000000000",
		BaseTreeHash:  baseTree,
		Ops: []schema.PatchOp{
			{Op: schema.OpAdd, Path: "a.txt", Size: 2, ContentHash: entry("a.txt", "xx").ContentHash},
			{Op: schema.OpDelete, Path: "missing.txt"},
		},
	}
	res, _, err := Apply(patch, base, baseTree)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("conflicts = %+v, want 2", res.Conflicts)
	}
	if res.Conflicts[0].Path != "a.txt" || res.Conflicts[1].Path != "missing.txt" {
		t.Errorf("conflict order = %+v", res.Conflicts)
	}
	if res.ResultTreeHash != "" {
		t.Error("conflicted apply produced a result tree hash")
	}
}

func TestApply_BaseTreeMismatch(t *testing.T) {
	base := []schema.FileEntry{entry("a.txt", "aa")}
	baseTree, _ := schema.TreeHash(base)
	patch := &schema.Patch{
		SchemaVersion: schema.SchemaVersion,
		PatchID:       "patch_0000000000000000",
		BaseTreeHash:  canonical.HashBytes([]byte("some other tree")),
		Ops:           []schema.PatchOp{},
	}
	res, _, err := Apply(patch, base, baseTree)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].Path != "." {
		t.Errorf("conflicts = %+v, want one at %q", res.Conflicts, ".")
	}
}
