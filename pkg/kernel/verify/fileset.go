package verify

import (
	"fmt"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// File-list checks shared by the repo-state and workspace catalogues. Both
// artifacts carry a files array sorted by path plus a tree hash over it.

func fileOrderRule(ruleID string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, _ Options) []Violation {
		files, ok := arr(doc, "files")
		if !ok {
			return nil
		}
		var vs []Violation
		if !inOrder(files, byStringKey("path")) {
			vs = append(vs, Violation{RuleID: ruleID, Path: "$.files", Message: "must be sorted by path"})
		}
		seen := map[string]bool{}
		for i, raw := range files {
			f, ok := record(raw)
			if !ok {
				continue
			}
			path, _ := str(f, "path")
			switch {
			case path == "":
				vs = append(vs, Violation{RuleID: ruleID, Path: elemPath("files", i) + ".path", Message: "path is required"})
			case seen[path]:
				vs = append(vs, Violation{RuleID: ruleID, Path: elemPath("files", i) + ".path", Message: fmt.Sprintf("duplicate path %q", path)})
			default:
				seen[path] = true
			}
		}
		return vs
	}
}

func fileHashRule(ruleID string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, _ Options) []Violation {
		files, ok := arr(doc, "files")
		if !ok {
			return nil
		}
		var vs []Violation
		for i, raw := range files {
			f, ok := record(raw)
			if !ok {
				continue
			}
			if h, _ := str(f, "content_hash"); !isHash(h) {
				vs = append(vs, Violation{RuleID: ruleID, Path: elemPath("files", i) + ".content_hash", Message: "must match sha256:<64 hex>"})
			}
		}
		return vs
	}
}

func fileSizeRule(ruleID string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, _ Options) []Violation {
		files, ok := arr(doc, "files")
		if !ok {
			return nil
		}
		var vs []Violation
		for i, raw := range files {
			f, ok := record(raw)
			if !ok {
				continue
			}
			if size, ok := intField(f, "size"); ok && size < 0 {
				vs = append(vs, Violation{RuleID: ruleID, Path: elemPath("files", i) + ".size", Message: "size must be non-negative"})
			}
		}
		return vs
	}
}

// treeHashRule recomputes the tree hash from the sorted file entries. Entries
// that fail their own field rules deterministically fail here too, so the
// recompute runs only when the list converts cleanly.
func treeHashRule(ruleID string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, opts Options) []Violation {
		got, ok := str(doc, "tree_hash")
		if !ok || !isHash(got) {
			return []Violation{{RuleID: ruleID, Path: "$.tree_hash", Message: "must match sha256:<64 hex>"}}
		}
		if opts.SkipHashVerification {
			return nil
		}
		entries, ok := fileEntries(doc)
		if !ok {
			return nil
		}
		want, err := schema.TreeHash(entries)
		if err != nil || want != got {
			return []Violation{{RuleID: ruleID, Path: "$.tree_hash", Message: "tree_hash does not match files"}}
		}
		return nil
	}
}

func fileCountLimitRule(ruleID string) func(map[string]any, Options) []Violation {
	return func(doc map[string]any, opts Options) []Violation {
		if !opts.EnforceSizeLimits {
			return nil
		}
		if files, ok := arr(doc, "files"); ok && len(files) > maxSnapshotFiles {
			return []Violation{{RuleID: ruleID, Path: "$.files", Message: fmt.Sprintf("%d files exceeds limit %d", len(files), maxSnapshotFiles)}}
		}
		return nil
	}
}

func fileEntries(doc map[string]any) ([]schema.FileEntry, bool) {
	files, ok := arr(doc, "files")
	if !ok {
		return nil, false
	}
	entries := make([]schema.FileEntry, 0, len(files))
	for _, raw := range files {
		f, ok := record(raw)
		if !ok {
			return nil, false
		}
		path, pok := str(f, "path")
		hash, hok := str(f, "content_hash")
		size, sok := intField(f, "size")
		if !pok || !hok || !sok {
			return nil, false
		}
		entries = append(entries, schema.FileEntry{Path: path, Size: size, ContentHash: hash})
	}
	return entries, true
}

func filesetCore(doc map[string]any) map[string]any {
	core := stripEphemeral(doc)
	resortField(core, "files", byStringKey("path"))
	return core
}

func filesetSummary(doc map[string]any) map[string]int {
	s := map[string]int{}
	if files, ok := arr(doc, "files"); ok {
		s["files"] = len(files)
		var bytes int64
		for _, raw := range files {
			if f, ok := record(raw); ok {
				if size, ok := intField(f, "size"); ok {
					bytes += size
				}
			}
		}
		s["bytes"] = int(bytes)
	}
	return s
}
