package snapshot

import (
	"sort"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Diff computes the patch that moves base to target. Ops are sorted by
// path; the patch id is content-addressed over the base tree hash and the
// op list, so the same diff always yields the same id.
func Diff(base, target []schema.FileEntry, baseTree string) (*schema.Patch, error) {
	baseByPath := entryMap(base)
	targetByPath := entryMap(target)

	ops := []schema.PatchOp{}
	for path, t := range targetByPath {
		b, existed := baseByPath[path]
		switch {
		case !existed:
			ops = append(ops, schema.PatchOp{Op: schema.OpAdd, Path: path, Size: t.Size, ContentHash: t.ContentHash})
		case b.ContentHash != t.ContentHash:
			ops = append(ops, schema.PatchOp{Op: schema.OpModify, Path: path, Size: t.Size, ContentHash: t.ContentHash})
		}
	}
	for path := range baseByPath {
		if _, kept := targetByPath[path]; !kept {
			ops = append(ops, schema.PatchOp{Op: schema.OpDelete, Path: path})
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })

	opsCore := make([]any, 0, len(ops))
	for _, op := range ops {
		m := map[string]any{"op": string(op.Op), "path": op.Path}
		if op.Op != schema.OpDelete {
			m["size"] = op.Size
			m["content_hash"] = op.ContentHash
		}
		opsCore = append(opsCore, m)
	}
	id, err := canonical.MintID("patch", map[string]any{
		"base_tree_hash": baseTree,
		"ops":            opsCore,
	})
	if err != nil {
		return nil, err
	}

	return &schema.Patch{
		SchemaVersion: schema.SchemaVersion,
		PatchID:       id,
		BaseTreeHash:  baseTree,
		Ops:           ops,
	}, nil
}

// Apply replays a patch over a base file set. A base whose tree hash does
// not match the patch is rejected op by op rather than globally: each op
// that finds the base in an unexpected state becomes a conflict, and the
// result tree hash is only produced for a conflict-free apply.
func Apply(patch *schema.Patch, base []schema.FileEntry, baseTree string) (*schema.ApplyResult, []schema.FileEntry, error) {
	files := entryMap(base)

	res := &schema.ApplyResult{
		SchemaVersion: schema.SchemaVersion,
		PatchID:       patch.PatchID,
		BaseTreeHash:  patch.BaseTreeHash,
		Conflicts:     []schema.Conflict{},
	}
	if baseTree != patch.BaseTreeHash {
		res.Conflicts = append(res.Conflicts, schema.Conflict{
			Path:   ".",
			Reason: "base tree hash does not match patch",
		})
	}

	for _, op := range patch.Ops {
		_, exists := files[op.Path]
		switch op.Op {
		case schema.OpAdd:
			if exists {
				res.Conflicts = append(res.Conflicts, schema.Conflict{Path: op.Path, Reason: "path already exists"})
				continue
			}
			files[op.Path] = schema.FileEntry{Path: op.Path, Size: op.Size, ContentHash: op.ContentHash}
			res.Applied++
		case schema.OpModify:
			if !exists {
				res.Conflicts = append(res.Conflicts, schema.Conflict{Path: op.Path, Reason: "path does not exist"})
				continue
			}
			files[op.Path] = schema.FileEntry{Path: op.Path, Size: op.Size, ContentHash: op.ContentHash}
			res.Applied++
		case schema.OpDelete:
			if !exists {
				res.Conflicts = append(res.Conflicts, schema.Conflict{Path: op.Path, Reason: "path does not exist"})
				continue
			}
			delete(files, op.Path)
			res.Applied++
		default:
			res.Conflicts = append(res.Conflicts, schema.Conflict{Path: op.Path, Reason: "unknown op " + string(op.Op)})
		}
	}

	result := make([]schema.FileEntry, 0, len(files))
	for _, f := range files {
		result = append(result, f)
	}
	sortEntries(result)

	sort.Slice(res.Conflicts, func(i, j int) bool { return res.Conflicts[i].Path < res.Conflicts[j].Path })
	if len(res.Conflicts) == 0 {
		tree, err := schema.TreeHash(result)
		if err != nil {
			return nil, nil, err
		}
		res.ResultTreeHash = tree
	}
	return res, result, nil
}

func entryMap(files []schema.FileEntry) map[string]schema.FileEntry {
	m := make(map[string]schema.FileEntry, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}
