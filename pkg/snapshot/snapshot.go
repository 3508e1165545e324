// Package snapshot captures content-addressed file-set snapshots and
// computes patches between them. Capture does I/O; everything downstream of
// a captured snapshot is pure and deterministic.
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// ignoredDirs are never descended into during a workspace walk.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".kiln":        true,
}

// HashFile computes the sha256 content hash and size of one file.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), size, nil
}

// CaptureWorkspace snapshots every regular file under root. Paths are
// slash-separated and relative to root, sorted, so the same tree hashes
// identically on any operating system.
func CaptureWorkspace(root string) (*schema.WorkspaceSnapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	files := []schema.FileEntry{}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		hash, size, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", rel, err)
		}
		files = append(files, schema.FileEntry{
			Path:        filepath.ToSlash(rel),
			Size:        size,
			ContentHash: hash,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(files)
	tree, err := schema.TreeHash(files)
	if err != nil {
		return nil, err
	}
	return &schema.WorkspaceSnapshot{
		SchemaVersion: schema.SchemaVersion,
		Root:          filepath.ToSlash(root),
		Files:         files,
		TreeHash:      tree,
	}, nil
}

// CaptureRepoState snapshots the files git tracks under root. Untracked and
// ignored files stay out, so the state reflects what the repository itself
// pins.
func CaptureRepoState(root, label string) (*schema.RepoState, error) {
	if label == "" {
		return nil, fmt.Errorf("repo state label is required")
	}

	cmd := exec.Command("git", "ls-files", "-z")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	files := []schema.FileEntry{}
	for _, rel := range strings.Split(string(out), "\x00") {
		if rel == "" {
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Lstat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue // deleted-but-tracked or special file
		}
		hash, size, err := HashFile(full)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", rel, err)
		}
		files = append(files, schema.FileEntry{Path: rel, Size: size, ContentHash: hash})
	}

	sortEntries(files)
	tree, err := schema.TreeHash(files)
	if err != nil {
		return nil, err
	}
	return &schema.RepoState{
		SchemaVersion: schema.SchemaVersion,
		Label:         label,
		Files:         files,
		TreeHash:      tree,
	}, nil
}

func sortEntries(files []schema.FileEntry) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
}
