package schema

import "github.com/ormasoftchile/kiln/pkg/kernel/canonical"

// Artifact kinds verified alongside bundles: recorded model sessions,
// repository-state snapshots, workspace snapshots, patches, and apply
// results. All follow the same core/ephemeral split as Bundle.

// ---------------------------------------------------------------------------
// Recorded model sessions
// ---------------------------------------------------------------------------

// Interaction is one recorded model exchange. Indices are contiguous from
// zero; request and response payloads are pinned by content hash so a
// session can be re-verified long after the provider forgot it.
type Interaction struct {
	I               int    `json:"i"`
	RequestHash     string `json:"request_hash"`
	RequestContent  string `json:"request_content,omitempty"` // may be redacted; hash remains
	ResponseContent string `json:"response_content"`
	ResponseHash    string `json:"response_hash"`
	Tokens          int    `json:"tokens"`
}

// ModelSession is the recorded transcript of one adapter session.
// Latencies live in Ephemeral: wall-clock data never enters the hash.
type ModelSession struct {
	SchemaVersion string        `json:"schema_version"`
	SessionID     string        `json:"session_id"`
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	Interactions  []Interaction `json:"interactions"`
	Ephemeral     *Ephemeral    `json:"ephemeral,omitempty"`
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// FileEntry pins one file by relative slash-separated path and content
// hash. File modes are deliberately omitted: they are not byte-stable
// across operating systems.
type FileEntry struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
}

// TreeHash computes the content hash of a file set. Callers pass entries
// already sorted by path; the hash covers path, size, and per-file hash.
func TreeHash(files []FileEntry) (string, error) {
	entries := make([]any, 0, len(files))
	for _, f := range files {
		entries = append(entries, map[string]any{
			"path":         f.Path,
			"size":         f.Size,
			"content_hash": f.ContentHash,
		})
	}
	return canonical.ContentHash(entries)
}

// RepoState is a content-addressed snapshot of tracked repository files.
type RepoState struct {
	SchemaVersion string     `json:"schema_version"`
	Label         string     `json:"label"`
	Files         []FileEntry `json:"files"`
	TreeHash      string     `json:"tree_hash"`
	Ephemeral     *Ephemeral `json:"ephemeral,omitempty"`
}

// WorkspaceSnapshot is a content-addressed snapshot of a working directory.
type WorkspaceSnapshot struct {
	SchemaVersion string      `json:"schema_version"`
	Root          string      `json:"root"`
	Files         []FileEntry `json:"files"`
	TreeHash      string      `json:"tree_hash"`
	Ephemeral     *Ephemeral  `json:"ephemeral,omitempty"`
}

// ---------------------------------------------------------------------------
// Patches
// ---------------------------------------------------------------------------

// PatchOpKind enumerates patch operations.
type PatchOpKind string

const (
	OpAdd    PatchOpKind = "add"
	OpModify PatchOpKind = "modify"
	OpDelete PatchOpKind = "delete"
)

// PatchOp is a single file-level operation. ContentHash and Size describe
// the post-state for add/modify and are absent for delete.
type PatchOp struct {
	Op          PatchOpKind `json:"op"`
	Path        string      `json:"path"`
	Size        int64       `json:"size,omitempty"`
	ContentHash string      `json:"content_hash,omitempty"`
}

// Patch describes how to move a snapshot from one tree hash to another.
type Patch struct {
	SchemaVersion string     `json:"schema_version"`
	PatchID       string     `json:"patch_id"`
	BaseTreeHash  string     `json:"base_tree_hash"`
	Ops           []PatchOp  `json:"ops"`
	Ephemeral     *Ephemeral `json:"ephemeral,omitempty"`
}

// Conflict records one patch op that could not be applied.
type Conflict struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ApplyResult is the outcome of applying a Patch to a snapshot.
type ApplyResult struct {
	SchemaVersion  string     `json:"schema_version"`
	PatchID        string     `json:"patch_id"`
	BaseTreeHash   string     `json:"base_tree_hash"`
	ResultTreeHash string     `json:"result_tree_hash,omitempty"`
	Applied        int        `json:"applied"`
	Conflicts      []Conflict `json:"conflicts"`
	Ephemeral      *Ephemeral `json:"ephemeral,omitempty"`
}
