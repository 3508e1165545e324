// Package schema defines the kernel artifact types: the Intent input, the
// decomposition tree nodes, and the content-addressed Bundle output.
// Every artifact separates core fields (hashed, byte-stable) from the
// Ephemeral group (timestamps, display data) which is excluded from hashing.
package schema

// SchemaVersion is the artifact schema semver. A MAJOR bump is required for
// any change that can alter a previously-stable hash for the same logical
// input; this is a cross-platform compatibility contract.
const SchemaVersion = "1.0.0"

// KernelVersion identifies the kernel build that produced an artifact.
const KernelVersion = "0.4.0"

// ---------------------------------------------------------------------------
// Intent
// ---------------------------------------------------------------------------

// Intent is the raw goal + constraints input to the kernel. Immutable.
type Intent struct {
	Goal        string         `yaml:"goal"                  json:"goal"`
	Constraints []string       `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Context     map[string]any `yaml:"context,omitempty"     json:"context,omitempty"`
}

// ---------------------------------------------------------------------------
// Measurements
// ---------------------------------------------------------------------------

// Entropy scores how uncertain a goal+constraints pair is. All sub-scores
// and the composite are integers in [0,100] except the raw counts.
type Entropy struct {
	UnresolvedRefs     int `json:"unresolved_refs"`
	SchemaGaps         int `json:"schema_gaps"`
	ContradictionCount int `json:"contradiction_count"`
	BranchingFactor    int `json:"branching_factor"`
	EntropyScore       int `json:"entropy_score"`
}

// Density scores how well-specified the same input is.
type Density struct {
	ConcreteConstraints int `json:"concrete_constraints"`
	SpecifiedOutputs    int `json:"specified_outputs"`
	ConstraintDepth     int `json:"constraint_depth"`
	DensityScore        int `json:"density_score"`
}

// ---------------------------------------------------------------------------
// Questions and branches
// ---------------------------------------------------------------------------

// AnswerType enumerates the expected shapes of an answer to a Question.
type AnswerType string

const (
	AnswerBoolean    AnswerType = "boolean"
	AnswerChoice     AnswerType = "choice"
	AnswerText       AnswerType = "text"
	AnswerNumber     AnswerType = "number"
	AnswerList       AnswerType = "list"
	AnswerStructured AnswerType = "structured"
)

// Question is a piece of missing information, ranked by how much resolving
// it would reduce uncertainty.
type Question struct {
	ID                 string     `json:"id"`
	Text               string     `json:"text"`
	ExpectedAnswerType AnswerType `json:"expected_answer_type"`
	WhyNeeded          string     `json:"why_needed"`
	InformationGain    int        `json:"information_gain"`
	Priority           int        `json:"priority"`
	Options            []string   `json:"options,omitempty"`
}

// Branch is one mutually-exclusive continuation under a splitting question.
type Branch struct {
	BranchID         string   `json:"branch_id"`
	Answer           string   `json:"answer"`
	AddedConstraints []string `json:"added_constraints"`
}

// SplittingQuestion defines the shape of a decomposition step: present on a
// node iff it was decomposed rather than terminated. Branches are sorted by
// branch_id.
type SplittingQuestion struct {
	Question Question `json:"question"`
	Branches []Branch `json:"branches"`
}

// ---------------------------------------------------------------------------
// Tree nodes
// ---------------------------------------------------------------------------

// NodeStatus is the lifecycle state of a ContextNode.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeExpanding NodeStatus = "expanding"
	NodeTerminal  NodeStatus = "terminal"
	NodeBlocked   NodeStatus = "blocked"
)

// ContextNode is one node of the decomposition tree. Nodes are created
// top-down and never modified after creation; children are referenced by
// content-addressed ID, not embedded. ParentID is empty for the root.
type ContextNode struct {
	ID                  string             `json:"id"`
	ParentID            string             `json:"parent_id,omitempty"`
	Status              NodeStatus         `json:"status"`
	Goal                string             `json:"goal"`
	Constraints         []string           `json:"constraints"`
	Entropy             Entropy            `json:"entropy"`
	Density             Density            `json:"density"`
	SplittingQuestion   *SplittingQuestion `json:"splitting_question,omitempty"`
	Children            []string           `json:"children"`
	UnresolvedQuestions []Question         `json:"unresolved_questions"`
}

// ---------------------------------------------------------------------------
// Outputs
// ---------------------------------------------------------------------------

// OutputType enumerates the artifact kinds a terminal node can emit.
type OutputType string

const (
	OutputFile        OutputType = "file"
	OutputCommand     OutputType = "command"
	OutputConfig      OutputType = "config"
	OutputInstruction OutputType = "instruction"
	OutputSchema      OutputType = "schema"
)

// Output is a concrete artifact generated at a terminal node.
type Output struct {
	ID                string     `json:"id"`
	Type              OutputType `json:"type"`
	Path              string     `json:"path"`
	Content           string     `json:"content"`
	ContentHash       string     `json:"content_hash"`
	SourceConstraints []string   `json:"source_constraints"`
	Confidence        int        `json:"confidence"`
}

// ---------------------------------------------------------------------------
// Bundle
// ---------------------------------------------------------------------------

// BundleStatus summarizes how a kernel run ended.
type BundleStatus string

const (
	BundleComplete   BundleStatus = "complete"
	BundleIncomplete BundleStatus = "incomplete"
	BundleError      BundleStatus = "error"
)

// BundleStats are integer aggregates over the finished tree. Means are
// truncated integer division.
type BundleStats struct {
	TotalNodes          int `json:"total_nodes"`
	TerminalNodes       int `json:"terminal_nodes"`
	BlockedNodes        int `json:"blocked_nodes"`
	MaxDepth            int `json:"max_depth"`
	MeanTerminalEntropy int `json:"mean_terminal_entropy"`
	MeanTerminalDensity int `json:"mean_terminal_density"`
	QuestionCount       int `json:"question_count"`
}

// Bundle is the complete, content-addressed output of one kernel run.
// Created once per run from an Intent and immutable thereafter: re-running
// with identical input produces a byte-identical bundle.
//
// Nodes carries the full arena (sorted by id) so the tree can be walked by
// consumers; RootNode and TerminalNodes reference the same node values.
type Bundle struct {
	ID                  string        `json:"id"`
	SchemaVersion       string        `json:"schema_version"`
	KernelVersion       string        `json:"kernel_version"`
	SourceIntentHash    string        `json:"source_intent_hash"`
	Status              BundleStatus  `json:"status"`
	RootNode            ContextNode   `json:"root_node"`
	Nodes               []ContextNode `json:"nodes"`
	TerminalNodes       []ContextNode `json:"terminal_nodes"`
	Outputs             []Output      `json:"outputs"`
	UnresolvedQuestions []Question    `json:"unresolved_questions"`
	Stats               BundleStats   `json:"stats"`
	Ephemeral           *Ephemeral    `json:"ephemeral,omitempty"`
}

// Ephemeral is the unhashed field group shared by all artifact kinds.
// The kernel never populates it; callers may attach it for display.
type Ephemeral struct {
	CreatedAt  string            `json:"created_at,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	Display    map[string]string `json:"display,omitempty"`
	LatencyMS  []int64           `json:"latency_ms,omitempty"`
}
