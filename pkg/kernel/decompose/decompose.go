// Package decompose builds the context-node tree for an intent: measure,
// terminate or split, recurse. The tree is held in an arena indexed by
// creation order; content-addressed IDs are minted later, bottom-up, by the
// assembler, because a node's identity depends on its finished subtree.
package decompose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/measure"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Node is one arena slot. Parent is an arena index (-1 for the root);
// Children are arena indices in branch order.
type Node struct {
	Parent      int
	Depth       int
	Status      schema.NodeStatus
	Goal        string
	Constraints []string
	Entropy     schema.Entropy
	Density     schema.Density
	Split       *schema.SplittingQuestion
	Children    []int
	Unresolved  []schema.Question
}

// Tree is the finished arena. Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Engine drives decomposition under a termination policy and depth bound.
type Engine struct {
	policy   *measure.Policy
	maxDepth int
}

// New builds an engine from kernel config.
func New(cfg schema.Config) (*Engine, error) {
	policy, err := measure.NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &Engine{policy: policy, maxDepth: cfg.MaxDepth}, nil
}

// Decompose grows the full tree for an intent. Recursion is bounded by the
// configured maximum depth and by a strict per-level entropy decrease: a
// child whose entropy did not drop below its parent's is marked blocked
// instead of expanding further.
func (e *Engine) Decompose(intent schema.Intent) (*Tree, error) {
	t := &Tree{}
	t.Nodes = append(t.Nodes, Node{
		Parent:      -1,
		Status:      schema.NodePending,
		Goal:        intent.Goal,
		Constraints: schema.SortedConstraintSet(intent.Constraints),
	})
	if err := e.expand(t, 0, 0, false); err != nil {
		return nil, err
	}
	return t, nil
}

// expand processes one node: pending → expanding → terminal | blocked, or
// expanding with a splitting question and children.
func (e *Engine) expand(t *Tree, idx int, parentEntropy int, hasParent bool) error {
	goal := t.Nodes[idx].Goal
	constraints := t.Nodes[idx].Constraints
	depth := t.Nodes[idx].Depth

	t.Nodes[idx].Status = schema.NodeExpanding
	ent := measure.MeasureEntropy(goal, constraints)
	den := measure.MeasureDensity(goal, constraints)
	t.Nodes[idx].Entropy = ent
	t.Nodes[idx].Density = den

	if e.policy.IsTerminal(ent, den) {
		t.Nodes[idx].Status = schema.NodeTerminal
		return nil
	}

	questions, err := openQuestions(goal, constraints, ent, den)
	if err != nil {
		return err
	}
	t.Nodes[idx].Unresolved = questions

	// A split that did not reduce entropy cannot converge; stop this branch.
	if hasParent && ent.EntropyScore >= parentEntropy {
		t.Nodes[idx].Status = schema.NodeBlocked
		return nil
	}
	if depth >= e.maxDepth {
		t.Nodes[idx].Status = schema.NodeBlocked
		return nil
	}

	split, branches, childGoals, err := e.selectSplit(goal, constraints, ent, den)
	if err != nil {
		return err
	}
	if split == nil {
		t.Nodes[idx].Status = schema.NodeBlocked
		return nil
	}
	t.Nodes[idx].Split = split

	// Children are created in branch order (branches already sorted by id).
	for i, br := range branches {
		child := Node{
			Parent:      idx,
			Depth:       depth + 1,
			Status:      schema.NodePending,
			Goal:        childGoals[i],
			Constraints: schema.SortedConstraintSet(append(append([]string{}, constraints...), br.AddedConstraints...)),
		}
		childIdx := len(t.Nodes)
		t.Nodes = append(t.Nodes, child)
		t.Nodes[idx].Children = append(t.Nodes[idx].Children, childIdx)
		if err := e.expand(t, childIdx, ent.EntropyScore, true); err != nil {
			return err
		}
	}
	return nil
}

// selectSplit picks the highest-ranked split candidate. Contradiction
// splits come first (fixed table order), then a goal-text alternative.
// Returns nil when the node has nothing to split on. childGoals is parallel
// to the returned branches.
func (e *Engine) selectSplit(goal string, constraints []string, ent schema.Entropy, den schema.Density) (*schema.SplittingQuestion, []schema.Branch, []string, error) {
	gain := measure.InformationGain(ent, den)

	constraintText := strings.ToLower(strings.Join(constraints, "\n"))
	if hits := measure.Contradictions(constraints, constraintText); len(hits) > 0 {
		return contradictionSplit(hits[0], goal, gain)
	}

	if m := measure.AlternativeRe.FindStringSubmatchIndex(goal); m != nil {
		a := goal[m[2]:m[3]]
		b := goal[m[4]:m[5]]
		if !strings.EqualFold(a, b) {
			return alternativeSplit(goal, m, a, b, gain)
		}
	}

	return nil, nil, nil, nil
}

// contradictionSplit resolves an opposite-concept pair with one branch per
// side. The added decision constraint settles the pair, so the child's
// contradiction count, and with it entropy, strictly drops.
func contradictionSplit(pair measure.ContradictionPair, goal string, gain int) (*schema.SplittingQuestion, []schema.Branch, []string, error) {
	q := schema.Question{
		Text:               fmt.Sprintf("Should the behavior be %s or %s?", pair.SideA, pair.SideB),
		ExpectedAnswerType: schema.AnswerChoice,
		WhyNeeded:          fmt.Sprintf("the constraints mention both %q and %q", pair.SideA, pair.SideB),
		InformationGain:    gain,
		Priority:           gain,
		Options:            sortedOptions(pair.SideA, pair.SideB),
	}
	if err := mintQuestionID(&q); err != nil {
		return nil, nil, nil, err
	}

	branches := []schema.Branch{
		{BranchID: slug(pair.SideA), Answer: pair.SideA, AddedConstraints: []string{"decision: " + pair.Name + "=" + pair.SideA}},
		{BranchID: slug(pair.SideB), Answer: pair.SideB, AddedConstraints: []string{"decision: " + pair.Name + "=" + pair.SideB}},
	}
	sortBranches(branches)

	goals := []string{goal, goal} // contradiction branches keep the parent goal
	return &schema.SplittingQuestion{Question: q, Branches: branches}, branches, goals, nil
}

// alternativeSplit rewrites the matched "A or B" span with the chosen side.
func alternativeSplit(goal string, m []int, a, b string, gain int) (*schema.SplittingQuestion, []schema.Branch, []string, error) {
	q := schema.Question{
		Text:               fmt.Sprintf("Should it be %s or %s?", a, b),
		ExpectedAnswerType: schema.AnswerChoice,
		WhyNeeded:          fmt.Sprintf("the goal leaves the choice between %q and %q open", a, b),
		InformationGain:    gain,
		Priority:           gain,
		Options:            sortedOptions(a, b),
	}
	if err := mintQuestionID(&q); err != nil {
		return nil, nil, nil, err
	}

	// Distinct alternatives can slug identically ("foo_bar" vs "foo-bar");
	// branch ids must stay unique or one child goal silently wins.
	sa, sb := slug(a), slug(b)
	if sb == sa {
		sb += "-2"
	}
	branches := []schema.Branch{
		{BranchID: sa, Answer: a, AddedConstraints: []string{"chosen: " + strings.ToLower(a)}},
		{BranchID: sb, Answer: b, AddedConstraints: []string{"chosen: " + strings.ToLower(b)}},
	}
	byAnswer := map[string]string{
		sa: goal[:m[0]] + a + goal[m[1]:],
		sb: goal[:m[0]] + b + goal[m[1]:],
	}
	sortBranches(branches)
	goals := []string{byAnswer[branches[0].BranchID], byAnswer[branches[1].BranchID]}
	return &schema.SplittingQuestion{Question: q, Branches: branches}, branches, goals, nil
}

// openQuestions derives the node's unresolved questions from unresolved
// reference markers and topic gaps. These record missing information the
// kernel cannot split on; answering them is the caller's job.
func openQuestions(goal string, constraints []string, ent schema.Entropy, den schema.Density) ([]schema.Question, error) {
	combined := strings.ToLower(goal + "\n" + strings.Join(constraints, "\n"))
	gain := measure.InformationGain(ent, den)

	var questions []schema.Question
	seen := make(map[string]bool)

	for _, re := range measure.UnresolvedRefPatterns {
		for _, marker := range re.FindAllString(combined, -1) {
			if seen[marker] {
				continue
			}
			seen[marker] = true
			q := schema.Question{
				Text:               fmt.Sprintf("What should replace %q?", marker),
				ExpectedAnswerType: schema.AnswerText,
				WhyNeeded:          fmt.Sprintf("the text references %q, which is unresolved", marker),
				InformationGain:    gain,
				Priority:           80,
			}
			if err := mintQuestionID(&q); err != nil {
				return nil, err
			}
			questions = append(questions, q)
		}
	}

	for _, cat := range measure.TopicCategories {
		if cat.Pattern.MatchString(combined) {
			continue
		}
		q := schema.Question{
			Text:               fmt.Sprintf("What %s does this involve?", cat.Name),
			ExpectedAnswerType: schema.AnswerText,
			WhyNeeded:          fmt.Sprintf("no %s is identified in the goal or constraints", cat.Name),
			InformationGain:    gain,
			Priority:           60,
		}
		if err := mintQuestionID(&q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	SortQuestions(questions)
	return questions, nil
}

// SortQuestions orders questions by priority descending, then id ascending.
func SortQuestions(qs []schema.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Priority != qs[j].Priority {
			return qs[i].Priority > qs[j].Priority
		}
		return qs[i].ID < qs[j].ID
	})
}

// mintQuestionID gives a question its content-addressed identity. The ID
// covers the question's own content, never its position in the tree.
func mintQuestionID(q *schema.Question) error {
	core := map[string]any{
		"text":                 q.Text,
		"expected_answer_type": string(q.ExpectedAnswerType),
		"why_needed":           q.WhyNeeded,
		"options":              q.Options,
	}
	id, err := canonical.MintID("q", core)
	if err != nil {
		return err
	}
	q.ID = id
	return nil
}

func sortBranches(branches []schema.Branch) {
	sort.Slice(branches, func(i, j int) bool { return branches[i].BranchID < branches[j].BranchID })
}

func sortedOptions(a, b string) []string {
	opts := []string{a, b}
	sort.Strings(opts)
	return opts
}

// slug lowercases and normalizes an answer into a branch id.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
