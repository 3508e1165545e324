// Package assemble turns a finished decomposition tree into a Bundle.
// IDs are minted bottom-up: a node's identity covers its children's IDs, so
// children are hashed before parents and any change to a leaf reshapes every
// ancestor ID while leaving sibling subtrees untouched.
package assemble

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/decompose"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// IntentHash computes the content hash of an intent's core (goal plus the
// sorted constraint set). Context is caller-side metadata and stays out.
func IntentHash(intent schema.Intent) (string, error) {
	return canonical.ContentHash(map[string]any{
		"goal":        intent.Goal,
		"constraints": schema.SortedConstraintSet(intent.Constraints),
	})
}

// Build assembles the bundle for an intent from its finished tree.
func Build(intent schema.Intent, tree *decompose.Tree) (*schema.Bundle, error) {
	sourceHash, err := IntentHash(intent)
	if err != nil {
		return nil, err
	}

	nodes := make([]schema.ContextNode, len(tree.Nodes))
	if err := mintNode(tree, 0, nodes); err != nil {
		return nil, err
	}
	// Parent IDs exist only once the whole tree is minted.
	for i, n := range tree.Nodes {
		if n.Parent >= 0 {
			nodes[i].ParentID = nodes[n.Parent].ID
		}
	}

	b := &schema.Bundle{
		SchemaVersion:    schema.SchemaVersion,
		KernelVersion:    schema.KernelVersion,
		SourceIntentHash: sourceHash,
		RootNode:         nodes[0],
	}

	terminals := []schema.ContextNode{}
	blocked := 0
	for i, n := range tree.Nodes {
		switch n.Status {
		case schema.NodeTerminal:
			terminals = append(terminals, nodes[i])
		case schema.NodeBlocked:
			blocked++
		}
	}
	sort.Slice(terminals, func(i, j int) bool { return terminals[i].ID < terminals[j].ID })
	b.TerminalNodes = terminals

	all := append([]schema.ContextNode{}, nodes...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	b.Nodes = all

	outputs, err := terminalOutputs(terminals)
	if err != nil {
		return nil, err
	}
	b.Outputs = outputs

	b.UnresolvedQuestions = collectQuestions(nodes)
	b.Stats = stats(tree, terminals, blocked, b.UnresolvedQuestions)

	switch {
	case blocked > 0:
		b.Status = schema.BundleError
	case len(b.UnresolvedQuestions) > 0:
		b.Status = schema.BundleIncomplete
	default:
		b.Status = schema.BundleComplete
	}

	core, err := canonical.ToValue(b)
	if err != nil {
		return nil, err
	}
	id, err := canonical.MintID("bundle", core)
	if err != nil {
		return nil, err
	}
	b.ID = id
	return b, nil
}

// mintNode fills nodes[idx] post-order: children first, then this node's
// ID from its canonical core.
func mintNode(tree *decompose.Tree, idx int, nodes []schema.ContextNode) error {
	arena := tree.Nodes[idx]

	childIDs := make([]string, 0, len(arena.Children))
	for _, c := range arena.Children {
		if err := mintNode(tree, c, nodes); err != nil {
			return err
		}
		childIDs = append(childIDs, nodes[c].ID)
	}
	sort.Strings(childIDs)

	unresolved := arena.Unresolved
	if unresolved == nil {
		unresolved = []schema.Question{} // arrays stay arrays on the wire
	}
	n := schema.ContextNode{
		Status:              arena.Status,
		Goal:                arena.Goal,
		Constraints:         arena.Constraints,
		Entropy:             arena.Entropy,
		Density:             arena.Density,
		SplittingQuestion:   arena.Split,
		Children:            childIDs,
		UnresolvedQuestions: unresolved,
	}

	ent, err := canonical.ToValue(n.Entropy)
	if err != nil {
		return fmt.Errorf("node core: %w", err)
	}
	den, err := canonical.ToValue(n.Density)
	if err != nil {
		return fmt.Errorf("node core: %w", err)
	}
	core := map[string]any{
		"goal":        n.Goal,
		"constraints": n.Constraints,
		"children":    childIDs,
		"entropy":     ent,
		"density":     den,
	}
	if n.SplittingQuestion != nil {
		sq, err := canonical.ToValue(n.SplittingQuestion)
		if err != nil {
			return err
		}
		core["splitting_question"] = sq
	}

	id, err := canonical.MintID("node", core)
	if err != nil {
		return err
	}
	n.ID = id
	nodes[idx] = n
	return nil
}

// terminalOutputs emits one instruction artifact per terminal node: the
// node's goal and constraints rendered as a step document. Confidence is
// the node's density score.
func terminalOutputs(terminals []schema.ContextNode) ([]schema.Output, error) {
	outputs := make([]schema.Output, 0, len(terminals))
	for _, n := range terminals {
		content := renderStep(n)
		out := schema.Output{
			Type:              schema.OutputInstruction,
			Path:              stepPath(n),
			Content:           content,
			ContentHash:       canonical.HashBytes([]byte(content)),
			SourceConstraints: n.Constraints,
			Confidence:        n.Density.DensityScore,
		}
		core := map[string]any{
			"type":               string(out.Type),
			"path":               out.Path,
			"content":            out.Content,
			"content_hash":       out.ContentHash,
			"source_constraints": out.SourceConstraints,
		}
		id, err := canonical.MintID("out", core)
		if err != nil {
			return nil, err
		}
		out.ID = id
		outputs = append(outputs, out)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Path < outputs[j].Path })
	return outputs, nil
}

func stepPath(n schema.ContextNode) string {
	short := strings.TrimPrefix(n.ID, "node_")
	if len(short) > 8 {
		short = short[:8]
	}
	return "steps/" + goalSlug(n.Goal) + "-" + short + ".md"
}

func goalSlug(goal string) string {
	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(goal) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > 40 {
		s = strings.Trim(s[:40], "-")
	}
	if s == "" {
		s = "step"
	}
	return s
}

func renderStep(n schema.ContextNode) string {
	var b strings.Builder
	b.WriteString("# Step\n\n")
	b.WriteString(n.Goal)
	b.WriteString("\n")
	if len(n.Constraints) > 0 {
		b.WriteString("\n## Constraints\n\n")
		for _, c := range n.Constraints {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// collectQuestions gathers every unresolved question in the tree, deduped
// by id, sorted by priority descending then id ascending.
func collectQuestions(nodes []schema.ContextNode) []schema.Question {
	seen := make(map[string]bool)
	qs := []schema.Question{}
	for _, n := range nodes {
		for _, q := range n.UnresolvedQuestions {
			if seen[q.ID] {
				continue
			}
			seen[q.ID] = true
			qs = append(qs, q)
		}
	}
	decompose.SortQuestions(qs)
	return qs
}

func stats(tree *decompose.Tree, terminals []schema.ContextNode, blocked int, questions []schema.Question) schema.BundleStats {
	s := schema.BundleStats{
		TotalNodes:    len(tree.Nodes),
		TerminalNodes: len(terminals),
		BlockedNodes:  blocked,
		QuestionCount: len(questions),
	}
	for _, n := range tree.Nodes {
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
	}
	if len(terminals) > 0 {
		sumE, sumD := 0, 0
		for _, t := range terminals {
			sumE += t.Entropy.EntropyScore
			sumD += t.Density.DensityScore
		}
		s.MeanTerminalEntropy = sumE / len(terminals)
		s.MeanTerminalDensity = sumD / len(terminals)
	}
	return s
}
