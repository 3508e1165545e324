package measure

import (
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Composite weights and normalization ceilings for the entropy score.
const (
	weightRefs          = 30
	weightGaps          = 25
	weightContradiction = 25
	weightBranching     = 20

	ceilRefs          = 10
	ceilGaps          = 5
	ceilContradiction = 5
	ceilBranching     = 9 // branching steps above the baseline of 1

	maxBranchingFactor = 10
)

// MeasureEntropy scores a goal+constraints pair for unresolved references,
// topic gaps, contradictions and branching. Pure function of its input.
func MeasureEntropy(goal string, constraints []string) schema.Entropy {
	combined := combinedText(goal, constraints)
	constraintText := strings.ToLower(strings.Join(constraints, "\n"))

	refs := countUnresolvedRefs(combined)
	gaps := len(TopicCategories) - countCategories(combined)
	contradictions := len(Contradictions(constraints, constraintText))
	branching := branchingFactor(combined)

	composite := weightRefs*normalize(refs, ceilRefs) +
		weightGaps*normalize(gaps, ceilGaps) +
		weightContradiction*normalize(contradictions, ceilContradiction) +
		weightBranching*normalize(branching-1, ceilBranching)

	return schema.Entropy{
		UnresolvedRefs:     refs,
		SchemaGaps:         gaps,
		ContradictionCount: contradictions,
		BranchingFactor:    branching,
		EntropyScore:       clamp(composite / 100),
	}
}

// countUnresolvedRefs counts every vocabulary match; no cap is applied
// before normalization.
func countUnresolvedRefs(text string) int {
	n := 0
	for _, re := range UnresolvedRefPatterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

func countCategories(text string) int {
	n := 0
	for _, cat := range TopicCategories {
		if cat.Pattern.MatchString(text) {
			n++
		}
	}
	return n
}

// Contradictions returns the contradiction pairs whose both sides appear in
// the combined constraint text and that are not settled by a decision
// constraint. The result follows the fixed table order. constraintText must
// be the lowercased join of constraints; it is passed in so callers that
// already built it do not pay twice.
func Contradictions(constraints []string, constraintText string) []ContradictionPair {
	settled := settledPairs(constraints)
	var hits []ContradictionPair
	for _, pair := range ContradictionPairs {
		if settled[pair.Name] {
			continue
		}
		if pair.A.MatchString(constraintText) && pair.B.MatchString(constraintText) {
			hits = append(hits, pair)
		}
	}
	return hits
}

// settledPairs collects pair names settled by "decision: <pair>=<side>"
// constraints.
func settledPairs(constraints []string) map[string]bool {
	settled := make(map[string]bool)
	for _, c := range constraints {
		if m := DecisionRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(c))); m != nil {
			settled[m[1]] = true
		}
	}
	return settled
}

// branchingFactor starts at 1, adds one per decision-keyword match, and
// caps at 10.
func branchingFactor(text string) int {
	bf := 1
	for _, re := range BranchingPatterns {
		bf += len(re.FindAllStringIndex(text, -1))
	}
	if bf > maxBranchingFactor {
		bf = maxBranchingFactor
	}
	return bf
}

// combinedText lowercases and joins goal and constraints for matching.
func combinedText(goal string, constraints []string) string {
	parts := make([]string, 0, len(constraints)+1)
	parts = append(parts, goal)
	parts = append(parts, constraints...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// normalize linearly maps a raw count onto [0,100] against a fixed ceiling.
func normalize(count, ceiling int) int {
	if count <= 0 {
		return 0
	}
	return clamp(count * 100 / ceiling)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
