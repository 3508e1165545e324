package measure

import (
	"strings"
	"testing"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

func TestMeasureEntropy_UnresolvedRefs(t *testing.T) {
	e := MeasureEntropy("Build a TODO app with TBD auth", nil)
	if e.UnresolvedRefs < 2 {
		t.Errorf("unresolved_refs = %d, want >= 2 (todo and tbd)", e.UnresolvedRefs)
	}
	if e.EntropyScore <= 0 {
		t.Errorf("entropy_score = %d, want > 0", e.EntropyScore)
	}
}

func TestMeasureEntropy_CleanGoalScoresLow(t *testing.T) {
	goal := "Create a REST API service in Go that validates JSON records for users and returns errors on invalid payloads"
	vague := MeasureEntropy("Do something with some kind of data, maybe, or not", nil)
	clean := MeasureEntropy(goal, []string{"must use postgres 16", "must return 400 on invalid input"})
	if clean.EntropyScore >= vague.EntropyScore {
		t.Errorf("clean entropy %d not below vague entropy %d", clean.EntropyScore, vague.EntropyScore)
	}
}

func TestMeasureEntropy_SchemaGaps(t *testing.T) {
	// Empty goal touches no category: all five are gaps.
	e := MeasureEntropy("", nil)
	if e.SchemaGaps != len(TopicCategories) {
		t.Errorf("schema_gaps = %d, want %d", e.SchemaGaps, len(TopicCategories))
	}
}

func TestMeasureEntropy_ContradictionDetected(t *testing.T) {
	constraints := []string{
		"processing is synchronous",
		"retries are asynchronous",
	}
	e := MeasureEntropy("process events", constraints)
	if e.ContradictionCount != 1 {
		t.Errorf("contradiction_count = %d, want 1", e.ContradictionCount)
	}
}

func TestContradictions_SettledByDecision(t *testing.T) {
	constraints := []string{
		"processing is synchronous",
		"retries are asynchronous",
		"decision: sync-async=synchronous",
	}
	text := strings.ToLower(strings.Join(constraints, "\n"))
	if hits := Contradictions(constraints, text); len(hits) != 0 {
		t.Errorf("settled pair still reported: %d hits", len(hits))
	}
}

func TestContradictions_TableOrder(t *testing.T) {
	constraints := []string{
		"data is stateless and public",
		"data is stateful and private",
	}
	text := strings.ToLower(strings.Join(constraints, "\n"))
	hits := Contradictions(constraints, text)
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Name != "public-private" || hits[1].Name != "stateless-stateful" {
		t.Errorf("hit order = %s, %s; want public-private, stateless-stateful", hits[0].Name, hits[1].Name)
	}
}

func TestMeasureEntropy_BranchingCapped(t *testing.T) {
	goal := strings.Repeat("either this or that, maybe, could, might, depending. ", 5)
	e := MeasureEntropy(goal, nil)
	if e.BranchingFactor != 10 {
		t.Errorf("branching_factor = %d, want capped at 10", e.BranchingFactor)
	}
}

func TestMeasureEntropy_ScoreBounds(t *testing.T) {
	inputs := []string{
		"",
		"TBD TODO FIXME ??? unknown unclear something like [thing] {x} <y> etc and so on",
		"Create a Go service for users that validates data and handles errors",
	}
	for _, goal := range inputs {
		e := MeasureEntropy(goal, nil)
		if e.EntropyScore < 0 || e.EntropyScore > 100 {
			t.Errorf("entropy_score for %q = %d, out of [0,100]", goal, e.EntropyScore)
		}
	}
}

func TestMeasureDensity_ConcreteCountsOncePerConstraint(t *testing.T) {
	d := MeasureDensity("build", []string{"must respond in exactly 200 ms, specifically"})
	if d.ConcreteConstraints != 1 {
		t.Errorf("concrete_constraints = %d, want 1", d.ConcreteConstraints)
	}
}

func TestMeasureDensity_SpecifiedOutputs(t *testing.T) {
	d := MeasureDensity("the service returns a report and writes a file", nil)
	if d.SpecifiedOutputs < 3 {
		t.Errorf("specified_outputs = %d, want >= 3", d.SpecifiedOutputs)
	}
}

func TestMeasureDensity_ConstraintDepth(t *testing.T) {
	d := MeasureDensity("g", []string{"retry only when the upstream fails, using backoff"})
	if d.ConstraintDepth != 4 {
		t.Errorf("constraint_depth = %d, want 4 (1 + only/when/using)", d.ConstraintDepth)
	}
	if got := MeasureDensity("g", nil).ConstraintDepth; got != 0 {
		t.Errorf("depth with no constraints = %d, want 0", got)
	}
}

func TestMeasureDensity_Deterministic(t *testing.T) {
	goal := "Generate a schema file for customer records"
	constraints := []string{"must use utf-8", "output a json report"}
	d1 := MeasureDensity(goal, constraints)
	d2 := MeasureDensity(goal, constraints)
	if d1 != d2 {
		t.Errorf("density not deterministic: %+v vs %+v", d1, d2)
	}
}

func TestPolicy_DefaultThresholds(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		entropy, density int
		want             bool
	}{
		{20, 80, true},   // ratio 4 >= 2
		{0, 60, true},    // zero entropy bypasses the ratio
		{30, 60, true},   // exactly at both thresholds, ratio 2
		{31, 80, false},  // entropy above max
		{20, 59, false},  // density below min
		{40, 100, false}, // entropy gate fails even at max density
		{25, 45, false},  // density below 60
	}
	for _, c := range cases {
		e := schema.Entropy{EntropyScore: c.entropy}
		d := schema.Density{DensityScore: c.density}
		if got := p.IsTerminal(e, d); got != c.want {
			t.Errorf("IsTerminal(e=%d, d=%d) = %v, want %v", c.entropy, c.density, got, c.want)
		}
	}
}

func TestNewPolicy_ExprOverride(t *testing.T) {
	p, err := NewPolicy(schema.PolicyConfig{
		MinDensity: 60, MaxEntropy: 30, MinRatio: 2.0,
		Expr: "density >= 50 && entropy <= max_entropy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsTerminal(schema.Entropy{EntropyScore: 10}, schema.Density{DensityScore: 50}) {
		t.Error("expr policy rejected density 50")
	}
	if p.IsTerminal(schema.Entropy{EntropyScore: 40}, schema.Density{DensityScore: 90}) {
		t.Error("expr policy accepted entropy above max_entropy")
	}
}

func TestNewPolicy_BadExpr(t *testing.T) {
	if _, err := NewPolicy(schema.PolicyConfig{Expr: "density >"}); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestInformationGain(t *testing.T) {
	cases := []struct {
		entropy, density, want int
	}{
		{100, 0, 100},
		{0, 100, 0},
		{50, 50, 50},
		{30, 80, 26},
	}
	for _, c := range cases {
		got := InformationGain(schema.Entropy{EntropyScore: c.entropy}, schema.Density{DensityScore: c.density})
		if got != c.want {
			t.Errorf("InformationGain(e=%d, d=%d) = %d, want %d", c.entropy, c.density, got, c.want)
		}
	}
}
