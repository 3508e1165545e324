package measure

import (
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Composite weights and normalization ceilings for the density score.
const (
	weightConcrete = 40
	weightOutputs  = 30
	weightDepth    = 30

	ceilConcrete = 20
	ceilOutputs  = 10
	ceilDepth    = 10

	maxConstraintDepth = 10
)

// MeasureDensity scores the same input for concreteness, specified outputs
// and constraint depth. Pure function of its input.
func MeasureDensity(goal string, constraints []string) schema.Density {
	combined := combinedText(goal, constraints)

	concrete := 0
	for _, c := range constraints {
		if ConcreteRe.MatchString(strings.ToLower(c)) {
			concrete++ // at most one hit per constraint
		}
	}

	outputs := len(OutputPhraseRe.FindAllStringIndex(combined, -1))
	depth := constraintDepth(constraints)

	composite := weightConcrete*normalize(concrete, ceilConcrete) +
		weightOutputs*normalize(outputs, ceilOutputs) +
		weightDepth*normalize(depth, ceilDepth)

	return schema.Density{
		ConcreteConstraints: concrete,
		SpecifiedOutputs:    outputs,
		ConstraintDepth:     depth,
		DensityScore:        clamp(composite / 100),
	}
}

// constraintDepth is the max over constraints of 1 + qualifier hits within
// that single constraint, capped at 10. Zero when there are no constraints.
func constraintDepth(constraints []string) int {
	depth := 0
	for _, c := range constraints {
		d := 1 + len(QualifierRe.FindAllStringIndex(strings.ToLower(c), -1))
		if d > maxConstraintDepth {
			d = maxConstraintDepth
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}
