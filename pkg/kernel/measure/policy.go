package measure

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Policy decides terminal vs. needs-decomposition from an entropy/density
// pair. The built-in rule requires density ≥ MinDensity, entropy ≤
// MaxEntropy, and a density/entropy ratio of at least MinRatio (bypassed
// when entropy is exactly zero). An optional compiled expression replaces
// the built-in rule; it stays a pure function of the two scores.
type Policy struct {
	MinDensity int
	MaxEntropy int
	MinRatio   float64
	program    *vm.Program
}

// NewPolicy builds a Policy from config, compiling the expression override
// when present.
func NewPolicy(cfg schema.PolicyConfig) (*Policy, error) {
	p := &Policy{
		MinDensity: cfg.MinDensity,
		MaxEntropy: cfg.MaxEntropy,
		MinRatio:   cfg.MinRatio,
	}
	if cfg.Expr != "" {
		program, err := expr.Compile(cfg.Expr, expr.Env(policyEnv(0, 0, p)), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile policy expr %q: %w", cfg.Expr, err)
		}
		p.program = program
	}
	return p, nil
}

// DefaultPolicy returns the documented 60/30/2.0 policy.
func DefaultPolicy() *Policy {
	p, _ := NewPolicy(schema.DefaultConfig().Policy)
	return p
}

// IsTerminal reports whether a node with these measurements is concrete
// enough to stop decomposing.
func (p *Policy) IsTerminal(e schema.Entropy, d schema.Density) bool {
	if p.program != nil {
		out, err := expr.Run(p.program, policyEnv(e.EntropyScore, d.DensityScore, p))
		if err != nil {
			return false // an expression that cannot evaluate never terminates a node
		}
		b, ok := out.(bool)
		return ok && b
	}
	if d.DensityScore < p.MinDensity || e.EntropyScore > p.MaxEntropy {
		return false
	}
	if e.EntropyScore == 0 {
		return true
	}
	return float64(d.DensityScore)/float64(e.EntropyScore) >= p.MinRatio
}

// InformationGain ranks how much a split or answer at this node would help:
// 0.6·entropy + 0.4·(100−density), computed in integer arithmetic and
// clamped to [0,100]. It ranks candidate questions and branches; it never
// gates termination.
func InformationGain(e schema.Entropy, d schema.Density) int {
	return clamp((6*e.EntropyScore + 4*(100-d.DensityScore)) / 10)
}

func policyEnv(entropy, density int, p *Policy) map[string]any {
	ratio := float64(density)
	if entropy > 0 {
		ratio = float64(density) / float64(entropy)
	}
	return map[string]any{
		"entropy":     entropy,
		"density":     density,
		"ratio":       ratio,
		"min_density": p.MinDensity,
		"max_entropy": p.MaxEntropy,
		"min_ratio":   p.MinRatio,
	}
}
