package schema

// PolicyConfig tunes the termination decision. Expr, when set, replaces the
// built-in threshold rule with a compiled expression over the variables
// entropy, density, ratio, min_density, max_entropy and min_ratio.
type PolicyConfig struct {
	MinDensity int     `yaml:"min_density" json:"min_density"`
	MaxEntropy int     `yaml:"max_entropy" json:"max_entropy"`
	MinRatio   float64 `yaml:"min_ratio"   json:"min_ratio"`
	Expr       string  `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// Config is the static, read-only kernel configuration. It never changes
// during a run; identical config + identical intent means identical bundle.
type Config struct {
	MaxDepth int          `yaml:"max_depth" json:"max_depth"`
	Policy   PolicyConfig `yaml:"policy"    json:"policy"`
}

// DefaultConfig returns the documented defaults: depth bound 12,
// termination thresholds 60/30/2.0.
func DefaultConfig() Config {
	return Config{
		MaxDepth: 12,
		Policy: PolicyConfig{
			MinDensity: 60,
			MaxEntropy: 30,
			MinRatio:   2.0,
		},
	}
}
