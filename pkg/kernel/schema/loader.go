package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadIntentFile reads and structurally decodes an intent YAML file.
// Unknown fields are rejected.
func LoadIntentFile(path string) (*Intent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open intent: %w", err)
	}
	defer f.Close()
	return LoadIntent(f)
}

// LoadIntent reads an intent from a reader.
func LoadIntent(r io.Reader) (*Intent, error) {
	var it Intent
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // strict: reject unknown fields
	if err := dec.Decode(&it); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	NormalizeIntent(&it)
	return &it, nil
}

// NormalizeIntent sorts and dedupes the constraint set in place. Constraints
// are an ordered set: lexicographically sorted post-normalization.
func NormalizeIntent(it *Intent) {
	it.Constraints = SortedConstraintSet(it.Constraints)
}

// SortedConstraintSet returns a sorted, deduplicated copy of constraints.
// Never nil: an empty set is an empty slice so the canonical form is stable.
func SortedConstraintSet(constraints []string) []string {
	seen := make(map[string]bool, len(constraints))
	out := make([]string, 0, len(constraints))
	for _, c := range constraints {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LoadConfigFile reads a kernel config YAML. Missing fields fall back to
// the documented defaults.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// LoadConfig reads a kernel config from a reader.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("structural decode: %w", err)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.Policy.MinRatio <= 0 {
		cfg.Policy.MinRatio = DefaultConfig().Policy.MinRatio
	}
	return cfg, nil
}
