package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadIntent_Valid(t *testing.T) {
	yaml := `
goal: Build a REST API for orders
constraints:
  - use postgres 16
  - respond within 200ms
context:
  team: payments
`
	it, err := LoadIntent(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Goal != "Build a REST API for orders" {
		t.Errorf("goal = %q", it.Goal)
	}
	if len(it.Constraints) != 2 {
		t.Errorf("constraints = %d, want 2", len(it.Constraints))
	}
	if it.Context["team"] != "payments" {
		t.Errorf("context team = %v", it.Context["team"])
	}
}

func TestLoadIntent_UnknownField(t *testing.T) {
	yaml := `
goal: something
unknown_field: bad
`
	if _, err := LoadIntent(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected structural error for unknown field")
	}
}

func TestLoadIntent_NormalizesConstraints(t *testing.T) {
	yaml := `
goal: g
constraints:
  - zeta
  - alpha
  - zeta
  - ""
`
	it, err := LoadIntent(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"alpha", "zeta"}
	if diff := cmp.Diff(want, it.Constraints); diff != "" {
		t.Errorf("constraints mismatch (-want +got):\n%s", diff)
	}
}

func TestSortedConstraintSet_EmptyIsNotNil(t *testing.T) {
	got := SortedConstraintSet(nil)
	if got == nil {
		t.Fatal("empty set must be an empty slice, not nil")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := DefaultConfig()
	if cfg.MaxDepth != def.MaxDepth {
		t.Errorf("max_depth = %d, want %d", cfg.MaxDepth, def.MaxDepth)
	}
	if cfg.Policy.MinRatio != def.Policy.MinRatio {
		t.Errorf("min_ratio = %v, want %v", cfg.Policy.MinRatio, def.Policy.MinRatio)
	}
}

func TestLoadConfig_Override(t *testing.T) {
	yaml := `
max_depth: 4
policy:
  max_entropy: 50
  min_density: 40
`
	cfg, err := LoadConfig(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDepth != 4 {
		t.Errorf("max_depth = %d, want 4", cfg.MaxDepth)
	}
	if cfg.Policy.MaxEntropy != 50 {
		t.Errorf("max_entropy = %d, want 50", cfg.Policy.MaxEntropy)
	}
}

func TestIsSemver(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"1.0.0", true},
		{"10.22.345", true},
		{"1.0", false},
		{"v1.0.0", false},
		{"1.0.0-rc1", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsSemver(c.in); got != c.want {
			t.Errorf("IsSemver(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSameMajor(t *testing.T) {
	if !SameMajor("1.0.0", "1.9.3") {
		t.Error("1.0.0 and 1.9.3 share a major")
	}
	if SameMajor("1.0.0", "2.0.0") {
		t.Error("1.0.0 and 2.0.0 do not share a major")
	}
}

func TestSchemaVersion_IsSemver(t *testing.T) {
	if !IsSemver(SchemaVersion) {
		t.Errorf("SchemaVersion %q is not semver", SchemaVersion)
	}
	if !IsSemver(KernelVersion) {
		t.Errorf("KernelVersion %q is not semver", KernelVersion)
	}
}

func TestTreeHash_OrderIndependentInputSortedFirst(t *testing.T) {
	a := FileEntry{Path: "a.txt", Size: 3, ContentHash: "sha256:" + strings.Repeat("a", 64)}
	b := FileEntry{Path: "b.txt", Size: 5, ContentHash: "sha256:" + strings.Repeat("b", 64)}

	h1, err := TreeHash([]FileEntry{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := TreeHash([]FileEntry{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("tree hash unstable: %s vs %s", h1, h2)
	}

	changed := FileEntry{Path: "a.txt", Size: 4, ContentHash: a.ContentHash}
	h3, err := TreeHash([]FileEntry{changed, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h3 {
		t.Error("tree hash unchanged after entry change")
	}
}

func TestGenerateJSONSchema_KnownNames(t *testing.T) {
	for _, name := range ArtifactSchemaNames() {
		data, err := GenerateJSONSchema(name)
		if err != nil {
			t.Fatalf("GenerateJSONSchema(%q): %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("GenerateJSONSchema(%q) returned empty schema", name)
		}
	}
}

func TestGenerateJSONSchema_UnknownName(t *testing.T) {
	if _, err := GenerateJSONSchema("nope"); err == nil {
		t.Fatal("expected error for unknown schema name")
	}
}
