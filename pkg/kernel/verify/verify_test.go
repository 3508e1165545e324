package verify

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// freshBundle runs the kernel and lowers the bundle into the raw value
// space, the same shape an untrusted JSON document decodes to.
func freshBundle(t *testing.T) map[string]any {
	t.Helper()
	cfg := schema.DefaultConfig()
	cfg.Policy.Expr = "true"
	b, err := engine.Transform(schema.Intent{Goal: "ship the release", Constraints: []string{"must pass ci"}}, cfg)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	v, err := canonical.ToValue(b)
	if err != nil {
		t.Fatalf("ToValue: %v", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("bundle lowered to %T", v)
	}
	return doc
}

func hasRule(vs []Violation, ruleID string) bool {
	for _, v := range vs {
		if v.RuleID == ruleID {
			return true
		}
	}
	return false
}

func TestVerifyBundle_Valid(t *testing.T) {
	res := VerifyBundle(freshBundle(t), Options{})
	if !res.OK {
		t.Fatalf("valid bundle rejected: %+v", res.Violations)
	}
	if !canonical.HashRe.MatchString(res.ContentHash) {
		t.Errorf("content_hash = %q", res.ContentHash)
	}
	if res.Summary["nodes"] != 1 {
		t.Errorf("summary nodes = %d, want 1", res.Summary["nodes"])
	}
}

func TestVerify_NotAnObject(t *testing.T) {
	res := VerifyBundle([]any{"nope"}, Options{})
	if res.OK {
		t.Fatal("non-object accepted")
	}
	want := []Violation{{RuleID: "BD1", Path: "$", Message: "input is not an object"}}
	if diff := cmp.Diff(want, res.Violations); diff != "" {
		t.Errorf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestVerifyBundle_BadStatus(t *testing.T) {
	doc := freshBundle(t)
	doc["status"] = "weird"
	res := VerifyBundle(doc, Options{})
	if res.OK {
		t.Fatal("bad status accepted")
	}
	if !hasRule(res.Violations, "BD2") {
		t.Errorf("no BD2 violation in %+v", res.Violations)
	}
}

func TestVerifyBundle_TamperedOutput(t *testing.T) {
	doc := freshBundle(t)
	outputs := doc["outputs"].([]any)
	outputs[0].(map[string]any)["content"] = "tampered"

	res := VerifyBundle(doc, Options{})
	if res.OK {
		t.Fatal("tampered output accepted")
	}
	if !hasRule(res.Violations, "BD6") {
		t.Errorf("no BD6 violation in %+v", res.Violations)
	}

	// With hash verification off, the format checks still pass and the
	// tamper goes unnoticed.
	if res := VerifyBundle(doc, Options{SkipHashVerification: true}); !res.OK {
		t.Errorf("skip-hashes run rejected: %+v", res.Violations)
	}
}

func TestVerifyBundle_DanglingRoot(t *testing.T) {
	doc := freshBundle(t)
	doc["nodes"] = []any{}
	res := VerifyBundle(doc, Options{})
	if res.OK {
		t.Fatal("bundle with empty node arena accepted")
	}
	if !hasRule(res.Violations, "BD8") {
		t.Errorf("no BD8 violation in %+v", res.Violations)
	}
	if !hasRule(res.Violations, "BD9") {
		t.Errorf("no BD9 violation in %+v", res.Violations)
	}
}

func TestVerifyBundle_StatsMismatch(t *testing.T) {
	doc := freshBundle(t)
	doc["stats"].(map[string]any)["total_nodes"] = 99
	res := VerifyBundle(doc, Options{})
	if res.OK {
		t.Fatal("wrong stats accepted")
	}
	if !hasRule(res.Violations, "BD9") {
		t.Errorf("no BD9 violation in %+v", res.Violations)
	}
}

func TestVerifyBundle_ViolationOrderDeterministic(t *testing.T) {
	broken := func() map[string]any {
		doc := freshBundle(t)
		doc["status"] = "weird"
		doc["source_intent_hash"] = "bogus"
		doc["stats"].(map[string]any)["total_nodes"] = 99
		return doc
	}
	r1 := VerifyBundle(broken(), Options{})
	r2 := VerifyBundle(broken(), Options{})
	if diff := cmp.Diff(r1.Violations, r2.Violations); diff != "" {
		t.Errorf("violation order unstable:\n%s", diff)
	}
	for i := 1; i < len(r1.Violations); i++ {
		a, b := r1.Violations[i-1], r1.Violations[i]
		if a.RuleID > b.RuleID || (a.RuleID == b.RuleID && a.Path > b.Path) {
			t.Errorf("violations out of order: %+v before %+v", a, b)
		}
	}
}

func TestVerifyBundle_CoreHashIgnoresEphemeral(t *testing.T) {
	doc1 := freshBundle(t)
	doc2 := freshBundle(t)
	doc2["ephemeral"] = map[string]any{"created_at": "2026-08-29T10:00:00Z"}
	r1 := VerifyBundle(doc1, Options{})
	r2 := VerifyBundle(doc2, Options{})
	if !r1.OK || !r2.OK {
		t.Fatalf("valid bundles rejected: %+v / %+v", r1.Violations, r2.Violations)
	}
	if r1.ContentHash != r2.ContentHash {
		t.Error("ephemeral data changed the core hash")
	}
}

func TestSortViolations(t *testing.T) {
	vs := []Violation{
		{RuleID: "BD9", Path: "$.stats"},
		{RuleID: "BD2", Path: "$.status"},
		{RuleID: "BD2", Path: "$.id"},
	}
	SortViolations(vs)
	want := []Violation{
		{RuleID: "BD2", Path: "$.id"},
		{RuleID: "BD2", Path: "$.status"},
		{RuleID: "BD9", Path: "$.stats"},
	}
	if diff := cmp.Diff(want, vs); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestForKind(t *testing.T) {
	for _, kind := range Kinds() {
		if ForKind(kind) == nil {
			t.Errorf("ForKind(%q) = nil", kind)
		}
	}
	if ForKind("session") == nil {
		t.Error("session alias not recognized")
	}
	if ForKind("nope") != nil {
		t.Error("unknown kind returned a catalogue")
	}
}
