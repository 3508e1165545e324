// Package verify checks untrusted artifact values against fixed rule
// catalogues. Each artifact kind supplies its rule list and a core
// projection; the framework runs every rule independently over the raw
// input, sorts the collected violations, and on success hashes the core.
// Malformed input is never an error; it is itself a reportable violation.
package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
)

// Violation is one failed rule. Rule IDs are stable: callers may react to a
// specific ID programmatically without matching message text.
type Violation struct {
	RuleID  string `json:"rule_id"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Options tune a verification run.
type Options struct {
	// SkipHashVerification disables recomputing content hashes against
	// their payloads; format checks still run.
	SkipHashVerification bool
	// EnforceSizeLimits enables the per-kind size-limit rules.
	EnforceSizeLimits bool
}

// Result is the outcome of one verification run. ContentHash and Summary
// are set iff OK; Violations is non-empty iff not OK, sorted by
// (rule_id, path, message).
type Result struct {
	OK          bool           `json:"ok"`
	Kind        string         `json:"kind"`
	ContentHash string         `json:"content_hash,omitempty"`
	Summary     map[string]int `json:"summary,omitempty"`
	Violations  []Violation    `json:"violations,omitempty"`
}

// Rule is one independently-evaluated check. A rule never assumes earlier
// rules passed: every accessor tolerates missing or mistyped fields.
type Rule struct {
	ID    string
	Check func(doc map[string]any, opts Options) []Violation
}

// Catalogue binds an artifact kind to its rules and core projection.
type Catalogue struct {
	Kind    string
	Gate    string // rule ID reported when the input is not a record
	Rules   []Rule
	Core    func(doc map[string]any) map[string]any
	Summary func(doc map[string]any) map[string]int
}

// Verify runs the catalogue against a raw value. The only short-circuit is
// the record gate: when the input is not an object at all, no field rule
// can say anything useful.
func (c *Catalogue) Verify(raw any, opts Options) Result {
	doc, ok := record(raw)
	if !ok {
		return Result{Kind: c.Kind, Violations: []Violation{
			{RuleID: c.Gate, Path: "$", Message: "input is not an object"},
		}}
	}

	var violations []Violation
	for _, r := range c.Rules {
		violations = append(violations, r.Check(doc, opts)...)
	}
	SortViolations(violations)
	if len(violations) > 0 {
		return Result{Kind: c.Kind, Violations: violations}
	}

	core := doc
	if c.Core != nil {
		core = c.Core(doc)
	}
	hash, err := canonical.ContentHash(core)
	if err != nil {
		return Result{Kind: c.Kind, Violations: []Violation{
			{RuleID: c.Gate, Path: "$", Message: fmt.Sprintf("core projection not canonicalizable: %v", err)},
		}}
	}
	res := Result{OK: true, Kind: c.Kind, ContentHash: hash}
	if c.Summary != nil {
		res.Summary = c.Summary(doc)
	}
	return res
}

// SortViolations orders violations by (rule_id, path, message). The order
// is total, so repeated runs on the same input agree byte for byte.
func SortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].RuleID != vs[j].RuleID {
			return vs[i].RuleID < vs[j].RuleID
		}
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Message < vs[j].Message
	})
}

// ForKind returns the catalogue for an artifact kind name, or nil.
func ForKind(kind string) *Catalogue {
	switch kind {
	case "bundle":
		return bundleCatalogue
	case "session", "modelio":
		return sessionCatalogue
	case "repostate":
		return repoStateCatalogue
	case "workspace":
		return workspaceCatalogue
	case "patch":
		return patchCatalogue
	case "apply":
		return applyCatalogue
	}
	return nil
}

// Kinds lists the verifiable artifact kind names.
func Kinds() []string {
	return []string{"apply", "bundle", "modelio", "patch", "repostate", "workspace"}
}

// ---------------------------------------------------------------------------
// Untrusted-value accessors. These never panic: a missing or mistyped field
// reads as the zero value plus ok=false, and rules report it themselves.
// ---------------------------------------------------------------------------

var hashRe = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

func record(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func str(doc map[string]any, key string) (string, bool) {
	s, ok := doc[key].(string)
	return s, ok
}

func arr(doc map[string]any, key string) ([]any, bool) {
	a, ok := doc[key].([]any)
	return a, ok
}

// num reads an integral number whether it arrived as float64 (encoding/json
// default), json.Number, or a Go int type.
func num(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func intField(doc map[string]any, key string) (int64, bool) {
	v, ok := doc[key]
	if !ok {
		return 0, false
	}
	return num(v)
}

func elemPath(field string, i int) string {
	return "$." + field + "[" + strconv.Itoa(i) + "]"
}

func isHash(s string) bool {
	return hashRe.MatchString(s)
}

// Content IDs are prefix_16hex. Precompiled per prefix so concurrent
// verification shares only read-only state.
var contentIDRes = map[string]*regexp.Regexp{
	"bundle": regexp.MustCompile(`^bundle_[0-9a-f]{16}$`),
	"node":   regexp.MustCompile(`^node_[0-9a-f]{16}$`),
	"out":    regexp.MustCompile(`^out_[0-9a-f]{16}$`),
	"q":      regexp.MustCompile(`^q_[0-9a-f]{16}$`),
	"patch":  regexp.MustCompile(`^patch_[0-9a-f]{16}$`),
}

func isContentID(prefix, s string) bool {
	re, ok := contentIDRes[prefix]
	if !ok {
		return false
	}
	return re.MatchString(s)
}
