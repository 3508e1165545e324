package verify

import (
	"fmt"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Bundle rule catalogue (BD1..BD10).
//
//	BD1  document matches the bundle JSON Schema
//	BD2  id/version/status field formats
//	BD3  source_intent_hash format
//	BD4  node well-formedness: id format, duplicates, score bounds
//	BD5  terminal_nodes sorted by id, terminal status, present in nodes
//	BD6  outputs sorted by path, hash format, hash matches content
//	BD7  unresolved_questions order and bounds
//	BD8  child and root references resolve within nodes
//	BD9  stats agree with the node arrays
//	BD10 size limits (opt-in)
var bundleCatalogue = &Catalogue{
	Kind: "bundle",
	Gate: "BD1",
	Rules: []Rule{
		structuralRule("BD1", "bundle"),
		{ID: "BD2", Check: bundleHeader},
		{ID: "BD3", Check: bundleIntentHash},
		{ID: "BD4", Check: bundleNodes},
		{ID: "BD5", Check: bundleTerminals},
		{ID: "BD6", Check: bundleOutputs},
		{ID: "BD7", Check: bundleQuestions},
		{ID: "BD8", Check: bundleRefs},
		{ID: "BD9", Check: bundleStats},
		{ID: "BD10", Check: bundleLimits},
	},
	Core:    bundleCore,
	Summary: bundleSummary,
}

// VerifyBundle checks a raw, untrusted bundle value.
func VerifyBundle(raw any, opts Options) Result {
	return bundleCatalogue.Verify(raw, opts)
}

func bundleHeader(doc map[string]any, _ Options) []Violation {
	var vs []Violation
	if id, ok := str(doc, "id"); !ok || !isContentID("bundle", id) {
		vs = append(vs, Violation{RuleID: "BD2", Path: "$.id", Message: "id must match bundle_<16 hex>"})
	}
	if v, ok := str(doc, "schema_version"); !ok || !schema.IsSemver(v) {
		vs = append(vs, Violation{RuleID: "BD2", Path: "$.schema_version", Message: "schema_version must be MAJOR.MINOR.PATCH"})
	}
	if v, ok := str(doc, "kernel_version"); !ok || v == "" {
		vs = append(vs, Violation{RuleID: "BD2", Path: "$.kernel_version", Message: "kernel_version is required"})
	}
	switch s, _ := str(doc, "status"); s {
	case "complete", "incomplete", "error":
	default:
		vs = append(vs, Violation{RuleID: "BD2", Path: "$.status", Message: "status must be complete, incomplete, or error"})
	}
	return vs
}

func bundleIntentHash(doc map[string]any, _ Options) []Violation {
	if h, ok := str(doc, "source_intent_hash"); !ok || !isHash(h) {
		return []Violation{{RuleID: "BD3", Path: "$.source_intent_hash", Message: "must match sha256:<64 hex>"}}
	}
	return nil
}

func bundleNodes(doc map[string]any, _ Options) []Violation {
	nodes, ok := arr(doc, "nodes")
	if !ok {
		return []Violation{{RuleID: "BD4", Path: "$.nodes", Message: "nodes array is required"}}
	}
	var vs []Violation
	seen := map[string]bool{}
	for i, raw := range nodes {
		n, ok := record(raw)
		if !ok {
			vs = append(vs, Violation{RuleID: "BD4", Path: elemPath("nodes", i), Message: "node must be an object"})
			continue
		}
		id, _ := str(n, "id")
		if !isContentID("node", id) {
			vs = append(vs, Violation{RuleID: "BD4", Path: elemPath("nodes", i) + ".id", Message: "id must match node_<16 hex>"})
		} else if seen[id] {
			vs = append(vs, Violation{RuleID: "BD4", Path: elemPath("nodes", i) + ".id", Message: fmt.Sprintf("duplicate node id %s", id)})
		} else {
			seen[id] = true
		}
		vs = append(vs, scoreBound(n, "entropy", "entropy_score", "BD4", elemPath("nodes", i))...)
		vs = append(vs, scoreBound(n, "density", "density_score", "BD4", elemPath("nodes", i))...)
	}
	return vs
}

func scoreBound(n map[string]any, field, key, ruleID, base string) []Violation {
	m, ok := record(n[field])
	if !ok {
		return nil // shape is BD1's complaint
	}
	if v, ok := intField(m, key); ok && (v < 0 || v > 100) {
		return []Violation{{RuleID: ruleID, Path: base + "." + field + "." + key, Message: "score must be in [0,100]"}}
	}
	return nil
}

func bundleTerminals(doc map[string]any, _ Options) []Violation {
	terminals, ok := arr(doc, "terminal_nodes")
	if !ok {
		return nil
	}
	var vs []Violation
	if !inOrder(terminals, byStringKey("id")) {
		vs = append(vs, Violation{RuleID: "BD5", Path: "$.terminal_nodes", Message: "must be sorted by id"})
	}
	known := nodeIDSet(doc)
	for i, raw := range terminals {
		n, ok := record(raw)
		if !ok {
			continue
		}
		if s, _ := str(n, "status"); s != "terminal" {
			vs = append(vs, Violation{RuleID: "BD5", Path: elemPath("terminal_nodes", i) + ".status", Message: "terminal_nodes may only contain terminal nodes"})
		}
		if id, _ := str(n, "id"); known != nil && !known[id] {
			vs = append(vs, Violation{RuleID: "BD5", Path: elemPath("terminal_nodes", i) + ".id", Message: fmt.Sprintf("node %s not present in nodes", id)})
		}
	}
	return vs
}

func bundleOutputs(doc map[string]any, opts Options) []Violation {
	outputs, ok := arr(doc, "outputs")
	if !ok {
		return nil
	}
	var vs []Violation
	if !inOrder(outputs, byStringKey("path")) {
		vs = append(vs, Violation{RuleID: "BD6", Path: "$.outputs", Message: "must be sorted by path"})
	}
	seen := map[string]bool{}
	for i, raw := range outputs {
		out, ok := record(raw)
		if !ok {
			continue
		}
		base := elemPath("outputs", i)
		path, _ := str(out, "path")
		if seen[path] {
			vs = append(vs, Violation{RuleID: "BD6", Path: base + ".path", Message: fmt.Sprintf("duplicate output path %q", path)})
		}
		seen[path] = true
		if id, _ := str(out, "id"); !isContentID("out", id) {
			vs = append(vs, Violation{RuleID: "BD6", Path: base + ".id", Message: "id must match out_<16 hex>"})
		}
		hash, _ := str(out, "content_hash")
		if !isHash(hash) {
			vs = append(vs, Violation{RuleID: "BD6", Path: base + ".content_hash", Message: "must match sha256:<64 hex>"})
		} else if !opts.SkipHashVerification {
			if content, ok := str(out, "content"); ok && canonical.HashBytes([]byte(content)) != hash {
				vs = append(vs, Violation{RuleID: "BD6", Path: base + ".content_hash", Message: "content_hash does not match content"})
			}
		}
		if c, ok := intField(out, "confidence"); ok && (c < 0 || c > 100) {
			vs = append(vs, Violation{RuleID: "BD6", Path: base + ".confidence", Message: "confidence must be in [0,100]"})
		}
	}
	return vs
}

func bundleQuestions(doc map[string]any, _ Options) []Violation {
	return questionListViolations(doc, "unresolved_questions", "BD7")
}

// questionListViolations is shared with any artifact carrying a question
// array in the documented priority-then-id order.
func questionListViolations(doc map[string]any, field, ruleID string) []Violation {
	questions, ok := arr(doc, field)
	if !ok {
		return nil
	}
	var vs []Violation
	if !inOrder(questions, byQuestionOrder) {
		vs = append(vs, Violation{RuleID: ruleID, Path: "$." + field, Message: "must be sorted by priority desc, id asc"})
	}
	for i, raw := range questions {
		q, ok := record(raw)
		if !ok {
			continue
		}
		base := elemPath(field, i)
		if id, _ := str(q, "id"); !isContentID("q", id) {
			vs = append(vs, Violation{RuleID: ruleID, Path: base + ".id", Message: "id must match q_<16 hex>"})
		}
		for _, key := range []string{"information_gain", "priority"} {
			if v, ok := intField(q, key); ok && (v < 0 || v > 100) {
				vs = append(vs, Violation{RuleID: ruleID, Path: base + "." + key, Message: key + " must be in [0,100]"})
			}
		}
	}
	return vs
}

func bundleRefs(doc map[string]any, _ Options) []Violation {
	known := nodeIDSet(doc)
	if known == nil {
		return nil
	}
	var vs []Violation
	if root, ok := record(doc["root_node"]); ok {
		if id, _ := str(root, "id"); !known[id] {
			vs = append(vs, Violation{RuleID: "BD8", Path: "$.root_node.id", Message: fmt.Sprintf("root node %s not present in nodes", id)})
		}
	}
	nodes, _ := arr(doc, "nodes")
	for i, raw := range nodes {
		n, ok := record(raw)
		if !ok {
			continue
		}
		children, _ := arr(n, "children")
		for j, c := range children {
			id, _ := c.(string)
			if !known[id] {
				path := fmt.Sprintf("%s.children[%d]", elemPath("nodes", i), j)
				vs = append(vs, Violation{RuleID: "BD8", Path: path, Message: fmt.Sprintf("child %s not present in nodes", id)})
			}
		}
	}
	return vs
}

func bundleStats(doc map[string]any, _ Options) []Violation {
	stats, ok := record(doc["stats"])
	if !ok {
		return nil
	}
	nodes, haveNodes := arr(doc, "nodes")
	if !haveNodes {
		return nil
	}
	var vs []Violation
	check := func(key string, want int64) {
		if got, ok := intField(stats, key); ok && got != want {
			vs = append(vs, Violation{RuleID: "BD9", Path: "$.stats." + key, Message: fmt.Sprintf("is %d, want %d", got, want)})
		}
	}
	check("total_nodes", int64(len(nodes)))
	var terminal, blocked int64
	for _, raw := range nodes {
		n, ok := record(raw)
		if !ok {
			continue
		}
		switch s, _ := str(n, "status"); s {
		case "terminal":
			terminal++
		case "blocked":
			blocked++
		}
	}
	check("terminal_nodes", terminal)
	check("blocked_nodes", blocked)
	if questions, ok := arr(doc, "unresolved_questions"); ok {
		check("question_count", int64(len(questions)))
	}
	return vs
}

const (
	maxBundleNodes    = 4096
	maxOutputContent  = 1 << 20
	maxSessionContent = 4 << 20
	maxSnapshotFiles  = 65536
	maxPatchOps       = 65536
)

func bundleLimits(doc map[string]any, opts Options) []Violation {
	if !opts.EnforceSizeLimits {
		return nil
	}
	var vs []Violation
	if nodes, ok := arr(doc, "nodes"); ok && len(nodes) > maxBundleNodes {
		vs = append(vs, Violation{RuleID: "BD10", Path: "$.nodes", Message: fmt.Sprintf("%d nodes exceeds limit %d", len(nodes), maxBundleNodes)})
	}
	outputs, _ := arr(doc, "outputs")
	for i, raw := range outputs {
		out, ok := record(raw)
		if !ok {
			continue
		}
		if content, ok := str(out, "content"); ok && len(content) > maxOutputContent {
			vs = append(vs, Violation{RuleID: "BD10", Path: elemPath("outputs", i) + ".content", Message: fmt.Sprintf("%d bytes exceeds limit %d", len(content), maxOutputContent)})
		}
	}
	return vs
}

func nodeIDSet(doc map[string]any) map[string]bool {
	nodes, ok := arr(doc, "nodes")
	if !ok {
		return nil
	}
	set := make(map[string]bool, len(nodes))
	for _, raw := range nodes {
		if n, ok := record(raw); ok {
			if id, ok := str(n, "id"); ok {
				set[id] = true
			}
		}
	}
	return set
}

func bundleCore(doc map[string]any) map[string]any {
	core := stripEphemeral(doc)
	resortField(core, "nodes", byStringKey("id"))
	resortField(core, "terminal_nodes", byStringKey("id"))
	resortField(core, "outputs", byStringKey("path"))
	resortField(core, "unresolved_questions", byQuestionOrder)
	return core
}

func bundleSummary(doc map[string]any) map[string]int {
	s := map[string]int{}
	if nodes, ok := arr(doc, "nodes"); ok {
		s["nodes"] = len(nodes)
	}
	if terminals, ok := arr(doc, "terminal_nodes"); ok {
		s["terminal_nodes"] = len(terminals)
	}
	if outputs, ok := arr(doc, "outputs"); ok {
		s["outputs"] = len(outputs)
	}
	if questions, ok := arr(doc, "unresolved_questions"); ok {
		s["questions"] = len(questions)
	}
	return s
}
