// Package engine exposes the kernel entry points: Transform, which turns an
// Intent into a Bundle, and Run, which folds the result into one of three
// disjoint outcomes for callers.
package engine

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/kiln/pkg/kernel/assemble"
	"github.com/ormasoftchile/kiln/pkg/kernel/decompose"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// KernelError reports an intent the kernel could not process at all. It is
// never returned alongside partial output.
type KernelError struct {
	Reason string
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("kernel: %s", e.Reason)
}

// Transform runs the full kernel pipeline: decompose the intent under the
// given config, then assemble the bundle. The pipeline does no I/O and holds
// no shared state, so concurrent calls on independent intents need no
// locking. Fails only for a malformed intent (empty goal) or a decomposition
// left blocked with no questions to ask; a returned bundle always gives the
// caller a path forward.
func Transform(intent schema.Intent, cfg schema.Config) (*schema.Bundle, error) {
	schema.NormalizeIntent(&intent)
	if strings.TrimSpace(intent.Goal) == "" {
		return nil, &KernelError{Reason: "intent goal is empty"}
	}

	eng, err := decompose.New(cfg)
	if err != nil {
		return nil, &KernelError{Reason: err.Error()}
	}
	tree, err := eng.Decompose(intent)
	if err != nil {
		return nil, &KernelError{Reason: err.Error()}
	}

	b, err := assemble.Build(intent, tree)
	if err != nil {
		return nil, &KernelError{Reason: err.Error()}
	}
	// A blocked node without questions leaves the caller no way to make
	// progress, clarifying or otherwise. Covers the all-blocked case too:
	// every leaf is terminal or blocked.
	if b.Stats.BlockedNodes > 0 && b.Stats.QuestionCount == 0 {
		return nil, &KernelError{Reason: "decomposition blocked and produced no questions"}
	}
	return b, nil
}

// OutcomeKind discriminates the three ways a kernel run can end.
type OutcomeKind string

const (
	OutcomeBundle  OutcomeKind = "BUNDLE"
	OutcomeClarify OutcomeKind = "CLARIFY"
	OutcomeRefuse  OutcomeKind = "REFUSE"
)

// Outcome is the discriminated result of Run. Bundle is set for BUNDLE and
// CLARIFY; Questions is set for CLARIFY; Reason is set for REFUSE.
type Outcome struct {
	Kind      OutcomeKind       `json:"kind"`
	Bundle    *schema.Bundle    `json:"bundle,omitempty"`
	Questions []schema.Question `json:"questions,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// Run wraps Transform and classifies the result. A bundle carrying
// unresolved questions becomes CLARIFY: the caller answers them, appends the
// answers as constraints, and re-invokes.
func Run(intent schema.Intent, cfg schema.Config) Outcome {
	b, err := Transform(intent, cfg)
	if err != nil {
		return Outcome{Kind: OutcomeRefuse, Reason: err.Error()}
	}
	if len(b.UnresolvedQuestions) > 0 {
		return Outcome{Kind: OutcomeClarify, Bundle: b, Questions: b.UnresolvedQuestions}
	}
	return Outcome{Kind: OutcomeBundle, Bundle: b}
}
