package model

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// Recorder wraps a Client and captures every exchange as a verifiable
// ModelSession. Request and response payloads are pinned by content hash;
// latencies go to the ephemeral group so the session core stays stable.
type Recorder struct {
	inner     Client
	sessionID string
	createdAt string

	interactions []schema.Interaction
	latencies    []int64
	redactBodies bool
}

// NewRecorder creates a recording wrapper. When redactBodies is set, request
// content is dropped from the session and only its hash survives.
func NewRecorder(inner Client, redactBodies bool) *Recorder {
	return &Recorder{
		inner:        inner,
		sessionID:    uuid.NewString(),
		createdAt:    time.Now().UTC().Format(time.RFC3339),
		redactBodies: redactBodies,
	}
}

func (r *Recorder) ModelName() string { return r.inner.ModelName() }
func (r *Recorder) Provider() string  { return r.inner.Provider() }

// Complete delegates to the inner client and records the exchange.
func (r *Recorder) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Reply, error) {
	reply, err := r.inner.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	request := systemPrompt + "\n" + userPrompt
	in := schema.Interaction{
		I:               len(r.interactions),
		RequestHash:     canonical.HashBytes([]byte(request)),
		ResponseContent: reply.Content,
		ResponseHash:    canonical.HashBytes([]byte(reply.Content)),
		Tokens:          reply.Tokens,
	}
	if !r.redactBodies {
		in.RequestContent = request
	}
	r.interactions = append(r.interactions, in)
	r.latencies = append(r.latencies, reply.LatencyMS)
	return reply, nil
}

// Session returns the recorded transcript so far.
func (r *Recorder) Session() *schema.ModelSession {
	return &schema.ModelSession{
		SchemaVersion: schema.SchemaVersion,
		SessionID:     r.sessionID,
		Provider:      r.inner.Provider(),
		Model:         r.inner.ModelName(),
		Interactions:  append([]schema.Interaction{}, r.interactions...),
		Ephemeral: &schema.Ephemeral{
			CreatedAt: r.createdAt,
			LatencyMS: append([]int64{}, r.latencies...),
		},
	}
}
