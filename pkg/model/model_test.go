package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/verify"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(Config{Endpoint: srv.URL, APIKey: "test-key", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	return c, srv
}

func TestOpenAIClient_Complete(t *testing.T) {
	var gotAuth, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`)
	})

	reply, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Content != "hello" {
		t.Errorf("content = %q, want hello", reply.Content)
	}
	if reply.Tokens != 7 {
		t.Errorf("tokens = %d, want 7", reply.Tokens)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestOpenAIClient_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := c.Complete(context.Background(), "sys", "user")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", apiErr.Status)
	}
	if !apiErr.Retryable() {
		t.Error("429 not classified retryable")
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[],"usage":{"total_tokens":0}}`)
	})
	if _, err := c.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewOpenAIClient_MissingConfig(t *testing.T) {
	if _, err := NewOpenAIClient(Config{Endpoint: "x", APIKey: "y"}); err == nil {
		t.Fatal("expected error for missing model name")
	}
}

// scriptedClient returns canned outcomes in order, repeating the last one.
type scriptedClient struct {
	outcomes []error
	reply    *Reply
	calls    int
}

func (s *scriptedClient) Complete(ctx context.Context, _, _ string) (*Reply, error) {
	i := s.calls
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	s.calls++
	if err := s.outcomes[i]; err != nil {
		return nil, err
	}
	return s.reply, nil
}

func (s *scriptedClient) ModelName() string { return "scripted" }
func (s *scriptedClient) Provider() string  { return "test" }

func TestResilient_RetriesRetryable(t *testing.T) {
	inner := &scriptedClient{
		outcomes: []error{&APIError{Status: 503}, &APIError{Status: 503}, nil},
		reply:    &Reply{Content: "ok"},
	}
	r := NewResilient(inner, 3, time.Millisecond)
	reply, err := r.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Content != "ok" {
		t.Errorf("content = %q", reply.Content)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestResilient_StopsOnNonRetryable(t *testing.T) {
	inner := &scriptedClient{outcomes: []error{&APIError{Status: 400}}}
	r := NewResilient(inner, 5, time.Millisecond)
	if _, err := r.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", inner.calls)
	}
}

func TestResilient_ExhaustsAttempts(t *testing.T) {
	inner := &scriptedClient{outcomes: []error{&APIError{Status: 500}}}
	r := NewResilient(inner, 3, time.Millisecond)
	_, err := r.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestResilient_ContextCancelled(t *testing.T) {
	inner := &scriptedClient{outcomes: []error{&APIError{Status: 500}}}
	r := NewResilient(inner, 10, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Complete(ctx, "sys", "user"); err == nil {
		t.Fatal("expected error under a cancelled context")
	}
	if inner.calls > 1 {
		t.Errorf("calls = %d, want at most 1", inner.calls)
	}
}

func TestRecorder_SessionVerifies(t *testing.T) {
	inner := &scriptedClient{
		outcomes: []error{nil},
		reply:    &Reply{Content: "answer", Tokens: 5, LatencyMS: 12},
	}
	rec := NewRecorder(inner, false)
	if _, err := rec.Complete(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := rec.Complete(context.Background(), "sys", "second"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	session := rec.Session()
	if len(session.Interactions) != 2 {
		t.Fatalf("interactions = %d, want 2", len(session.Interactions))
	}
	if session.Interactions[0].I != 0 || session.Interactions[1].I != 1 {
		t.Error("interaction indices not contiguous")
	}
	if session.Interactions[0].RequestContent != "sys\nuser" {
		t.Errorf("request content = %q", session.Interactions[0].RequestContent)
	}
	if session.Ephemeral == nil || len(session.Ephemeral.LatencyMS) != 2 {
		t.Error("latencies not recorded in the ephemeral group")
	}

	v, err := canonical.ToValue(session)
	if err != nil {
		t.Fatalf("ToValue: %v", err)
	}
	res := verify.VerifyModelIO(v, verify.Options{})
	if !res.OK {
		t.Errorf("recorded session does not verify: %+v", res.Violations)
	}
}

func TestRecorder_Redaction(t *testing.T) {
	inner := &scriptedClient{outcomes: []error{nil}, reply: &Reply{Content: "answer"}}
	rec := NewRecorder(inner, true)
	if _, err := rec.Complete(context.Background(), "sys", "secret prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	session := rec.Session()
	in := session.Interactions[0]
	if in.RequestContent != "" {
		t.Errorf("request content survived redaction: %q", in.RequestContent)
	}
	if in.RequestHash != canonical.HashBytes([]byte("sys\nsecret prompt")) {
		t.Error("request hash does not pin the redacted payload")
	}

	v, err := canonical.ToValue(session)
	if err != nil {
		t.Fatalf("ToValue: %v", err)
	}
	if res := verify.VerifyModelIO(v, verify.Options{}); !res.OK {
		t.Errorf("redacted session does not verify: %+v", res.Violations)
	}
}
