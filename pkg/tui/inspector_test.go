package tui

import (
	"strings"
	"testing"

	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

func inspectorBundle(t *testing.T) *schema.Bundle {
	t.Helper()
	b, err := engine.Transform(schema.Intent{
		Goal:        "process events",
		Constraints: []string{"processing is synchronous", "retries are asynchronous"},
	}, schema.DefaultConfig())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return b
}

func TestNewModel_FlattensTree(t *testing.T) {
	b := inspectorBundle(t)
	m := NewModel(b)
	if len(m.rows) != 3 {
		t.Fatalf("rows = %d, want 3 (root + two branches)", len(m.rows))
	}
	if m.rows[0].ID != b.RootNode.ID {
		t.Errorf("first row = %s, want the root", m.rows[0].ID)
	}
	if m.rows[0].Depth != 0 || m.rows[1].Depth != 1 || m.rows[2].Depth != 1 {
		t.Errorf("depths = %d, %d, %d", m.rows[0].Depth, m.rows[1].Depth, m.rows[2].Depth)
	}
}

func TestModel_ViewShowsStatusAndGoals(t *testing.T) {
	b := inspectorBundle(t)
	m := NewModel(b)
	view := m.View()
	if !strings.Contains(view, "process events") {
		t.Error("view does not show the root goal")
	}
	if !strings.Contains(view, string(b.Status)) {
		t.Errorf("view does not show bundle status %q", b.Status)
	}
}

func TestModel_ViewSingleNode(t *testing.T) {
	cfg := schema.DefaultConfig()
	cfg.Policy.Expr = "true"
	b, err := engine.Transform(schema.Intent{Goal: "ship the release"}, cfg)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	m := NewModel(b)
	if len(m.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(m.rows))
	}
	if view := m.View(); view == "" {
		t.Error("empty view")
	}
}

func TestNodeGlyph(t *testing.T) {
	if nodeGlyph(schema.NodeTerminal) == nodeGlyph(schema.NodeBlocked) {
		t.Error("terminal and blocked share a glyph")
	}
}
