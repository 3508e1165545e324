package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

// row is one line of the flattened tree, pre-order.
type row struct {
	ID     string
	Depth  int
	Status schema.NodeStatus
	Goal   string
	Node   *schema.ContextNode
}

// Model is the Bubble Tea model for the bundle inspector.
type Model struct {
	bundle   *schema.Bundle
	rows     []row
	byID     map[string]*schema.ContextNode
	selected int

	preview     viewport.Model
	showPreview bool

	width  int
	height int
}

// NewModel builds an inspector over a loaded bundle.
func NewModel(b *schema.Bundle) Model {
	byID := make(map[string]*schema.ContextNode, len(b.Nodes))
	for i := range b.Nodes {
		byID[b.Nodes[i].ID] = &b.Nodes[i]
	}

	m := Model{
		bundle:  b,
		byID:    byID,
		preview: viewport.New(80, 16),
	}
	m.rows = m.flatten(b.RootNode.ID, 0, nil)
	return m
}

// flatten walks the tree pre-order. Children are stored sorted by id, which
// keeps the walk deterministic.
func (m *Model) flatten(id string, depth int, acc []row) []row {
	n, ok := m.byID[id]
	if !ok {
		return acc
	}
	acc = append(acc, row{ID: n.ID, Depth: depth, Status: n.Status, Goal: n.Goal, Node: n})
	for _, child := range n.Children {
		acc = m.flatten(child, depth+1, acc)
	}
	return acc
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.refreshPreview()
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.rows)-1 {
				m.selected++
				m.refreshPreview()
			}
		case key.Matches(msg, keys.Output):
			m.showPreview = !m.showPreview
			m.refreshPreview()
		case key.Matches(msg, keys.PgUp):
			m.preview.HalfPageUp()
		case key.Matches(msg, keys.PgDown):
			m.preview.HalfPageDown()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.preview.Width = max(20, msg.Width-6)
		m.preview.Height = max(4, msg.Height/3)
	}
	return m, nil
}

// refreshPreview loads the selected node's output into the viewport.
func (m *Model) refreshPreview() {
	if !m.showPreview || m.selected >= len(m.rows) {
		return
	}
	out := m.outputFor(m.rows[m.selected].ID)
	if out == nil {
		m.preview.SetContent(dimStyle.Render("no output for this node"))
		return
	}
	m.preview.SetContent(renderMarkdown(out.Content))
	m.preview.GotoTop()
}

// outputFor finds the output emitted for a node; output paths embed the
// node's short id.
func (m *Model) outputFor(nodeID string) *schema.Output {
	short := strings.TrimPrefix(nodeID, "node_")
	if len(short) > 8 {
		short = short[:8]
	}
	for i := range m.bundle.Outputs {
		if strings.Contains(m.bundle.Outputs[i].Path, short) {
			return &m.bundle.Outputs[i]
		}
	}
	return nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	badge, ok := statusBadge[string(m.bundle.Status)]
	if !ok {
		badge = dimStyle
	}
	b.WriteString(headerStyle.Render("kiln "+m.bundle.ID) + " " + badge.Render(string(m.bundle.Status)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d nodes, %d terminal, %d blocked, %d question(s)",
		m.bundle.Stats.TotalNodes, m.bundle.Stats.TerminalNodes, m.bundle.Stats.BlockedNodes, m.bundle.Stats.QuestionCount)))
	b.WriteString("\n\n")

	goalWidth := m.width - 24
	if goalWidth < 20 {
		goalWidth = 60
	}
	for i, r := range m.rows {
		line := fmt.Sprintf("%s%s %s",
			strings.Repeat("  ", r.Depth),
			nodeGlyph(r.Status),
			runewidth.Truncate(r.Goal, goalWidth, "…"))

		style := nodeNormal
		switch r.Status {
		case schema.NodeTerminal:
			style = nodeTerminal
		case schema.NodeBlocked:
			style = nodeBlocked
		}
		if i == m.selected {
			b.WriteString(nodeSelected.Render("▸ " + line))
		} else {
			b.WriteString("  " + style.Render(line))
		}
		b.WriteString("\n")
	}

	if m.selected < len(m.rows) {
		b.WriteString("\n")
		b.WriteString(m.detailPanel(m.rows[m.selected].Node))
		b.WriteString("\n")
	}

	if m.showPreview {
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(m.preview.View()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  q: quit  ↑/↓: navigate  o: output preview"))
	return b.String()
}

func (m Model) detailPanel(n *schema.ContextNode) string {
	var d strings.Builder
	fmt.Fprintf(&d, "%s  entropy %d  density %d\n", n.ID, n.Entropy.EntropyScore, n.Density.DensityScore)
	fmt.Fprintf(&d, "refs %d  gaps %d  contradictions %d  branching %d\n",
		n.Entropy.UnresolvedRefs, n.Entropy.SchemaGaps, n.Entropy.ContradictionCount, n.Entropy.BranchingFactor)
	if n.SplittingQuestion != nil {
		fmt.Fprintf(&d, "split: %s\n", n.SplittingQuestion.Question.Text)
	}
	for _, q := range n.UnresolvedQuestions {
		fmt.Fprintf(&d, "? (%d) %s\n", q.Priority, q.Text)
	}
	return panelStyle.Render(strings.TrimRight(d.String(), "\n"))
}

func nodeGlyph(status schema.NodeStatus) string {
	switch status {
	case schema.NodeTerminal:
		return GlyphTerminal
	case schema.NodeBlocked:
		return GlyphBlocked
	case schema.NodeExpanding:
		return GlyphSplit
	default:
		return GlyphPending
	}
}
