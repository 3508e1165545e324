// Package tui implements a terminal inspector for kiln bundles: browse the
// decomposition tree, read per-node measurements, and preview outputs.
package tui

import "github.com/charmbracelet/lipgloss"

// Node status glyphs convey meaning without relying on color alone.
const (
	GlyphTerminal = "✓"
	GlyphBlocked  = "✗"
	GlyphSplit    = "◆"
	GlyphPending  = "○"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan).
			Padding(0, 1)

	statusBadge = map[string]lipgloss.Style{
		"complete":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(colorGreen).Padding(0, 1),
		"incomplete": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(colorYellow).Padding(0, 1),
		"error":      lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(colorRed).Padding(0, 1),
	}

	nodeNormal   = lipgloss.NewStyle().Foreground(colorWhite)
	nodeSelected = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	nodeTerminal = lipgloss.NewStyle().Foreground(colorGreen)
	nodeBlocked  = lipgloss.NewStyle().Foreground(colorRed)

	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)
