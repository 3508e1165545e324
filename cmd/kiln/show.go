package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show [bundle.json]",
	Short: "Render a bundle report in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	var b schema.Bundle
	if err := readJSON(args[0], &b); err != nil {
		return err
	}

	md := bundleReport(&b)
	if showRaw {
		fmt.Print(md)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Print(md) // fall back to raw markdown
		return nil
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func bundleReport(b *schema.Bundle) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# Bundle %s\n\n", b.ID)
	fmt.Fprintf(&md, "- **status**: %s\n", b.Status)
	fmt.Fprintf(&md, "- **schema**: %s, kernel %s\n", b.SchemaVersion, b.KernelVersion)
	fmt.Fprintf(&md, "- **intent**: %s\n", b.SourceIntentHash)
	fmt.Fprintf(&md, "- **nodes**: %d total, %d terminal, %d blocked, depth %d\n",
		b.Stats.TotalNodes, b.Stats.TerminalNodes, b.Stats.BlockedNodes, b.Stats.MaxDepth)
	fmt.Fprintf(&md, "- **terminal means**: entropy %d, density %d\n\n",
		b.Stats.MeanTerminalEntropy, b.Stats.MeanTerminalDensity)

	if len(b.UnresolvedQuestions) > 0 {
		md.WriteString("## Unresolved questions\n\n")
		for _, q := range b.UnresolvedQuestions {
			fmt.Fprintf(&md, "- (%d) %s\n", q.Priority, q.Text)
		}
		md.WriteString("\n")
	}

	if len(b.TerminalNodes) > 0 {
		md.WriteString("## Terminal nodes\n\n")
		for _, n := range b.TerminalNodes {
			fmt.Fprintf(&md, "- `%s` entropy %d, density %d: %s\n",
				n.ID, n.Entropy.EntropyScore, n.Density.DensityScore, n.Goal)
		}
		md.WriteString("\n")
	}

	if len(b.Outputs) > 0 {
		md.WriteString("## Outputs\n\n")
		for _, o := range b.Outputs {
			fmt.Fprintf(&md, "- `%s` (%s, confidence %d)\n", o.Path, o.Type, o.Confidence)
		}
		md.WriteString("\n")
	}
	return md.String()
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print plain markdown without styling")
	rootCmd.AddCommand(showCmd)
}
