package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
)

var (
	goldenFile   string
	goldenUpdate bool
)

// golden checks the determinism contract end to end: two fresh transforms
// must canonicalize byte-identically, and the result must match the pinned
// golden file if one exists.
var goldenCmd = &cobra.Command{
	Use:   "golden [intent.yaml]",
	Short: "Check transform determinism against a golden bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runGolden,
}

func runGolden(cmd *cobra.Command, args []string) error {
	intent, err := schema.LoadIntentFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	first, err := transformCanonicalString(*intent, cfg)
	if err != nil {
		return err
	}
	second, err := transformCanonicalString(*intent, cfg)
	if err != nil {
		return err
	}
	if first != second {
		return fmt.Errorf("two transforms of the same intent disagree")
	}
	fmt.Println("✓ repeated transforms are byte-identical")

	if goldenFile == "" {
		return nil
	}
	if goldenUpdate {
		if err := os.WriteFile(goldenFile, []byte(first+"\n"), 0o644); err != nil {
			return err
		}
		fmt.Printf("✓ wrote %s\n", goldenFile)
		return nil
	}

	want, err := os.ReadFile(goldenFile)
	if err != nil {
		return fmt.Errorf("read golden (use --update to create it): %w", err)
	}
	if string(want) != first+"\n" {
		return fmt.Errorf("bundle differs from %s (re-run with --update if the change is intended)", goldenFile)
	}
	fmt.Printf("✓ matches %s\n", goldenFile)
	return nil
}

func transformCanonicalString(intent schema.Intent, cfg schema.Config) (string, error) {
	b, err := engine.Transform(intent, cfg)
	if err != nil {
		return "", err
	}
	v, err := canonical.ToValue(b)
	if err != nil {
		return "", err
	}
	return canonical.Canonicalize(v)
}

func init() {
	goldenCmd.Flags().StringVar(&goldenFile, "golden", "", "golden canonical bundle file to compare against")
	goldenCmd.Flags().BoolVar(&goldenUpdate, "update", false, "rewrite the golden file from this run")
	goldenCmd.Flags().StringVar(&transformConfig, "config", "", "kernel config YAML (defaults built in)")
	rootCmd.AddCommand(goldenCmd)
}
