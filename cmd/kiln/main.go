package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
	"github.com/ormasoftchile/kiln/pkg/kernel/verify"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
// The .env file is gitignored so secrets never end up in source control.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file, that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Deterministic intent-to-artifact kernel",
	Long:  "kiln transforms an intent (goal + constraints) into a content-addressed bundle of verified artifacts: same input, byte-identical output, on any machine.",
}

// --- transform ---

var (
	transformOut       string
	transformConfig    string
	transformCanonical bool
)

var transformCmd = &cobra.Command{
	Use:   "transform [intent.yaml]",
	Short: "Transform an intent into a bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransform,
}

func runTransform(cmd *cobra.Command, args []string) error {
	intent, err := schema.LoadIntentFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	outcome := engine.Run(*intent, cfg)
	switch outcome.Kind {
	case engine.OutcomeRefuse:
		return fmt.Errorf("refused: %s", outcome.Reason)

	case engine.OutcomeClarify:
		fmt.Fprintf(os.Stderr, "Needs clarification: %d question(s)\n\n", len(outcome.Questions))
		for i, q := range outcome.Questions {
			fmt.Fprintf(os.Stderr, "  %d. [%s, gain %d] %s\n", i+1, q.ExpectedAnswerType, q.InformationGain, q.Text)
			if len(q.Options) > 0 {
				fmt.Fprintf(os.Stderr, "     options: %s\n", strings.Join(q.Options, ", "))
			}
		}
		fmt.Fprintln(os.Stderr, "\nAnswer with: kiln clarify", args[0])
		if err := emitBundle(outcome.Bundle); err != nil {
			return err
		}
		return fmt.Errorf("bundle is incomplete")

	default:
		return emitBundle(outcome.Bundle)
	}
}

func emitBundle(b *schema.Bundle) error {
	var data []byte
	if transformCanonical {
		v, err := canonical.ToValue(b)
		if err != nil {
			return err
		}
		s, err := canonical.Canonicalize(v)
		if err != nil {
			return err
		}
		data = []byte(s)
	} else {
		var err error
		data, err = json.MarshalIndent(b, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
	}

	if transformOut == "" || transformOut == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(transformOut), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(transformOut, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("✓ %s (%s, %d terminal node(s), %d output(s))\n",
		transformOut, b.Status, b.Stats.TerminalNodes, len(b.Outputs))
	return nil
}

func loadConfig() (schema.Config, error) {
	if transformConfig == "" {
		return schema.DefaultConfig(), nil
	}
	return schema.LoadConfigFile(transformConfig)
}

// --- verify ---

var (
	verifyKind          string
	verifySkipHashes    bool
	verifyEnforceLimits bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [artifact.json]",
	Short: "Verify an artifact against its rule catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cat := verify.ForKind(verifyKind)
	if cat == nil {
		return fmt.Errorf("unknown kind %q, want one of %s", verifyKind, strings.Join(verify.Kinds(), ", "))
	}

	raw, err := loadValueFile(args[0])
	if err != nil {
		return err
	}
	result := cat.Verify(raw, verify.Options{
		SkipHashVerification: verifySkipHashes,
		EnforceSizeLimits:    verifyEnforceLimits,
	})

	if !result.OK {
		fmt.Fprintf(os.Stderr, "Verification failed: %d violation(s)\n\n", len(result.Violations))
		for i, v := range result.Violations {
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i+1, v.RuleID, v.Message)
			if v.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", v.Path)
			}
		}
		return fmt.Errorf("%s verification failed with %d violation(s)", result.Kind, len(result.Violations))
	}

	fmt.Printf("✓ %s verified (%s)\n", args[0], result.ContentHash)
	for _, k := range sortedKeys(result.Summary) {
		fmt.Printf("  %s: %d\n", k, result.Summary[k])
	}
	return nil
}

// --- hash ---

var hashCmd = &cobra.Command{
	Use:   "hash [file.json|file.yaml]",
	Short: "Compute the canonical content hash of a JSON or YAML value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := loadValueFile(args[0])
		if err != nil {
			return err
		}
		hash, err := canonical.ContentHash(raw)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

// --- schema ---

var schemaExportOut string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Artifact JSON Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export [kind]",
	Short: "Export the JSON Schema for an artifact kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema(args[0])
		if err != nil {
			return err
		}
		if schemaExportOut == "" || schemaExportOut == "-" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(schemaExportOut, append(data, '\n'), 0o644); err != nil {
			return err
		}
		fmt.Printf("✓ wrote %s\n", schemaExportOut)
		return nil
	},
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kiln %s (%s)\n", version, commit)
		fmt.Printf("schema %s, kernel %s\n", schema.SchemaVersion, schema.KernelVersion)
	},
}

// loadValueFile reads a JSON or YAML file into the generic value space.
func loadValueFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return canonical.Parse(string(data))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	transformCmd.Flags().StringVarP(&transformOut, "out", "o", "", "write the bundle to this path (default stdout)")
	transformCmd.Flags().StringVar(&transformConfig, "config", "", "kernel config YAML (defaults built in)")
	transformCmd.Flags().BoolVar(&transformCanonical, "canonical", false, "emit the canonical byte-stable form instead of pretty JSON")

	verifyCmd.Flags().StringVarP(&verifyKind, "kind", "k", "bundle", "artifact kind: "+strings.Join(verify.Kinds(), ", "))
	verifyCmd.Flags().BoolVar(&verifySkipHashes, "skip-hashes", false, "skip content-hash recomputation")
	verifyCmd.Flags().BoolVar(&verifyEnforceLimits, "enforce-limits", false, "enable size-limit rules")

	schemaExportCmd.Flags().StringVarP(&schemaExportOut, "out", "o", "", "write to this path (default stdout)")
	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
