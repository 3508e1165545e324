package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
	"github.com/ormasoftchile/kiln/pkg/snapshot"
)

var (
	snapshotOut   string
	snapshotRepo  bool
	snapshotLabel string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [dir]",
	Short: "Capture a content-addressed snapshot of a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	var artifact any
	var tree string
	if snapshotRepo {
		rs, err := snapshot.CaptureRepoState(root, snapshotLabel)
		if err != nil {
			return err
		}
		artifact, tree = rs, rs.TreeHash
	} else {
		ws, err := snapshot.CaptureWorkspace(root)
		if err != nil {
			return err
		}
		artifact, tree = ws, ws.TreeHash
	}

	if err := writeJSON(snapshotOut, artifact); err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", tree)
	return nil
}

// --- diff ---

var diffOut string

var diffCmd = &cobra.Command{
	Use:   "diff [base.json] [target.json]",
	Short: "Compute the patch between two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	base, err := loadSnapshotFile(args[0])
	if err != nil {
		return err
	}
	target, err := loadSnapshotFile(args[1])
	if err != nil {
		return err
	}

	patch, err := snapshot.Diff(base.Files, target.Files, base.TreeHash)
	if err != nil {
		return err
	}
	if err := writeJSON(diffOut, patch); err != nil {
		return err
	}
	fmt.Printf("✓ %s (%d op(s))\n", patch.PatchID, len(patch.Ops))
	return nil
}

// --- apply ---

var applyOut string

var applyCmd = &cobra.Command{
	Use:   "apply [patch.json] [base.json]",
	Short: "Apply a patch to a snapshot and report the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	var patch schema.Patch
	if err := readJSON(args[0], &patch); err != nil {
		return err
	}
	base, err := loadSnapshotFile(args[1])
	if err != nil {
		return err
	}

	result, _, err := snapshot.Apply(&patch, base.Files, base.TreeHash)
	if err != nil {
		return err
	}
	if err := writeJSON(applyOut, result); err != nil {
		return err
	}

	if len(result.Conflicts) > 0 {
		fmt.Fprintf(os.Stderr, "Apply left %d conflict(s):\n", len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", c.Path, c.Reason)
		}
		return fmt.Errorf("apply failed with %d conflict(s)", len(result.Conflicts))
	}
	fmt.Printf("✓ applied %d op(s), result tree %s\n", result.Applied, result.ResultTreeHash)
	return nil
}

// loadSnapshotFile accepts either artifact kind; both carry files+tree_hash.
func loadSnapshotFile(path string) (*schema.WorkspaceSnapshot, error) {
	var ws schema.WorkspaceSnapshot
	if err := readJSON(path, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "write the snapshot to this path (default stdout)")
	snapshotCmd.Flags().BoolVar(&snapshotRepo, "repo", false, "snapshot git-tracked files only")
	snapshotCmd.Flags().StringVar(&snapshotLabel, "label", "HEAD", "label for --repo snapshots")

	diffCmd.Flags().StringVarP(&diffOut, "out", "o", "", "write the patch to this path (default stdout)")
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "write the apply result to this path (default stdout)")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(applyCmd)
}
