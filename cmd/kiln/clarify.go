package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	"github.com/ormasoftchile/kiln/pkg/kernel/schema"
	"github.com/ormasoftchile/kiln/pkg/model"
)

var (
	clarifyOut         string
	clarifySaveIntent  string
	clarifyMaxRounds   int
	clarifyUseModel    bool
	clarifySessionPath string
)

var clarifyCmd = &cobra.Command{
	Use:   "clarify [intent.yaml]",
	Short: "Interactively answer the kernel's questions until the intent converges",
	Args:  cobra.ExactArgs(1),
	RunE:  runClarify,
}

// quotedRe pulls the unresolved marker out of a replacement question.
var quotedRe = regexp.MustCompile(`"([^"]+)"`)

func runClarify(cmd *cobra.Command, args []string) error {
	intent, err := schema.LoadIntentFile(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var answerer func(schema.Question) (string, error)
	var recorder *model.Recorder
	if clarifyUseModel {
		client, err := model.NewOpenAIClientFromEnv()
		if err != nil {
			return err
		}
		recorder = model.NewRecorder(model.NewResilient(client, 3, time.Second), false)
		answerer = func(q schema.Question) (string, error) {
			return askModel(cmd.Context(), recorder, q)
		}
	} else {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "> ",
			InterruptPrompt: "^C",
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		answerer = func(q schema.Question) (string, error) {
			return ask(rl, q)
		}
	}
	defer func() {
		if recorder != nil && clarifySessionPath != "" {
			if err := writeSession(recorder, clarifySessionPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: write session: %v\n", err)
			}
		}
	}()

	for round := 0; round < clarifyMaxRounds; round++ {
		outcome := engine.Run(*intent, cfg)
		switch outcome.Kind {
		case engine.OutcomeRefuse:
			return fmt.Errorf("refused: %s", outcome.Reason)

		case engine.OutcomeBundle:
			fmt.Printf("✓ converged after %d round(s)\n", round)
			if clarifySaveIntent != "" {
				if err := saveIntent(intent, clarifySaveIntent); err != nil {
					return err
				}
			}
			transformOut = clarifyOut
			return emitBundle(outcome.Bundle)
		}

		fmt.Printf("Round %d: %d question(s)\n", round+1, len(outcome.Questions))
		for _, q := range outcome.Questions {
			answer, err := answerer(q)
			if err != nil {
				return err
			}
			if answer == "" {
				continue // unanswered questions carry to the next round
			}
			applyAnswer(intent, q, answer)
		}
	}
	return fmt.Errorf("still unconverged after %d rounds", clarifyMaxRounds)
}

func ask(rl *readline.Instance, q schema.Question) (string, error) {
	fmt.Printf("\n%s\n", q.Text)
	fmt.Printf("  why: %s\n", q.WhyNeeded)
	if len(q.Options) > 0 {
		fmt.Printf("  options: %s\n", strings.Join(q.Options, ", "))
		items := make([]readline.PrefixCompleterInterface, 0, len(q.Options))
		for _, opt := range q.Options {
			items = append(items, readline.PcItem(opt))
		}
		rl.Config.AutoComplete = readline.NewPrefixCompleter(items...)
	} else {
		rl.Config.AutoComplete = nil
	}

	line, err := rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return "", fmt.Errorf("aborted")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// applyAnswer folds an answer back into the intent. A replacement question
// substitutes the unresolved marker in place; anything else lands as a new
// constraint carrying the answer.
func applyAnswer(intent *schema.Intent, q schema.Question, answer string) {
	if strings.HasPrefix(q.Text, "What should replace") {
		if m := quotedRe.FindStringSubmatch(q.Text); m != nil {
			marker := m[1]
			intent.Goal = replaceFold(intent.Goal, marker, answer)
			for i, c := range intent.Constraints {
				intent.Constraints[i] = replaceFold(c, marker, answer)
			}
			return
		}
	}
	intent.Constraints = append(intent.Constraints, answer)
}

// replaceFold replaces marker case-insensitively; markers are detected on
// lowercased text but intents keep their original casing.
func replaceFold(s, marker, replacement string) string {
	lower := strings.ToLower(s)
	marker = strings.ToLower(marker)
	var b strings.Builder
	for {
		i := strings.Index(lower, marker)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(replacement)
		s = s[i+len(marker):]
		lower = lower[i+len(marker):]
	}
}

// askModel lets the configured model answer a question. Nondeterminism stays
// on this side of the fence: the kernel only ever sees the resulting
// constraint text.
func askModel(ctx context.Context, client model.Client, q schema.Question) (string, error) {
	prompt := q.Text
	if len(q.Options) > 0 {
		prompt += "\nAnswer with exactly one of: " + strings.Join(q.Options, ", ")
	} else {
		prompt += "\nAnswer with a single short phrase, no explanation."
	}
	reply, err := client.Complete(ctx,
		"You are resolving ambiguities in a software intent. Answer tersely.",
		prompt)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(reply.Content)
	fmt.Printf("\n%s\n  model: %s\n", q.Text, answer)
	return answer, nil
}

func writeSession(recorder *model.Recorder, path string) error {
	data, err := json.MarshalIndent(recorder.Session(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Printf("✓ wrote %s\n", path)
	return nil
}

func saveIntent(intent *schema.Intent, path string) error {
	data, err := yaml.Marshal(intent)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("✓ wrote %s\n", path)
	return nil
}

func init() {
	clarifyCmd.Flags().StringVarP(&clarifyOut, "out", "o", "", "write the final bundle to this path (default stdout)")
	clarifyCmd.Flags().StringVar(&clarifySaveIntent, "save-intent", "", "write the augmented intent YAML to this path")
	clarifyCmd.Flags().IntVar(&clarifyMaxRounds, "max-rounds", 5, "give up after this many question rounds")
	clarifyCmd.Flags().BoolVar(&clarifyUseModel, "model", false, "answer questions with the configured model instead of prompting")
	clarifyCmd.Flags().StringVar(&clarifySessionPath, "session", "", "write the recorded model session to this path (with --model)")
	clarifyCmd.Flags().StringVar(&transformConfig, "config", "", "kernel config YAML (defaults built in)")
	rootCmd.AddCommand(clarifyCmd)
}
