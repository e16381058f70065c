package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"quizrag/internal/quiz"
)

var (
	quizType     string
	quizCategory string
	quizLevel    string
	quizCount    int
	quizContext  string
	quizResource string
	quizJSON     bool
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Generate quiz questions grounded in the index",
	Long: `Retrieve passages for --context, ask the generation provider for questions
of the requested type and Bloom level, and validate them against the type's
schema. With --resource the questions are stored in the question bank.`,
	Example: `  quizrag quiz --type fill_blank --category Biology --level C1 -n 3 --context "cell organelles"
  quizrag quiz --type multiple_choice --category History --level C4 --context "causes of WW1" --resource history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		n := intFlag(cmd, "num", quizCount, cfg.Quiz.NumQuestions)
		spec, err := quiz.NewSpec(quizType, quizCategory, quizLevel, n, quizContext)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		res, err := eng.Quiz(ctx, spec, quizResource)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if quizJSON {
			items, err := questionsJSON(res.Questions)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}
		renderQuestions(out, res.Questions)
		if len(res.IDs) > 0 {
			fmt.Fprintf(out, "%s %d questions under %q\n", okLabel("saved"), len(res.IDs), quizResource)
		}
		return nil
	},
}

// intFlag returns the flag value when it was given on the command line, even
// if zero, and def otherwise.
func intFlag(cmd *cobra.Command, name string, val, def int) int {
	if cmd.Flags().Changed(name) {
		return val
	}
	return def
}

// questionsJSON adds a "type" field to each encoded question.
func questionsJSON(qs []quiz.GeneratedQuestion) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(qs))
	for _, q := range qs {
		b, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encode question: %w", err)
		}
		var item map[string]any
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, fmt.Errorf("encode question: %w", err)
		}
		item["type"] = q.Type().String()
		items = append(items, item)
	}
	return items, nil
}

func init() {
	quizCmd.Flags().StringVarP(&quizType, "type", "t", "multiple_choice", "multiple_choice, true_false or fill_blank")
	quizCmd.Flags().StringVar(&quizCategory, "category", "", "subject category")
	quizCmd.Flags().StringVarP(&quizLevel, "level", "l", "C1", "Bloom level C1..C6")
	quizCmd.Flags().IntVarP(&quizCount, "num", "n", 0, "number of questions, 1..10 (default from config)")
	quizCmd.Flags().StringVarP(&quizContext, "context", "c", "", "topic used to retrieve grounding passages")
	quizCmd.Flags().StringVar(&quizResource, "resource", "", "store the questions under this ingested resource")
	quizCmd.Flags().BoolVar(&quizJSON, "json", false, "print questions as JSON")
	quizCmd.MarkFlagRequired("category")
	quizCmd.MarkFlagRequired("context")
}
