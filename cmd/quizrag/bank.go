package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizrag/internal/quiz"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect the question bank",
}

var bankResourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List ingested resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		resources, err := eng.Resources(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCHUNKS\tINGESTED\tPATH")
		for _, r := range resources {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Name, r.Chunks, r.CreatedAt.Format("2006-01-02 15:04"), r.Path)
		}
		return w.Flush()
	},
}

var bankLimit int

var bankQuestionsCmd = &cobra.Command{
	Use:   "questions <resource>",
	Short: "List stored questions of a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		stored, err := eng.Questions(cmd.Context(), args[0], bankLimit)
		if err != nil {
			return err
		}
		qs := make([]quiz.GeneratedQuestion, len(stored))
		for i, sq := range stored {
			qs[i] = sq.Question
		}
		renderQuestions(cmd.OutOrStdout(), qs)
		return nil
	},
}

func init() {
	bankQuestionsCmd.Flags().IntVar(&bankLimit, "limit", 0, "maximum questions to show (0 for all)")
	bankCmd.AddCommand(bankResourcesCmd)
	bankCmd.AddCommand(bankQuestionsCmd)
}
