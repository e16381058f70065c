package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"quizrag/internal/retriever"
)

var (
	searchK    int
	searchMode string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the indexed passages closest to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		modeName := searchMode
		if modeName == "" {
			modeName = cfg.Retriever.Mode
		}
		mode, err := retriever.ParseMode(modeName)
		if err != nil {
			return err
		}
		k := intFlag(cmd, "top-k", searchK, cfg.Retriever.TopK)

		ctx, cancel := signalContext()
		defer cancel()

		res, err := eng.Search(ctx, strings.Join(args, " "), k, mode)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mode == retriever.Concatenated {
			fmt.Fprintln(out, res.Context)
			return nil
		}
		for i, h := range res.Hits {
			fmt.Fprintf(out, "%s %s\n%s\n\n", headingLabel(fmt.Sprintf("%d.", i+1)),
				mutedLabel(fmt.Sprintf("row %d, distance %.4f", h.Offset, h.Distance)), h.Payload)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of passages (default from config)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "ranked", "ranked or concatenated")
}
