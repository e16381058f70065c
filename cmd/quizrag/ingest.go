package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-url>...",
	Short: "Chunk, embed and index documents",
	Long: `Load .txt, .md or .html files (or http/https URLs), split them into
overlapping chunks, embed every chunk and append them to the index. The index
is saved after each document that was indexed completely.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, cancel := signalContext()
		defer cancel()

		out := cmd.OutOrStdout()
		for _, src := range args {
			res, err := eng.Ingest(ctx, src)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", src, err)
			}
			if ingestJSON {
				if err := json.NewEncoder(out).Encode(res); err != nil {
					return err
				}
				continue
			}
			if res.Unchanged {
				fmt.Fprintf(out, "%s %s: already indexed (index size %d)\n",
					mutedLabel("unchanged"), res.Document, res.IndexSize)
				continue
			}
			fmt.Fprintf(out, "%s %s: %d chunks, %d new (dimension %d, index size %d) in %v\n",
				okLabel("indexed"), res.Document, res.Chunks, res.Added, res.Dimension, res.IndexSize,
				res.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "print results as JSON")
}
