// Package ingest chunks document text, embeds the chunks with a bounded worker pool
// and appends them to a vector index in chunk order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"quizrag/internal/chunker"
	"quizrag/internal/embedding"
	"quizrag/internal/index"
	"quizrag/internal/logging"
)

// ErrNothingToIndex is returned when the text yields no chunks.
var ErrNothingToIndex = errors.New("ingest: document has no text to index")

// IndexResult summarizes one ingestion run.
type IndexResult struct {
	StartTime  time.Time     `json:"start_time"`
	Duration   time.Duration `json:"duration"`
	Chunks     int           `json:"chunks"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"` // chunks already stored, not embedded again
	Dimension  int           `json:"dimension"`
	FirstRow   int           `json:"first_row"`
	IndexSize  int           `json:"index_size"`
}

// Pipeline turns text into index rows.
type Pipeline struct {
	windows  *chunker.Windows
	embedder embedding.Embedder
	workers  int
	opts     []index.Option
	logger   *slog.Logger
}

// Config configures a Pipeline.
type Config struct {
	Windows  *chunker.Windows
	Embedder embedding.Embedder
	Workers  int            // concurrent embedding calls, default 4
	IndexOpt []index.Option // applied when Run creates a new index
	Logger   *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		windows:  cfg.Windows,
		embedder: cfg.Embedder,
		workers:  workers,
		opts:     cfg.IndexOpt,
		logger:   logging.Component(cfg.Logger, "ingest"),
	}
}

// Run chunks and embeds text and appends every new chunk to idx. Chunks whose
// text is already stored, or repeats earlier in the same text, are skipped. When
// idx is nil a new index is created with the dimension of the first embedding.
// Nothing is added unless every chunk embeds successfully. The caller persists
// the index.
func (p *Pipeline) Run(ctx context.Context, idx *index.Flat, text string) (*IndexResult, *index.Flat, error) {
	result := &IndexResult{StartTime: time.Now()}

	chunks := p.windows.Chunk(text)
	if len(chunks) == 0 {
		return nil, idx, ErrNothingToIndex
	}
	result.Chunks = len(chunks)

	chunks = p.fresh(idx, chunks)
	result.Duplicates = result.Chunks - len(chunks)
	if len(chunks) == 0 {
		result.Dimension = idx.Dimension()
		result.FirstRow = idx.Len()
		result.IndexSize = idx.Len()
		result.Duration = time.Since(result.StartTime)
		p.logger.Info("no new chunks", "chunks", result.Chunks, "index_size", result.IndexSize)
		return result, idx, nil
	}

	vectors, err := p.embed(ctx, chunks)
	if err != nil {
		return nil, idx, err
	}

	dim := len(vectors[0])
	if idx == nil {
		idx, err = index.NewFlat(dim, p.opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: %w", err)
		}
	}
	for i, v := range vectors {
		if len(v) != idx.Dimension() {
			return nil, idx, fmt.Errorf("ingest: chunk %d: %w", i,
				&index.DimensionMismatchError{Expected: idx.Dimension(), Actual: len(v)})
		}
	}

	// Adds are applied by this goroutine only, in ordinal order.
	result.FirstRow = idx.Len()
	for i, c := range chunks {
		if _, err := idx.Add(vectors[i], c.Text); err != nil {
			return nil, idx, fmt.Errorf("ingest: add chunk %d: %w", c.Ordinal, err)
		}
	}

	result.Added = len(chunks)
	result.Dimension = idx.Dimension()
	result.IndexSize = idx.Len()
	result.Duration = time.Since(result.StartTime)
	p.logger.Info("chunks indexed", "chunks", result.Chunks, "added", result.Added,
		"duplicates", result.Duplicates, "dimension", result.Dimension,
		"index_size", result.IndexSize, "duration", result.Duration)
	return result, idx, nil
}

// fresh drops chunks already stored in idx and repeats within chunks.
func (p *Pipeline) fresh(idx *index.Flat, chunks []chunker.Chunk) []chunker.Chunk {
	out := make([]chunker.Chunk, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.Text]; dup {
			continue
		}
		seen[c.Text] = struct{}{}
		if idx != nil && idx.Contains(c.Text) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Pipeline) embed(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := p.embedder.Embed(gctx, []string{c.Text})
			if err != nil {
				return fmt.Errorf("ingest: embed chunk %d: %w", c.Ordinal, err)
			}
			if len(out) != 1 {
				return fmt.Errorf("ingest: embed chunk %d: %w", c.Ordinal,
					&embedding.UnexpectedOutputError{Provider: p.embedder.Name(), Want: 1, Got: len(out)})
			}
			vectors[i] = out[0]
			p.logger.Debug("chunk embedded", "ordinal", c.Ordinal, "dimension", len(out[0]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
