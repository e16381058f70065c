// Package retriever turns a query into grounding context by embedding it and
// searching the vector index.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"quizrag/internal/ai"
	"quizrag/internal/embedding"
	"quizrag/internal/index"
	"quizrag/internal/logging"
)

// ErrNoRelevantContext is returned when a retrieval yields no hits.
var ErrNoRelevantContext = errors.New("retriever: no relevant context")

// Mode selects the shape of a retrieval result.
type Mode int

const (
	// Ranked returns the hits in ascending distance order.
	Ranked Mode = iota
	// Concatenated joins the hit payloads with a single space.
	Concatenated
)

func (m Mode) String() string {
	switch m {
	case Ranked:
		return "ranked"
	case Concatenated:
		return "concatenated"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a config or flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ranked":
		return Ranked, nil
	case "concatenated", "concat":
		return Concatenated, nil
	default:
		return Ranked, fmt.Errorf("unknown retrieval mode %q", s)
	}
}

// Searcher is the index capability the retriever needs. *index.Flat satisfies it.
type Searcher interface {
	Search(query []float32, k int) ([]index.Hit, error)
}

// Result holds the hits of a retrieval. Context is set in Concatenated mode.
type Result struct {
	Mode    Mode
	Hits    []index.Hit
	Context string
}

// Retriever embeds queries and searches an index.
type Retriever struct {
	embedder embedding.Embedder
	searcher Searcher
	logger   *slog.Logger
}

// New creates a Retriever.
func New(embedder embedding.Embedder, searcher Searcher, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		logger:   logging.Component(logger, "retriever"),
	}
}

// Retrieve embeds query and returns up to topK hits. Zero hits yields ErrNoRelevantContext.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, mode Mode) (*Result, error) {
	if topK <= 0 {
		return nil, ErrNoRelevantContext
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, &ai.ProviderError{Provider: r.embedder.Name(), Op: "embed",
			Err: &embedding.UnexpectedOutputError{Provider: r.embedder.Name(), Want: 1, Got: len(vecs)}}
	}

	hits, err := r.searcher.Search(vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("retriever: search: %w", err)
	}
	r.logger.Debug("search completed", "k", topK, "hits", len(hits), "mode", mode.String())
	if len(hits) == 0 {
		return nil, ErrNoRelevantContext
	}

	res := &Result{Mode: mode, Hits: hits}
	if mode == Concatenated {
		res.Context = Join(hits)
	}
	return res, nil
}

// Join concatenates hit payloads in order with a single space.
func Join(hits []index.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Payload
	}
	return strings.Join(parts, " ")
}
