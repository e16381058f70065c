package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizrag/internal/ai"
	"quizrag/internal/index"
)

// staticEmbedder maps known texts to fixed vectors.
type staticEmbedder struct {
	vectors map[string][]float32
	err     error
	extra   bool
}

func (s *staticEmbedder) Name() string { return "static" }

func (s *staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, s.vectors[t])
	}
	if s.extra {
		out = append(out, []float32{0, 0})
	}
	return out, nil
}

func newIndex(t *testing.T) *index.Flat {
	t.Helper()
	idx, err := index.NewFlat(2)
	require.NoError(t, err)
	for _, e := range []struct {
		v []float32
		p string
	}{
		{[]float32{0, 0}, "origin"},
		{[]float32{1, 1}, "near"},
		{[]float32{5, 5}, "far"},
	} {
		_, err := idx.Add(e.v, e.p)
		require.NoError(t, err)
	}
	return idx
}

func TestRetrieve_Ranked(t *testing.T) {
	emb := &staticEmbedder{vectors: map[string][]float32{"q": {0, 0}}}
	r := New(emb, newIndex(t), nil)

	res, err := r.Retrieve(context.Background(), "q", 2, Ranked)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "origin", res.Hits[0].Payload)
	assert.Equal(t, float32(2), res.Hits[1].Distance)
	assert.Empty(t, res.Context)
}

func TestRetrieve_Concatenated(t *testing.T) {
	emb := &staticEmbedder{vectors: map[string][]float32{"q": {4, 4}}}
	r := New(emb, newIndex(t), nil)

	res, err := r.Retrieve(context.Background(), "q", 3, Concatenated)
	require.NoError(t, err)
	assert.Equal(t, "far near origin", res.Context)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	idx, err := index.NewFlat(2)
	require.NoError(t, err)
	r := New(&staticEmbedder{vectors: map[string][]float32{"q": {0, 0}}}, idx, nil)

	_, err = r.Retrieve(context.Background(), "q", 3, Concatenated)
	assert.ErrorIs(t, err, ErrNoRelevantContext)
}

func TestRetrieve_NonPositiveK(t *testing.T) {
	r := New(&staticEmbedder{vectors: map[string][]float32{"q": {0, 0}}}, newIndex(t), nil)
	_, err := r.Retrieve(context.Background(), "q", 0, Ranked)
	assert.ErrorIs(t, err, ErrNoRelevantContext)
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	r := New(&staticEmbedder{vectors: map[string][]float32{"q": {0, 0, 0}}}, newIndex(t), nil)
	_, err := r.Retrieve(context.Background(), "q", 1, Ranked)

	var dm *index.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.NotErrorIs(t, err, ErrNoRelevantContext)
}

func TestRetrieve_ProviderFailure(t *testing.T) {
	perr := &ai.ProviderError{Provider: "static", Op: "embed", Err: errors.New("down")}
	r := New(&staticEmbedder{err: perr}, newIndex(t), nil)

	_, err := r.Retrieve(context.Background(), "q", 1, Ranked)
	var pe *ai.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.NotErrorIs(t, err, ErrNoRelevantContext)
}

func TestRetrieve_WrongVectorCount(t *testing.T) {
	emb := &staticEmbedder{vectors: map[string][]float32{"q": {0, 0}}, extra: true}
	r := New(emb, newIndex(t), nil)

	_, err := r.Retrieve(context.Background(), "q", 1, Ranked)
	var pe *ai.ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Concatenated")
	require.NoError(t, err)
	assert.Equal(t, Concatenated, m)

	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
}
