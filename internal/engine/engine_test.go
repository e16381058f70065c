package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizrag/internal/ai"
	"quizrag/internal/config"
	"quizrag/internal/document"
	"quizrag/internal/index"
	"quizrag/internal/questionbank"
	"quizrag/internal/quiz"
	"quizrag/internal/retriever"
)

const cellText = `The mitochondria is the powerhouse of the cell. It produces ATP through cellular respiration.

The nucleus stores the genetic material of the cell and controls its activities.

Ribosomes build proteins by translating messenger RNA.`

const threeFillBlanks = `{"questions":[
	{"question":"The ___ is the powerhouse of the cell.","answer":"mitochondria","category":"Biology","level":"C1"},
	{"question":"The nucleus stores the ___ material of the cell.","answer":"genetic","category":"Biology","level":"C1"},
	{"question":"Ribosomes build ___ by translating messenger RNA.","answer":"proteins","category":"Biology","level":"C1"}
]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.SecretsFile = ""
	cfg.AI.Provider = "mock"
	cfg.AI.RetryBackoffMs = 1
	cfg.Embedding.Provider = "hashing"
	cfg.Embedding.Dimensions = 64
	cfg.Index.Path = filepath.Join(dir, "index")
	cfg.Database.Path = filepath.Join(dir, "bank.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
	return p
}

func TestEngine_IngestAndSearch(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, cfg)
	ctx := context.Background()

	res, err := e.Ingest(ctx, writeDoc(t, "cells.txt", cellText))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, "cells", res.Document)
	require.NotNil(t, res.Resource)
	assert.Equal(t, "cells", res.Resource.Name)
	assert.True(t, index.Exists(cfg.Index.Path))

	hits, err := e.Search(ctx, "powerhouse of the cell", 2, retriever.Ranked)
	require.NoError(t, err)
	require.Len(t, hits.Hits, 2)
	assert.Contains(t, hits.Hits[0].Payload, "mitochondria")
}

func TestEngine_ReopenSeesSavedIndex(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := newEngine(t, cfg)
	_, err := first.Ingest(ctx, writeDoc(t, "cells.txt", cellText))
	require.NoError(t, err)

	second := newEngine(t, cfg)
	require.NoError(t, second.OpenIndex(ctx))
	assert.Equal(t, 3, second.IndexLen())

	// A second ingestion appends to the stored rows.
	res, err := second.Ingest(ctx, writeDoc(t, "more.md", "Chloroplasts capture light energy."))
	require.NoError(t, err)
	assert.Equal(t, 3, res.FirstRow)
	assert.Equal(t, 4, res.IndexSize)
}

func TestEngine_ReingestUnchangedSkips(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	path := writeDoc(t, "cells.txt", cellText)

	first, err := newEngine(t, cfg).Ingest(ctx, path)
	require.NoError(t, err)
	assert.False(t, first.Unchanged)

	// Same engine and a fresh one reading the saved snapshot both skip.
	e := newEngine(t, cfg)
	again, err := e.Ingest(ctx, path)
	require.NoError(t, err)
	assert.True(t, again.Unchanged)
	assert.Equal(t, first.Digest, again.Digest)
	assert.Equal(t, 3, again.IndexSize)
	require.NotNil(t, again.Resource)
	assert.Equal(t, "cells", again.Resource.Name)

	_, err = e.Ingest(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, e.IndexLen())

	hits, err := e.Search(ctx, "powerhouse of the cell", 2, retriever.Ranked)
	require.NoError(t, err)
	require.Len(t, hits.Hits, 2)
	assert.NotEqual(t, hits.Hits[0].Payload, hits.Hits[1].Payload)

	// Edited content is indexed again.
	require.NoError(t, os.WriteFile(path, []byte(cellText+"\n\nLysosomes digest waste."), 0o644))
	changed, err := e.Ingest(ctx, path)
	require.NoError(t, err)
	assert.False(t, changed.Unchanged)
	assert.Equal(t, 3, changed.Duplicates)
	assert.Equal(t, 1, changed.Added)
	assert.Equal(t, 4, changed.IndexSize)
}

func TestEngine_OpenIndexDimensionMismatch(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	_, err := newEngine(t, cfg).Ingest(ctx, writeDoc(t, "cells.txt", cellText))
	require.NoError(t, err)

	cfg.Embedding.Dimensions = 32
	err = newEngine(t, cfg).OpenIndex(ctx)
	var perr *index.PersistenceError
	require.ErrorAs(t, err, &perr)
	var derr *index.DimensionMismatchError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 32, derr.Expected)
	assert.Equal(t, 64, derr.Actual)
}

func TestEngine_SearchWithoutIndex(t *testing.T) {
	e := newEngine(t, testConfig(t))
	_, err := e.Search(context.Background(), "anything", 3, retriever.Concatenated)
	assert.ErrorIs(t, err, retriever.ErrNoRelevantContext)
}

func TestEngine_QuizSavesToBank(t *testing.T) {
	cfg := testConfig(t)
	provider := ai.NewMockProvider("mock")
	provider.AddToolCall(quiz.ToolName, threeFillBlanks)
	e := newEngine(t, cfg, WithProvider(provider))
	ctx := context.Background()

	_, err := e.Ingest(ctx, writeDoc(t, "cells.txt", cellText))
	require.NoError(t, err)

	spec := quiz.Spec{Type: quiz.FillBlank, Category: "Biology", Level: quiz.C1, NumQuestions: 3,
		Context: "powerhouse of the cell"}
	res, err := e.Quiz(ctx, spec, "cells")
	require.NoError(t, err)
	require.Len(t, res.Questions, 3)
	require.Len(t, res.IDs, 3)
	assert.Equal(t, 1, res.Attempts)

	stored, err := e.Questions(ctx, "cells", 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	fb, ok := stored[0].Question.(*quiz.FillBlankQuestion)
	require.True(t, ok)
	assert.Equal(t, "mitochondria", fb.Answer)
}

func TestEngine_QuizUnknownResource(t *testing.T) {
	provider := ai.NewMockProvider("mock")
	e := newEngine(t, testConfig(t), WithProvider(provider))

	spec := quiz.Spec{Type: quiz.TrueFalse, Category: "Biology", Level: quiz.C2, NumQuestions: 1, Context: "cells"}
	_, err := e.Quiz(context.Background(), spec, "missing")
	assert.ErrorIs(t, err, questionbank.ErrResourceNotFound)
	assert.Equal(t, 0, provider.GetCallCount())
}

func TestEngine_QuizWithoutResourceSkipsBank(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Enabled = false
	provider := ai.NewMockProvider("mock")
	provider.AddToolCall(quiz.ToolName, threeFillBlanks)
	e := newEngine(t, cfg, WithProvider(provider))
	ctx := context.Background()

	_, err := e.Ingest(ctx, writeDoc(t, "cells.txt", cellText))
	require.NoError(t, err)

	spec := quiz.Spec{Type: quiz.FillBlank, Category: "Biology", Level: quiz.C1, NumQuestions: 3, Context: "cell"}
	res, err := e.Quiz(ctx, spec, "")
	require.NoError(t, err)
	assert.Empty(t, res.IDs)

	_, err = e.Resources(ctx)
	assert.ErrorIs(t, err, ErrNoQuestionBank)
}

func TestEngine_IngestURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><nav>menu</nav><h1>Cells</h1><p>The mitochondria is the powerhouse of the cell.</p></body></html>`))
	}))
	defer srv.Close()

	e := newEngine(t, testConfig(t), WithHTTPClient(srv.Client()))
	res, err := e.Ingest(context.Background(), srv.URL+"/biology/cells")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)

	resources, err := e.Resources(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 1)
}

func TestEngine_IngestFailureSavesNothing(t *testing.T) {
	cfg := testConfig(t)
	e := newEngine(t, cfg)

	_, err := e.Ingest(context.Background(), writeDoc(t, "slides.docx", "binary"))
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)

	_, err = e.Ingest(context.Background(), writeDoc(t, "empty.txt", "  \n\n  "))
	assert.Error(t, err)
	assert.False(t, index.Exists(cfg.Index.Path))
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.AI.Provider = "openai"
	cfg.AI.APIKey = ""
	_, err := New(cfg, nil)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKey = ""
	_, err = New(cfg, nil)
	require.Error(t, err)
}
