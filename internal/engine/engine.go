// Package engine wires configuration into the ingestion, retrieval and quiz
// composition components. An Engine is built once and passed explicitly.
package engine

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"quizrag/internal/ai"
	"quizrag/internal/chunker"
	"quizrag/internal/config"
	"quizrag/internal/document"
	"quizrag/internal/embedding"
	"quizrag/internal/index"
	"quizrag/internal/ingest"
	"quizrag/internal/logging"
	"quizrag/internal/questionbank"
	"quizrag/internal/quiz"
	"quizrag/internal/retriever"
)

// ErrNoQuestionBank is returned by bank operations when the database is disabled.
var ErrNoQuestionBank = errors.New("engine: question bank is disabled")

// Engine owns the providers, the index handle and the optional question bank.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	embedder embedding.Embedder
	provider ai.Provider
	windows  *chunker.Windows
	codec    index.Codec
	pipeline *ingest.Pipeline
	retr     *retriever.Retriever
	composer *quiz.Composer
	bank     *questionbank.Store
	client   *http.Client

	mu  sync.RWMutex
	idx *index.Flat // nil until opened or first ingested
}

// Option overrides a component built from config.
type Option func(*Engine)

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e embedding.Embedder) Option {
	return func(en *Engine) { en.embedder = e }
}

// WithProvider replaces the configured generation provider.
func WithProvider(p ai.Provider) Option {
	return func(en *Engine) { en.provider = p }
}

// WithHTTPClient sets the client used to fetch URL documents.
func WithHTTPClient(c *http.Client) Option {
	return func(en *Engine) { en.client = c }
}

// New builds an Engine from cfg. The question bank is opened when enabled.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		logger: logging.Component(logger, "engine"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.windows, err = chunker.New(cfg.Chunking.MaxLength, cfg.Chunking.OverlapLength)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.codec, err = index.ParseCodec(cfg.Index.Compression)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	retry := ai.RetryPolicy{
		MaxAttempts: cfg.AI.MaxRetries,
		BaseDelay:   time.Duration(cfg.AI.RetryBackoffMs) * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}

	if e.embedder == nil {
		if e.embedder, err = newEmbedder(cfg, retry, logger); err != nil {
			return nil, err
		}
	}
	if e.provider == nil {
		if e.provider, err = newProvider(cfg); err != nil {
			return nil, err
		}
	}

	e.pipeline = ingest.New(ingest.Config{
		Windows:  e.windows,
		Embedder: e.embedder,
		Workers:  cfg.Embedding.Workers,
		IndexOpt: e.indexOptions(),
		Logger:   logger,
	})
	e.retr = retriever.New(e.embedder, searcher{e}, logger)
	e.composer = quiz.NewComposer(e.retr, e.provider, quiz.Options{
		TopK:              cfg.Retriever.TopK,
		MaxSchemaAttempts: cfg.Quiz.MaxSchemaAttempts,
		Retry:             retry,
		Model:             cfg.AI.Model,
		MaxTokens:         cfg.AI.MaxTokens,
		Temperature:       cfg.AI.Temperature,
		Logger:            logger,
	})

	if cfg.Database.Enabled {
		e.bank, err = questionbank.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	e.logger.Debug("engine ready", "embedder", e.embedder.Name(), "provider", e.provider.Name(),
		"index", cfg.Index.Path, "codec", e.codec.String(), "question_bank", e.bank != nil)
	return e, nil
}

func newEmbedder(cfg *config.Config, retry ai.RetryPolicy, logger *slog.Logger) (embedding.Embedder, error) {
	ec := cfg.Embedding
	var emb embedding.Embedder
	switch ec.Provider {
	case "hashing":
		emb = embedding.NewHashing(ec.Dimensions)
	case "openai":
		if ec.APIKey == "" && ec.BaseURL == "" {
			return nil, fmt.Errorf("engine: embedding.api_key is required for the openai embedder")
		}
		emb = embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Timeout:    time.Duration(ec.TimeoutSeconds) * time.Second,
			Retry:      retry,
			Logger:     logging.Component(logger, "embedding"),
		})
	default:
		return nil, fmt.Errorf("engine: unknown embedding provider %q", ec.Provider)
	}
	return embedding.NewRateLimited(emb, ec.RequestsPerSecond, ec.Burst), nil
}

func newProvider(cfg *config.Config) (ai.Provider, error) {
	switch cfg.AI.Provider {
	case "mock":
		return ai.NewMockProvider("mock"), nil
	case "openai":
		if cfg.AI.APIKey == "" && cfg.AI.BaseURL == "" {
			return nil, fmt.Errorf("engine: ai.api_key is required for the openai provider")
		}
		return ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("engine: unknown ai provider %q", cfg.AI.Provider)
	}
}

func (e *Engine) indexOptions() []index.Option {
	return []index.Option{index.WithCodec(e.codec), index.WithLogger(e.logger)}
}

// Close releases the question bank.
func (e *Engine) Close() error {
	if e.bank == nil {
		return nil
	}
	return e.bank.Close()
}

// Provider returns the generation provider in use.
func (e *Engine) Provider() ai.Provider {
	return e.provider
}

// OpenIndex loads the persisted index. The embedder is probed once so the
// in-memory index takes the dimension the provider actually produces; a stored
// index of another dimension fails with *index.PersistenceError.
func (e *Engine) OpenIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openLocked(ctx)
}

func (e *Engine) openLocked(ctx context.Context) error {
	dim, err := embedding.Probe(ctx, e.embedder)
	if err != nil {
		return fmt.Errorf("engine: probe embedder: %w", err)
	}
	idx, err := index.NewFlat(dim, e.indexOptions()...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if index.Exists(e.cfg.Index.Path) {
		if err := idx.Load(e.cfg.Index.Path); err != nil {
			return err
		}
	}
	e.idx = idx
	e.logger.Info("index opened", "path", e.cfg.Index.Path, "dimension", dim, "rows", idx.Len())
	return nil
}

// ensureOpen opens the stored index on first use. Without a stored index the
// handle stays nil and searches see an empty index.
func (e *Engine) ensureOpen(ctx context.Context) error {
	e.mu.RLock()
	opened := e.idx != nil
	e.mu.RUnlock()
	if opened || !index.Exists(e.cfg.Index.Path) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.idx != nil {
		return nil
	}
	return e.openLocked(ctx)
}

// IndexLen returns the number of rows in the open index.
func (e *Engine) IndexLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.idx == nil {
		return 0
	}
	return e.idx.Len()
}

// IngestResult reports an ingestion. Unchanged is set when the same content was
// already indexed; nothing is embedded or saved in that case.
type IngestResult struct {
	*ingest.IndexResult
	Resource  *questionbank.Resource
	Document  string
	Digest    string
	Unchanged bool
}

// Ingest loads a file or URL, indexes its chunks and saves the index. The index
// is saved only when every chunk was embedded and added. Content whose digest
// is already recorded in the index is skipped.
func (e *Engine) Ingest(ctx context.Context, source string) (*IngestResult, error) {
	doc, err := e.loadDocument(ctx, source)
	if err != nil {
		return nil, err
	}
	digest := fmt.Sprintf("%x", sha256.Sum256([]byte(doc.Text)))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.idx == nil && index.Exists(e.cfg.Index.Path) {
		if err := e.openLocked(ctx); err != nil {
			return nil, err
		}
	}

	if e.idx != nil {
		if prev, ok := e.idx.Source(digest); ok {
			e.logger.Info("document unchanged, skipping", "resource", doc.Name, "indexed_as", prev)
			res := &IngestResult{
				IndexResult: &ingest.IndexResult{
					StartTime: time.Now(),
					Dimension: e.idx.Dimension(),
					FirstRow:  e.idx.Len(),
					IndexSize: e.idx.Len(),
				},
				Document:  doc.Name,
				Digest:    digest,
				Unchanged: true,
			}
			if e.bank != nil {
				if r, err := e.bank.Resource(ctx, prev); err == nil {
					res.Resource = r
				}
			}
			return res, nil
		}
	}

	report, idx, err := e.pipeline.Run(ctx, e.idx, doc.Text)
	if err != nil {
		return nil, err
	}
	e.idx = idx
	idx.RecordSource(digest, doc.Name)
	if err := idx.Save(e.cfg.Index.Path); err != nil {
		return nil, err
	}

	res := &IngestResult{IndexResult: report, Document: doc.Name, Digest: digest}
	if e.bank != nil {
		res.Resource, err = e.bank.UpsertResource(ctx, doc.Name, doc.Path, report.Chunks)
		if err != nil {
			return nil, fmt.Errorf("engine: register resource: %w", err)
		}
	}
	e.logger.Info("document ingested", "resource", doc.Name, "chunks", report.Chunks,
		"index_size", report.IndexSize)
	return res, nil
}

func (e *Engine) loadDocument(ctx context.Context, source string) (*document.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return document.Fetch(ctx, e.client, source)
	}
	return document.Load(source)
}

// Search retrieves context for query.
func (e *Engine) Search(ctx context.Context, query string, k int, mode retriever.Mode) (*retriever.Result, error) {
	if err := e.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return e.retr.Retrieve(ctx, query, k, mode)
}

// QuizResult is a composed quiz and, when saved, the question bank ids.
type QuizResult struct {
	*quiz.Result
	IDs []string
}

// Quiz composes questions for spec. When resource is non-empty and the bank is
// enabled the questions are stored under that resource.
func (e *Engine) Quiz(ctx context.Context, spec quiz.Spec, resource string) (*QuizResult, error) {
	save := resource != "" && e.bank != nil
	if save {
		// Fail before spending provider calls on an unknown resource.
		if _, err := e.bank.Resource(ctx, resource); err != nil {
			return nil, err
		}
	}
	if err := e.ensureOpen(ctx); err != nil {
		return nil, err
	}

	res, err := e.composer.Compose(ctx, spec)
	if err != nil {
		return nil, err
	}
	out := &QuizResult{Result: res}
	if !save {
		return out, nil
	}

	out.IDs, err = e.bank.SaveQuestions(ctx, resource, questionbank.Run{
		QuizType:    spec.Type,
		Level:       spec.Level,
		Requested:   spec.NumQuestions,
		Attempts:    res.Attempts,
		TotalTokens: res.Usage.TotalTokens,
	}, res.Questions)
	if err != nil {
		return nil, fmt.Errorf("engine: save questions: %w", err)
	}
	return out, nil
}

// Resources lists the ingested resources.
func (e *Engine) Resources(ctx context.Context) ([]questionbank.Resource, error) {
	if e.bank == nil {
		return nil, ErrNoQuestionBank
	}
	return e.bank.Resources(ctx)
}

// Questions lists stored questions of a resource.
func (e *Engine) Questions(ctx context.Context, resource string, limit int) ([]questionbank.StoredQuestion, error) {
	if e.bank == nil {
		return nil, ErrNoQuestionBank
	}
	return e.bank.ListQuestions(ctx, resource, limit)
}

// searcher exposes the current index handle to the retriever.
type searcher struct{ e *Engine }

func (s searcher) Search(query []float32, k int) ([]index.Hit, error) {
	s.e.mu.RLock()
	idx := s.e.idx
	s.e.mu.RUnlock()
	if idx == nil {
		return []index.Hit{}, nil
	}
	return idx.Search(query, k)
}
