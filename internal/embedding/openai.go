package embedding

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"quizrag/internal/ai"
)

// Compile-time interface check.
var _ Embedder = (*OpenAIEmbedder)(nil)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the public API
	Model      string
	Dimensions int // 0 keeps the model's native size
	Timeout    time.Duration
	Retry      ai.RetryPolicy
	Logger     *slog.Logger
}

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
	retry  ai.RetryPolicy
	logger *slog.Logger
}

// NewOpenAIEmbedder creates a new OpenAI embedding provider.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = ai.DefaultRetryPolicy()
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		dims:   cfg.Dimensions,
		retry:  retry,
		logger: cfg.Logger,
	}
}

func (o *OpenAIEmbedder) Name() string { return "openai:" + o.model }

// Embed sends texts to the embeddings API and returns vectors in input order.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(o.model),
		Input:      texts,
		Dimensions: o.dims,
	}

	var resp openai.EmbeddingResponse
	err := o.retry.Do(ctx, o.logger, o.Name(), "embed", func(ctx context.Context) error {
		r, err := o.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return ai.ClassifyOpenAIError(ctx, o.Name(), "embed", err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, &ai.ProviderError{Provider: o.Name(), Op: "embed",
			Err: &UnexpectedOutputError{Provider: o.Name(), Want: len(texts), Got: len(resp.Data)}}
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j := range d.Embedding {
			v[j] = float32(d.Embedding[j])
		}
		vectors[i] = v
	}
	return vectors, nil
}
