package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quizrag/internal/ai"
	"quizrag/internal/index"
	"quizrag/internal/logging"
	"quizrag/internal/retriever"
)

// State is a step of the composer state machine.
type State int

const (
	StateValidating State = iota
	StateRetrieving
	StateComposing
	StateInvoking
	StateParsing
	StateValidated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateRetrieving:
		return "retrieving"
	case StateComposing:
		return "composing"
	case StateInvoking:
		return "invoking"
	case StateParsing:
		return "parsing"
	case StateValidated:
		return "validated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// GenerationError means the provider kept answering but never produced output
// that satisfied the schema.
type GenerationError struct {
	Attempts int
	Last     *SchemaError
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("quiz generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error {
	return e.Last
}

// Retriever supplies grounding context. *retriever.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, mode retriever.Mode) (*retriever.Result, error)
}

// Options tune the composer.
type Options struct {
	TopK              int
	MaxSchemaAttempts int
	Retry             ai.RetryPolicy
	Model             string
	MaxTokens         int
	Temperature       float32
	Logger            *slog.Logger
}

// Result is a successful composition.
type Result struct {
	Questions []GeneratedQuestion
	Context   string
	Hits      []index.Hit
	Attempts  int
	Usage     ai.Usage
}

// Composer drives a quiz request from validation to validated questions.
type Composer struct {
	retriever Retriever
	provider  ai.Provider
	opts      Options
	logger    *slog.Logger
}

// NewComposer creates a composer. Zero options fall back to top-k 4, three schema
// attempts and the default retry policy.
func NewComposer(r Retriever, p ai.Provider, opts Options) *Composer {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.MaxSchemaAttempts <= 0 {
		opts.MaxSchemaAttempts = 3
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = ai.DefaultRetryPolicy()
	}
	return &Composer{
		retriever: r,
		provider:  p,
		opts:      opts,
		logger:    logging.Component(opts.Logger, "composer"),
	}
}

// Compose runs the state machine for spec. On any error no questions are returned.
func (c *Composer) Compose(ctx context.Context, spec Spec) (*Result, error) {
	var (
		state     = StateValidating
		res       = &Result{}
		req       *ai.GenerateRequest
		resp      *ai.GenerateResponse
		schemaErr *SchemaError
		err       error
	)

	for {
		c.logger.Debug("composer state", "state", state.String(), "quiz_type", spec.Type.String(), "attempt", res.Attempts)

		switch state {
		case StateValidating:
			if err = spec.Validate(); err != nil {
				state = StateFailed
				continue
			}
			state = StateRetrieving

		case StateRetrieving:
			var r *retriever.Result
			r, err = c.retriever.Retrieve(ctx, spec.Context, c.opts.TopK, retriever.Concatenated)
			if err != nil {
				state = StateFailed
				continue
			}
			res.Context = r.Context
			res.Hits = r.Hits
			state = StateComposing

		case StateComposing:
			req, err = c.buildRequest(spec, res.Context)
			if err != nil {
				state = StateFailed
				continue
			}
			state = StateInvoking

		case StateInvoking:
			if err = ctx.Err(); err != nil {
				state = StateFailed
				continue
			}
			res.Attempts++
			err = c.opts.Retry.Do(ctx, c.logger, c.provider.Name(), "generate", func(ctx context.Context) error {
				r, err := c.provider.GenerateResponse(ctx, req)
				if err != nil {
					return err
				}
				resp = r
				return nil
			})
			if err != nil {
				state = StateFailed
				continue
			}
			res.Usage.PromptTokens += resp.Usage.PromptTokens
			res.Usage.CompletionTokens += resp.Usage.CompletionTokens
			res.Usage.TotalTokens += resp.Usage.TotalTokens
			state = StateParsing

		case StateParsing:
			var questions []GeneratedQuestion
			questions, err = ParseQuestions(spec, resp.StructuredOutput(ToolName))
			if err == nil {
				res.Questions = questions
				state = StateValidated
				continue
			}
			if !errors.As(err, &schemaErr) {
				state = StateFailed
				continue
			}
			c.logger.Warn("response rejected by schema", "attempt", res.Attempts,
				"max_attempts", c.opts.MaxSchemaAttempts, "violations", len(schemaErr.Violations))
			if res.Attempts >= c.opts.MaxSchemaAttempts {
				err = &GenerationError{Attempts: res.Attempts, Last: schemaErr}
				state = StateFailed
				continue
			}
			state = StateInvoking

		case StateValidated:
			c.logger.Info("quiz composed", "quiz_type", spec.Type.String(), "level", spec.Level.String(),
				"questions", len(res.Questions), "attempts", res.Attempts)
			return res, nil

		case StateFailed:
			c.logger.Debug("composer failed", "error", err)
			return nil, err
		}
	}
}

func (c *Composer) buildRequest(spec Spec, grounding string) (*ai.GenerateRequest, error) {
	instr, err := BuildInstructions(spec, grounding)
	if err != nil {
		return nil, err
	}
	schema, err := SchemaFor(spec.Type)
	if err != nil {
		return nil, err
	}
	return &ai.GenerateRequest{
		Messages: []ai.ChatMessage{
			{Role: "system", Content: instr.System},
			{Role: "user", Content: instr.User},
		},
		Model: c.opts.Model,
		Tools: []ai.Tool{{
			Name:        ToolName,
			Description: fmt.Sprintf("Submit the generated %s questions.", schema.Label),
			Parameters:  schema.JSONSchema(spec.NumQuestions),
		}},
		ToolChoice:  ToolName,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}, nil
}
