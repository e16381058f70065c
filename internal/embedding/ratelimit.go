package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps an Embedder and waits on a token bucket before every call.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with the given burst. A non-positive
// rps returns inner unchanged.
func NewRateLimited(inner Embedder, rps float64, burst int) Embedder {
	if rps <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Name() string { return r.inner.Name() }

// Embed blocks until the limiter admits the call or ctx is done.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}
