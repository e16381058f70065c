// Package embedding provides text embedding providers.
package embedding

import (
	"context"
	"fmt"
)

// Embedder converts texts to vectors. Implementations return one vector per input,
// in input order, all of the same length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Probe embeds a single text and returns the provider's actual output dimension.
func Probe(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, &UnexpectedOutputError{Provider: e.Name(), Want: 1, Got: len(vecs)}
	}
	return len(vecs[0]), nil
}

// UnexpectedOutputError reports a provider that returned the wrong number of vectors.
type UnexpectedOutputError struct {
	Provider string
	Want     int
	Got      int
}

func (e *UnexpectedOutputError) Error() string {
	return fmt.Sprintf("embedding: %s returned %d vectors for %d inputs", e.Provider, e.Got, e.Want)
}
