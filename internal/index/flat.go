// Package index implements an exact nearest-neighbor index over float32 vectors
// using squared Euclidean distance, with durable on-disk snapshots.
package index

import (
	"log/slog"
	"sort"
	"sync"

	"quizrag/internal/vecmath"
)

// Hit is a single search result.
type Hit struct {
	Offset   int
	Payload  string
	Distance float32
}

// Flat is a brute-force index. Rows are append-only and addressed by insertion offset.
// Search is safe for concurrent use; Add and Load take the write lock.
type Flat struct {
	mu       sync.RWMutex
	dim      int
	vectors  []float32 // row-major, len == dim*len(payloads)
	payloads []string
	seen     map[string]struct{} // stored payload texts
	sources  map[string]string   // content digest -> source name
	codec    Codec
	logger   *slog.Logger
}

// Option configures a Flat index.
type Option func(*Flat)

// WithCodec sets the compression codec for the payload artifact.
func WithCodec(c Codec) Option {
	return func(f *Flat) { f.codec = c }
}

// WithLogger sets the logger used for save and load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flat) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int, opts ...Option) (*Flat, error) {
	if dim <= 0 {
		return nil, &InvalidDimensionError{Dimension: dim}
	}
	f := &Flat{
		dim:    dim,
		codec:  CodecNone,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Dimension returns the fixed vector dimension.
func (f *Flat) Dimension() int {
	return f.dim
}

// Len returns the number of stored entries.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.payloads)
}

// Payload returns the payload stored at offset.
func (f *Flat) Payload(offset int) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if offset < 0 || offset >= len(f.payloads) {
		return "", false
	}
	return f.payloads[offset], true
}

// Add appends an embedding and its payload and returns the assigned offset.
func (f *Flat) Add(embedding []float32, payload string) (int, error) {
	if len(embedding) != f.dim {
		return 0, &DimensionMismatchError{Expected: f.dim, Actual: len(embedding)}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.vectors = append(f.vectors, embedding...)
	f.payloads = append(f.payloads, payload)
	if f.seen == nil {
		f.seen = make(map[string]struct{})
	}
	f.seen[payload] = struct{}{}
	return len(f.payloads) - 1, nil
}

// Contains reports whether a row with exactly this payload is stored.
func (f *Flat) Contains(payload string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.seen[payload]
	return ok
}

// RecordSource notes that content with the given digest was indexed under name.
// Sources are saved with the snapshot.
func (f *Flat) RecordSource(digest, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sources == nil {
		f.sources = make(map[string]string)
	}
	f.sources[digest] = name
}

// Source returns the name recorded for digest.
func (f *Flat) Source(digest string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	name, ok := f.sources[digest]
	return name, ok
}

// Search returns the min(k, Len()) entries closest to query in ascending distance.
// Equal distances keep insertion order. An empty index or k <= 0 yields no hits.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, &DimensionMismatchError{Expected: f.dim, Actual: len(query)}
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.payloads)
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}
	k = min(k, n)

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		hits[i] = Hit{Offset: i, Distance: vecmath.SquaredL2(query, row)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	hits = hits[:k]
	for i := range hits {
		hits[i].Payload = f.payloads[hits[i].Offset]
	}
	return hits, nil
}
