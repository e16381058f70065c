package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"quizrag/internal/vecmath"
)

// Compile-time interface check.
var _ Embedder = (*Hashing)(nil)

const defaultHashingDims = 256

// Hashing is an offline embedder that maps lowercase word tokens into a fixed number
// of buckets (feature hashing) with sublinear term frequency, then L2-normalizes.
// Identical text always yields the identical vector.
type Hashing struct {
	dims int
}

// NewHashing creates a hashing embedder with dims buckets (default 256).
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = defaultHashingDims
	}
	return &Hashing{dims: dims}
}

func (h *Hashing) Name() string { return "hashing" }

// Dimensions returns the fixed output size.
func (h *Hashing) Dimensions() int { return h.dims }

// Embed hashes each text into a vector.
func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = h.vector(text)
	}
	return vectors, nil
}

func (h *Hashing) vector(text string) []float32 {
	tf := make(map[string]int)
	for _, w := range tokenize(text) {
		tf[w]++
	}

	vec := make([]float32, h.dims)
	for word, count := range tf {
		hs := fnv.New64a()
		hs.Write([]byte(word))
		sum := hs.Sum64()

		// Sign bit spreads collisions around zero.
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vec[sum%uint64(h.dims)] += sign * float32(1+math.Log(float64(count)))
	}

	vecmath.NormalizeInPlace(vec)
	return vec
}

// tokenize splits text into lowercase words.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}

	return words
}
