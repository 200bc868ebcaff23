package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hashing embeds text by hashing lowercase word unigrams and bigrams into a
// fixed number of signed buckets, then L2-normalising. It needs no network
// and is deterministic across processes.
type Hashing struct {
	dim int
}

var _ Embedder = (*Hashing)(nil)

func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = defaultDim
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Model() string { return "hashing" }

func (h *Hashing) Embed(_ context.Context, text string) ([]float32, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return nil, ErrEmptyInput
	}

	acc := make([]float64, h.dim)
	add := func(feature string) {
		f := fnv.New64a()
		f.Write([]byte(feature))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			acc[idx]--
		} else {
			acc[idx]++
		}
	}
	for i, w := range words {
		add(w)
		if i > 0 {
			add(words[i-1] + " " + w)
		}
	}

	norm := 0.0
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, h.dim)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}
