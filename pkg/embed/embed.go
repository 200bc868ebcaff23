// Package embed converts text chunks into dense vectors for retrieval.
//
// Two embedders are provided:
//
//   - [OpenAI] calls any OpenAI-compatible embeddings endpoint
//   - [Hashing] is an offline feature-hashing embedder used when no API key
//     is configured
//
// [Cached] wraps either one with a persistent content-addressed cache.
package embed

import (
	"context"
	"errors"
)

// Embedder converts text into dense float32 vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

var (
	// ErrEmptyInput is returned when the input text is empty.
	ErrEmptyInput = errors.New("embed: empty input")
)
