package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"emotion-backend/pkg/storage"

	"github.com/rs/zerolog/log"
)

// Cached serves repeated texts from an embedding cache keyed by model name
// and content hash. Cache failures are logged and fall through to the inner
// embedder.
type Cached struct {
	inner Embedder
	cache storage.EmbeddingCache
	model string
}

var _ Embedder = (*Cached)(nil)

func NewCached(inner Embedder, cache storage.EmbeddingCache, model string) *Cached {
	return &Cached{inner: inner, cache: cache, model: model}
}

func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vec, ok, err := c.cache.Get(key); err != nil {
		log.Warn().Err(err).Msg("embedding cache read failed")
	} else if ok && len(vec) == c.inner.Dimension() {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, vec); err != nil {
		log.Warn().Err(err).Msg("embedding cache write failed")
	}
	return vec, nil
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.model + ":" + hex.EncodeToString(sum[:])
}
