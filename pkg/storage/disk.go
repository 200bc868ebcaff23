package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// EmbeddingCache maps a content key to a previously computed embedding.
type EmbeddingCache interface {
	Get(key string) ([]float32, bool, error)
	Put(key string, vector []float32) error
	Close() error
}

type badgerCache struct {
	db *badger.DB
}

// NewEmbeddingCache opens a badger-backed cache under path. An empty path
// keeps the cache in memory for the lifetime of the process.
func NewEmbeddingCache(path string) (EmbeddingCache, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		opts = badger.DefaultOptions(filepath.Join(path, "embeddings"))
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &badgerCache{db: db}, nil
}

func (c *badgerCache) Get(key string) ([]float32, bool, error) {
	var vector []float32

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &vector)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}
	return vector, true, nil
}

func (c *badgerCache) Put(key string, vector []float32) error {
	data, err := msgpack.Marshal(vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (c *badgerCache) Close() error {
	return c.db.Close()
}
