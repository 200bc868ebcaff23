package storage

import (
	"errors"
	"sync"
	"testing"

	"emotion-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSessionCreatesOnUnknownID(t *testing.T) {
	store := NewMemoryStore(0)

	id, err := store.WithSession("", func(s *models.Session) error {
		assert.Equal(t, models.DefaultEmotion, s.LastEmotion)
		assert.Zero(t, s.TurnsSinceLastDetection)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	other, err := store.WithSession("does-not-exist", func(*models.Session) error { return nil })
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", other)
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, store.Len())

	again, err := store.WithSession(id, func(*models.Session) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestWithSessionPropagatesError(t *testing.T) {
	store := NewMemoryStore(0)
	boom := errors.New("boom")

	_, err := store.WithSession("", func(*models.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDeleteAndHistoryNotFound(t *testing.T) {
	store := NewMemoryStore(0)

	assert.ErrorIs(t, store.Delete("missing"), models.ErrNotFound)

	id, err := store.WithSession("", func(s *models.Session) error {
		s.AppendTurn(models.Turn{User: "hi", Assistant: "hello"})
		return nil
	})
	require.NoError(t, err)

	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Len(t, snap.History, 1)

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, store.Delete(id), models.ErrNotFound)
}

func TestConcurrentTurnsDoNotLoseUpdates(t *testing.T) {
	store := NewMemoryStore(0)
	id, err := store.WithSession("", func(*models.Session) error { return nil })
	require.NoError(t, err)

	const turns = 200
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.WithSession(id, func(s *models.Session) error {
				s.AppendTurn(models.Turn{User: "x"})
				s.TurnsSinceLastDetection++
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := store.Get(id)
	require.NoError(t, err)
	assert.Len(t, snap.History, turns)
	assert.Equal(t, turns, snap.TurnsSinceLastDetection)
}

func TestTurnAfterDeleteStartsFreshSession(t *testing.T) {
	ms := NewMemoryStore(0).(*memoryStore)
	id, err := ms.WithSession("", func(*models.Session) error { return nil })
	require.NoError(t, err)

	// a turn that looked the entry up before the delete landed
	stale := ms.getOrCreate(id)
	require.NoError(t, ms.Delete(id))

	called := false
	_, live, err := stale.run(func(*models.Session) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, live)
	assert.False(t, called)

	fresh, err := ms.WithSession(id, func(*models.Session) error { return nil })
	require.NoError(t, err)
	assert.NotEqual(t, id, fresh)
	_, err = ms.Get(fresh)
	assert.NoError(t, err)
}

func TestTurnsRacingDeleteRunOnLiveSessions(t *testing.T) {
	ms := NewMemoryStore(0).(*memoryStore)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		id, err := ms.WithSession("", func(*models.Session) error { return nil })
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = ms.Delete(id)
		}()
		go func() {
			defer wg.Done()
			_, err := ms.WithSession(id, func(s *models.Session) error {
				ms.mu.RLock()
				entry, ok := ms.sessions[s.ID]
				ms.mu.RUnlock()
				if !ok || entry.session != s {
					return errors.New("turn ran on a deleted session")
				}
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	store := NewMemoryStore(0)
	id, _ := store.WithSession("", func(s *models.Session) error {
		s.AppendTurn(models.Turn{User: "first"})
		return nil
	})

	snap, err := store.Get(id)
	require.NoError(t, err)
	snap.History[0].User = "mutated"

	fresh, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "first", fresh.History[0].User)
}

func TestBoundedHistory(t *testing.T) {
	store := NewMemoryStore(2)
	id, _ := store.WithSession("", func(s *models.Session) error {
		s.AppendTurn(models.Turn{User: "1"})
		s.AppendTurn(models.Turn{User: "2"})
		s.AppendTurn(models.Turn{User: "3"})
		return nil
	})

	snap, err := store.Get(id)
	require.NoError(t, err)
	require.Len(t, snap.History, 2)
	assert.Equal(t, "2", snap.History[0].User)
	assert.Equal(t, "3", snap.History[1].User)
}

func TestEmbeddingCacheInMemory(t *testing.T) {
	cache, err := NewEmbeddingCache("")
	require.NoError(t, err)
	defer cache.Close()

	_, ok, err := cache.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []float32{0.25, -1, 3.5}
	require.NoError(t, cache.Put("k", want))

	got, ok, err := cache.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestEmbeddingCacheOnDisk(t *testing.T) {
	dir := t.TempDir()

	cache, err := NewEmbeddingCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Put("k", []float32{1, 2}))
	require.NoError(t, cache.Close())

	reopened, err := NewEmbeddingCache(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got)
}
