package storage

import (
	"sync"

	"emotion-backend/pkg/models"
)

// SessionStore holds live conversations. Each session has its own lock so
// that concurrent turns on the same id are serialized while other sessions
// proceed independently.
type SessionStore interface {
	// WithSession runs fn with exclusive access to the session identified by
	// id, creating a fresh session when id is empty or unknown. It returns the
	// id of the session that was used.
	WithSession(id string, fn func(s *models.Session) error) (string, error)
	Get(id string) (models.Session, error)
	Delete(id string) error
	Len() int
}

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
	deleted bool // guarded by mu
}

type memoryStore struct {
	sessions   map[string]*sessionEntry
	mu         sync.RWMutex
	maxHistory int
}

func NewMemoryStore(maxHistory int) SessionStore {
	return &memoryStore{
		sessions:   make(map[string]*sessionEntry),
		maxHistory: maxHistory,
	}
}

func (s *memoryStore) WithSession(id string, fn func(sess *models.Session) error) (string, error) {
	for {
		// a deleted entry means Delete won the race; the next lookup starts
		// a new session
		if sid, live, err := s.getOrCreate(id).run(fn); live {
			return sid, err
		}
	}
}

func (e *sessionEntry) run(fn func(sess *models.Session) error) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return "", false, nil
	}
	return e.session.ID, true, fn(e.session)
}

func (s *memoryStore) getOrCreate(id string) *sessionEntry {
	if id != "" {
		s.mu.RLock()
		entry, exists := s.sessions[id]
		s.mu.RUnlock()
		if exists {
			return entry
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if entry, exists := s.sessions[id]; exists {
			return entry
		}
	}

	sess := models.NewSession(s.maxHistory)
	entry := &sessionEntry{session: sess}
	s.sessions[sess.ID] = entry
	return entry
}

func (s *memoryStore) Get(id string) (models.Session, error) {
	s.mu.RLock()
	entry, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists {
		return models.Session{}, models.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Snapshot(), nil
}

// Delete waits for any turn in progress on the session. Lock order is the
// entry lock before the map lock.
func (s *memoryStore) Delete(id string) error {
	s.mu.RLock()
	entry, exists := s.sessions[id]
	s.mu.RUnlock()
	if !exists {
		return models.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return models.ErrNotFound
	}
	entry.deleted = true

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
