package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/pkg/clock"
)

type memoryEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// MemoryStore implements Store in process memory. For development and tests.
type MemoryStore struct {
	logger *zap.Logger
	clock  clock.Clock
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(logger *zap.Logger, clk clock.Clock, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		logger:   logger.Named("session.store.memory"),
		clock:    clk,
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || !s.clock.Now().Before(entry.expiresAt) {
		return nil, domain.ErrSessionNotFound
	}
	sess := entry.session
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *domain.Session) error {
	if sess.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		sess.ID = id
	}

	s.mu.Lock()
	s.sessions[sess.ID] = memoryEntry{session: *sess, expiresAt: s.clock.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Regenerate(_ context.Context, sess *domain.Session) error {
	newID, err := NewID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID != "" {
		delete(s.sessions, sess.ID)
	}
	sess.ID = newID
	s.sessions[newID] = memoryEntry{session: *sess, expiresAt: s.clock.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed
func (s *MemoryStore) Sweep() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept expired sessions", zap.Int("count", removed))
	}
	return removed
}

func (s *MemoryStore) Close() error {
	return nil
}
