package session

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used when no Redis URL is configured.
// History is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	opts     Options
	sessions map[string]*memorySession
	now      func() time.Time
}

type memorySession struct {
	turns     []models.Turn
	expiresAt time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.liveLocked(sessionID)
	if sess == nil {
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	sess.turns = append(sess.turns, turn)
	if over := len(sess.turns) - s.opts.MaxHistory; over > 0 {
		sess.turns = append([]models.Turn(nil), sess.turns[over:]...)
	}
	sess.expiresAt = s.now().Add(s.opts.TTL)
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.liveLocked(sessionID)
	if sess == nil {
		return nil, nil
	}
	return append([]models.Turn(nil), sess.turns...), nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// liveLocked returns the session or nil, dropping it if expired.
func (s *MemoryStore) liveLocked(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return nil
	}
	return sess
}
