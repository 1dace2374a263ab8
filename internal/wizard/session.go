package wizard

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"immo-workers/internal/common/database"
	"immo-workers/internal/common/errors"
)

// Session is a wizard in progress for one user.
type Session struct {
	ID         string    `json:"id"`
	WizardID   string    `json:"wizardId"`
	UserEmail  string    `json:"userEmail"`
	State      State     `json:"state"`
	DocumentID string    `json:"documentId,omitempty"`
	FileURL    string    `json:"fileUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SessionStore persists wizard sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "wizard:session:"

// RedisSessionStore keeps sessions as JSON with a sliding TTL.
type RedisSessionStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewRedisSessionStore(redis *database.RedisClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: redis, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := s.redis.GetJSON(ctx, sessionKeyPrefix+id, &session); err != nil {
		if stderrors.Is(err, database.ErrCacheMiss) {
			return nil, errors.NewSessionNotFoundError(id)
		}
		return nil, errors.NewInternalError(err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	if err := s.redis.SetJSON(ctx, sessionKeyPrefix+session.ID, session, s.ttl); err != nil {
		return errors.NewInternalError(fmt.Errorf("save session %s: %w", session.ID, err))
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.redis.Del(ctx, sessionKeyPrefix+id)
}

// MemoryStore keeps sessions in process. Used by the CLI and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NewSessionNotFoundError(id)
	}
	s.State.FormData = s.State.FormData.Clone()
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.State.FormData = s.State.FormData.Clone()
	m.sessions[s.ID] = cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
