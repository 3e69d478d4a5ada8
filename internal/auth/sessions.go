package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for revoked or unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is a server-side login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore persists sessions until they expire or are revoked.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

const sessionPrefix = "session:v1:"

// RedisSessionStore keeps sessions in Redis with a TTL matching expiry.
type RedisSessionStore struct {
	cache *redis.Client
}

// NewRedisSessionStore builds a Redis-backed store.
func NewRedisSessionStore(cache *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{cache: cache}
}

func (r *RedisSessionStore) Save(ctx context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, sessionPrefix+s.ID, raw, time.Until(s.ExpiresAt)).Err()
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.cache.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return r.cache.Del(ctx, sessionPrefix+id).Err()
}

type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowF     func() time.Time
}

// NewMemorySessionStore builds an in-process session store.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]Session), nowF: time.Now}
}

func (m *memorySessionStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessionStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.ExpiresAt.After(m.nowF()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
