package otp

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is a pending code.
type Record struct {
	Hash     []byte
	Attempts int
}

// Store keeps at most one pending record per mobile number. IncrAttempts and
// Consume are atomic so concurrent verifications cannot share an attempt or
// both consume the same code.
type Store interface {
	// Put replaces the record for mobile and resets its attempts.
	Put(ctx context.Context, mobile string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, mobile string) (Record, error)
	// IncrAttempts counts one verification attempt and returns the new
	// count. The TTL is unchanged. A missing record yields ErrNotFound.
	IncrAttempts(ctx context.Context, mobile string) (int, error)
	// Consume removes the record if it still holds hash. Only one caller
	// can succeed; the others get ErrNotFound.
	Consume(ctx context.Context, mobile string, hash []byte) error
}

const (
	redisPrefix = "otp:v2:"
	fieldHash   = "hash"
	fieldTries  = "attempts"
)

var (
	incrAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)`)

	consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'hash') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`)
)

// RedisStore implements Store on Redis. A record is a hash with its code
// hash and attempt counter, expiring with the code.
type RedisStore struct {
	cache *redis.Client
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(cache *redis.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) Put(ctx context.Context, mobile string, rec Record, ttl time.Duration) error {
	key := redisPrefix + mobile
	_, err := s.cache.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fieldHash, rec.Hash, fieldTries, rec.Attempts)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, mobile string) (Record, error) {
	m, err := s.cache.HGetAll(ctx, redisPrefix+mobile).Result()
	if err != nil {
		return Record{}, err
	}
	hash, ok := m[fieldHash]
	if !ok {
		return Record{}, ErrNotFound
	}
	attempts, _ := strconv.Atoi(m[fieldTries])
	return Record{Hash: []byte(hash), Attempts: attempts}, nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, mobile string) (int, error) {
	n, err := incrAttemptsScript.Run(ctx, s.cache, []string{redisPrefix + mobile}).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *RedisStore) Consume(ctx context.Context, mobile string, hash []byte) error {
	n, err := consumeScript.Run(ctx, s.cache, []string{redisPrefix + mobile}, hash).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]memoryEntry
	nowF func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]memoryEntry), nowF: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, mobile string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[mobile] = memoryEntry{rec: rec, expiresAt: s.nowF().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, mobile string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(mobile)
	if !ok {
		return Record{}, ErrNotFound
	}
	return e.rec, nil
}

func (s *MemoryStore) IncrAttempts(_ context.Context, mobile string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(mobile)
	if !ok {
		return 0, ErrNotFound
	}
	e.rec.Attempts++
	s.m[mobile] = e
	return e.rec.Attempts, nil
}

func (s *MemoryStore) Consume(_ context.Context, mobile string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveLocked(mobile)
	if !ok || !bytes.Equal(e.rec.Hash, hash) {
		return ErrNotFound
	}
	delete(s.m, mobile)
	return nil
}

func (s *MemoryStore) liveLocked(mobile string) (memoryEntry, bool) {
	e, ok := s.m[mobile]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.After(s.nowF()) {
		delete(s.m, mobile)
		return memoryEntry{}, false
	}
	return e, true
}
