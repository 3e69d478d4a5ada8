package servicerequest

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	seq      int64
	requests map[string]Request
}

// NewMemoryRepository builds an in-memory request store.
func NewMemoryRepository() Repository {
	return &memoryRepository{requests: make(map[string]Request)}
}

func (m *memoryRepository) Create(_ context.Context, r Request) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.RequestID = FormatRequestID(m.seq)
	m.requests[r.ID] = clone(r)
	return r, nil
}

func (m *memoryRepository) Update(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return ErrNotFound
	}
	m.requests[r.ID] = clone(r)
	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return clone(r), nil
}

func (m *memoryRepository) List(_ context.Context, f Filter) ([]Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Request
	for _, r := range m.requests {
		if f.match(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID > out[j].RequestID })
	return out, nil
}

func (m *memoryRepository) AddCodeAttempt(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return 0, ErrNotFound
	}
	r.CodeAttempts++
	m.requests[id] = r
	return r.CodeAttempts, nil
}

func clone(r Request) Request {
	r.Photos = append([]string(nil), r.Photos...)
	r.Videos = append([]string(nil), r.Videos...)
	return r
}
