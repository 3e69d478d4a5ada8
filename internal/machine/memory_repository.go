package machine

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	machines map[string]Machine
}

// NewMemoryRepository builds an in-memory machine store.
func NewMemoryRepository() Repository {
	return &memoryRepository{machines: make(map[string]Machine)}
}

func (r *memoryRepository) Save(_ context.Context, m Machine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[m.ID] = m
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[id]
	if !ok {
		return Machine{}, ErrNotFound
	}
	return m, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Machine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Machine, 0, len(r.machines))
	for _, m := range r.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
