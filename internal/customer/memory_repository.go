package customer

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

// NewMemoryRepository builds an in-memory customer store.
func NewMemoryRepository() Repository {
	return &memoryRepository{customers: make(map[string]Customer)}
}

func (r *memoryRepository) Create(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if existing.Mobile == c.Mobile {
			return ErrDuplicate
		}
	}
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepository) Update(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[c.ID]
	if !ok {
		return ErrNotFound
	}
	for _, other := range r.customers {
		if other.ID != c.ID && other.Mobile == c.Mobile {
			return ErrDuplicate
		}
	}
	c.Audit.CreatedAt = existing.Audit.CreatedAt
	c.Audit.CreatedBy = existing.Audit.CreatedBy
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.customers, id)
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
