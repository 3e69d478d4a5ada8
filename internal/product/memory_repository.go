package product

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemoryRepository builds an in-memory product store.
func NewMemoryRepository() Repository {
	return &memoryRepository{products: make(map[string]Product)}
}

func (r *memoryRepository) Save(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.products {
		if other.ID != p.ID && other.SerialNo == p.SerialNo {
			return ErrDuplicateSerial
		}
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) List(_ context.Context, customerID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Product
	for _, p := range r.products {
		if customerID == "" || p.Customer.ID == customerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Audit.CreatedAt.After(out[j].Audit.CreatedAt) })
	return out, nil
}
