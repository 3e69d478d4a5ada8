package sparepart

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/fieldops/internal/dto"
)

type memoryRepository struct {
	mu    sync.RWMutex
	parts map[string]Part
}

// NewMemoryRepository builds an in-memory part store.
func NewMemoryRepository() Repository {
	return &memoryRepository{parts: make(map[string]Part)}
}

func (r *memoryRepository) Save(_ context.Context, p Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.parts {
		if other.ID != p.ID && other.PartNo == p.PartNo {
			return ErrDuplicatePartNo
		}
	}
	if existing, ok := r.parts[p.ID]; ok {
		p.Machines = existing.Machines
	}
	r.parts[p.ID] = p
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parts[id]
	if !ok {
		return Part{}, ErrNotFound
	}
	p.Machines = append([]dto.DropDown(nil), p.Machines...)
	return p, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Part, 0, len(r.parts))
	for _, p := range r.parts {
		p.Machines = append([]dto.DropDown(nil), p.Machines...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) Link(_ context.Context, partIDs []string, machines []dto.DropDown, assign bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range partIDs {
		if _, ok := r.parts[id]; !ok {
			return ErrNotFound
		}
	}
	for _, id := range partIDs {
		p := r.parts[id]
		for _, m := range machines {
			idx := -1
			for i, existing := range p.Machines {
				if existing.ID == m.ID {
					idx = i
					break
				}
			}
			switch {
			case assign && idx < 0:
				p.Machines = append(p.Machines, m)
			case !assign && idx >= 0:
				p.Machines = append(p.Machines[:idx:idx], p.Machines[idx+1:]...)
			}
		}
		sort.Slice(p.Machines, func(i, j int) bool { return p.Machines[i].Label < p.Machines[j].Label })
		r.parts[id] = p
	}
	return nil
}
