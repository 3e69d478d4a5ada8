package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for development and
// tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Mobile == user.Mobile {
			return ErrMobileTaken
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Mobile == user.Mobile {
			return ErrMobileTaken
		}
	}
	user.CreatedAt = existing.CreatedAt
	user.LastLogin = existing.LastLogin
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByMobile(_ context.Context, mobile string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Mobile == mobile {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryRepository) List(_ context.Context, f Filter) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []User
	for _, u := range r.users {
		if f.match(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *memoryRepository) CountByCustomer(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, u := range r.users {
		if u.CustomerID != "" {
			counts[u.CustomerID]++
		}
	}
	return counts, nil
}

func (r *memoryRepository) TouchLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	user.LastLogin = &at
	r.users[id] = user
	return nil
}
