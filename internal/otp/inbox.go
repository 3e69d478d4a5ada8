package otp

import (
	"context"
	"sync"
	"time"
)

// Inbox keeps plain codes for development retrieval (GET dev/otp). It is
// only wired when the backend runs in a development environment.
type Inbox struct {
	mu   sync.RWMutex
	m    map[string]inboxEntry
	nowF func() time.Time
}

type inboxEntry struct {
	code      string
	expiresAt time.Time
}

// NewInbox returns an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{m: make(map[string]inboxEntry), nowF: time.Now}
}

// Put stores code for mobile until expiresAt.
func (i *Inbox) Put(_ context.Context, mobile, code string, expiresAt time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.m[mobile] = inboxEntry{code: code, expiresAt: expiresAt}
}

// Get returns the pending code for mobile.
func (i *Inbox) Get(_ context.Context, mobile string) (string, bool) {
	i.mu.RLock()
	e, ok := i.m[mobile]
	i.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(i.nowF()) {
		i.Delete(context.Background(), mobile)
		return "", false
	}
	return e.code, true
}

// Delete drops the code for mobile.
func (i *Inbox) Delete(_ context.Context, mobile string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.m, mobile)
}
