package gateway

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// jar is a resettable cookie jar.
type jar struct {
	mu    sync.RWMutex
	inner *cookiejar.Jar
}

func newJar() (*jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &jar{inner: inner}, nil
}

func (j *jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.inner.SetCookies(u, cookies)
}

func (j *jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

func (j *jar) reset() {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.inner = inner
	j.mu.Unlock()
}
