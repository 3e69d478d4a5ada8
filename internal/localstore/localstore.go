// Package localstore keeps small client state between terminal sessions:
// the remembered mobile number and the session credentials.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "state.json"

// Cookie is a stored session cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// State is the persisted client state.
type State struct {
	// Mobile is the last mobile number used to log in.
	Mobile  string   `json:"uname,omitempty"`
	Token   string   `json:"token,omitempty"`
	Cookies []Cookie `json:"cookies,omitempty"`
}

// Store reads and writes State in a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open returns a store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("localstore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, fileName)
}

// Load returns the stored state. A missing file is an empty state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (State, error) {
	raw, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Update applies fn to the stored state and writes it back.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.loadLocked()
	if err != nil {
		return err
	}
	fn(&st)
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// RememberMobile stores the mobile number offered on the next login.
func (s *Store) RememberMobile(mobile string) error {
	return s.Update(func(st *State) { st.Mobile = mobile })
}

// SaveSession stores the bearer token and cookies.
func (s *Store) SaveSession(token string, cookies []*http.Cookie) error {
	return s.Update(func(st *State) {
		st.Token = token
		st.Cookies = st.Cookies[:0]
		for _, c := range cookies {
			st.Cookies = append(st.Cookies, Cookie{Name: c.Name, Value: c.Value})
		}
	})
}

// ClearSession forgets the credentials but keeps the mobile number.
func (s *Store) ClearSession() error {
	return s.Update(func(st *State) {
		st.Token = ""
		st.Cookies = nil
	})
}

// HTTPCookies converts the stored cookies.
func (st State) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
