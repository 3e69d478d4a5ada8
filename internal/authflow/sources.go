package authflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotListening is returned by ManualSource.Push when no flow is waiting
// for a code.
var ErrNotListening = errors.New("authflow: no otp listener")

// ManualSource forwards codes pushed by the user interface, for example
// lines read from a terminal.
type ManualSource struct {
	// Timeout, when positive, ends each listen with ErrCaptureTimeout.
	Timeout time.Duration

	mu      sync.Mutex
	current chan Capture
}

// Listen implements OTPSource. Only the most recent listener receives codes.
func (s *ManualSource) Listen(ctx context.Context, _ string) (<-chan Capture, error) {
	ch := make(chan Capture, 1)
	s.mu.Lock()
	s.current = ch
	s.mu.Unlock()

	go func() {
		var timeout <-chan time.Time
		if s.Timeout > 0 {
			timer := time.NewTimer(s.Timeout)
			defer timer.Stop()
			timeout = timer.C
		}
		select {
		case <-ctx.Done():
		case <-timeout:
			s.mu.Lock()
			if s.current == ch {
				select {
				case ch <- Capture{Err: ErrCaptureTimeout}:
				default:
				}
			}
			s.mu.Unlock()
			<-ctx.Done()
		}
		s.mu.Lock()
		if s.current == ch {
			s.current = nil
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// Push delivers code to the active listener.
func (s *ManualSource) Push(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNotListening
	}
	select {
	case s.current <- Capture{OTP: code}:
		return nil
	default:
		return errors.New("authflow: otp listener busy")
	}
}

// InboxFetch returns the latest code the server holds for mobile.
type InboxFetch func(ctx context.Context, mobile string) (string, error)

// InboxSource polls the development backend's OTP inbox, standing in for
// the phone's SMS retriever. A code is delivered once; polling continues so
// a resent code is picked up as well.
type InboxSource struct {
	Fetch    InboxFetch
	Interval time.Duration
	Timeout  time.Duration

	mu   sync.Mutex
	seen map[string]string
}

const (
	defaultInboxInterval = time.Second
	defaultInboxTimeout  = 5 * time.Minute
)

// Listen implements OTPSource.
func (s *InboxSource) Listen(ctx context.Context, mobile string) (<-chan Capture, error) {
	if s.Fetch == nil {
		return nil, errors.New("authflow: inbox fetch is required")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInboxInterval
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultInboxTimeout
	}

	ch := make(chan Capture)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()

		for {
			if code, err := s.Fetch(ctx, mobile); err == nil && code != "" && s.markSeen(mobile, code) {
				select {
				case ch <- Capture{OTP: code}:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				select {
				case ch <- Capture{Err: ErrCaptureTimeout}:
				case <-ctx.Done():
				}
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}

func (s *InboxSource) markSeen(mobile, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]string)
	}
	if s.seen[mobile] == code {
		return false
	}
	s.seen[mobile] = code
	return true
}
