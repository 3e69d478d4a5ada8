package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/fieldops/internal/notification"
)

// MaxAttempts is the number of wrong codes accepted before the pending code
// is discarded.
const MaxAttempts = 5

// Config configures a Service.
type Config struct {
	TTL        time.Duration
	BcryptCost int
	// Inbox, when set, keeps plain codes for development retrieval.
	Inbox *Inbox
}

// Service issues codes, delivers them and verifies submissions.
type Service struct {
	store    Store
	notifier notification.Notifier
	cfg      Config
	logger   *slog.Logger
	generate func() (string, error)
}

// NewService builds an OTP service.
func NewService(store Store, notifier notification.Notifier, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, notifier: notifier, cfg: cfg, logger: logger, generate: Generate}
}

// Issue creates a fresh code for mobile, replacing any pending one, and
// sends it.
func (s *Service) Issue(ctx context.Context, mobile string) error {
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.store.Put(ctx, mobile, Record{Hash: hash}, s.cfg.TTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if s.cfg.Inbox != nil {
		s.cfg.Inbox.Put(ctx, mobile, code, time.Now().Add(s.cfg.TTL))
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: notification.KindOTP, Destination: mobile, Body: code}); err != nil {
		s.logger.Error("otp delivery failed", slog.String("mobile", mobile), slog.Any("error", err))
		return fmt.Errorf("deliver otp: %w", err)
	}
	return nil
}

// Verify checks code against the pending code for mobile and consumes it on
// success. Each call spends one attempt before the comparison, so parallel
// guesses cannot exceed MaxAttempts, and only one caller consumes a code.
func (s *Service) Verify(ctx context.Context, mobile, code string) error {
	rec, err := s.store.Get(ctx, mobile)
	if err != nil {
		return err
	}
	attempt, err := s.store.IncrAttempts(ctx, mobile)
	if err != nil {
		return err
	}
	if attempt > MaxAttempts {
		return ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword(rec.Hash, []byte(code)); err != nil {
		if attempt < MaxAttempts {
			return ErrInvalid
		}
		if err := s.store.Consume(ctx, mobile, rec.Hash); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		s.dropInbox(ctx, mobile)
		return ErrTooManyAttempts
	}
	if err := s.store.Consume(ctx, mobile, rec.Hash); err != nil {
		return err
	}
	s.dropInbox(ctx, mobile)
	return nil
}

// Pending returns the development inbox code for mobile.
func (s *Service) Pending(ctx context.Context, mobile string) (string, bool) {
	if s.cfg.Inbox == nil {
		return "", false
	}
	return s.cfg.Inbox.Get(ctx, mobile)
}

func (s *Service) dropInbox(ctx context.Context, mobile string) {
	if s.cfg.Inbox != nil {
		s.cfg.Inbox.Delete(ctx, mobile)
	}
}
