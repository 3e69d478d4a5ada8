package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/otp"
)

// Service runs the OTP login and resolves session tokens.
type Service struct {
	ids      *identity.Service
	otps     *otp.Service
	sessions SessionStore
	signer   *Signer
	ttl      time.Duration
	logger   *slog.Logger
	nowF     func() time.Time
}

// NewService wires the login service.
func NewService(ids *identity.Service, otps *otp.Service, sessions SessionStore, signer *Signer, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{ids: ids, otps: otps, sessions: sessions, signer: signer, ttl: ttl, logger: logger, nowF: time.Now}
}

// LoginResult is a successful login.
type LoginResult struct {
	User      identity.User
	Token     string
	ExpiresAt time.Time
}

// SendOTP issues a code for a known, active user.
func (s *Service) SendOTP(ctx context.Context, mobile string) error {
	if _, err := s.ids.ForLogin(ctx, mobile); err != nil {
		return err
	}
	return s.otps.Issue(ctx, mobile)
}

// Login verifies code and opens a session.
func (s *Service) Login(ctx context.Context, mobile string, code int) (LoginResult, error) {
	formatted, err := otp.Format(code)
	if err != nil {
		return LoginResult{}, err
	}
	user, err := s.ids.ForLogin(ctx, mobile)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.otps.Verify(ctx, mobile, formatted); err != nil {
		return LoginResult{}, err
	}

	now := s.nowF().UTC()
	sess := Session{ID: uuid.NewString(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(s.ttl)}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("save session: %w", err)
	}
	token, err := s.signer.Sign(sess.ID, user.ID, now, sess.ExpiresAt)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.ids.RecordLogin(ctx, user.ID); err != nil {
		s.logger.Warn("record login failed", slog.String("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLogin = &now
	}
	return LoginResult{User: user, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate resolves token to its user and session. Errors are
// ErrTokenExpired, ErrTokenInvalid or ErrSessionNotFound.
func (s *Service) Authenticate(ctx context.Context, token string) (identity.User, Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return identity.User{}, Session{}, err
	}
	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return identity.User{}, Session{}, err
	}
	user, err := s.ids.ByID(ctx, sess.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.User{}, Session{}, ErrSessionNotFound
	}
	if err != nil {
		return identity.User{}, Session{}, err
	}
	if !user.IsActive {
		_ = s.sessions.Delete(ctx, sess.ID)
		return identity.User{}, Session{}, ErrSessionNotFound
	}
	return user, sess, nil
}

// Logout revokes a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// PendingOTP exposes the development inbox.
func (s *Service) PendingOTP(ctx context.Context, mobile string) (string, bool) {
	return s.otps.Pending(ctx, mobile)
}
