package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/notification"
	"github.com/fieldops/fieldops/internal/otp"
)

type fixture struct {
	svc   *Service
	ids   *identity.Service
	inbox *otp.Inbox
	admin identity.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := logging.Discard()
	ids := identity.NewService(identity.NewMemoryRepository(), nil)
	admin, err := ids.EnsureAdmin(context.Background(), "9999999999")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	inbox := otp.NewInbox()
	otps := otp.NewService(otp.NewMemoryStore(), notification.NewLoggerNotifier(logger),
		otp.Config{TTL: time.Minute, BcryptCost: bcrypt.MinCost, Inbox: inbox}, logger)
	svc := NewService(ids, otps, NewMemorySessionStore(), NewSigner("secret", "fieldops"), time.Hour, logger)
	return fixture{svc: svc, ids: ids, inbox: inbox, admin: admin}
}

func (f fixture) pendingCode(t *testing.T, mobile string) int {
	t.Helper()
	code, ok := f.inbox.Get(context.Background(), mobile)
	if !ok {
		t.Fatalf("expected pending otp for %s", mobile)
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		t.Fatalf("otp %q: %v", code, err)
	}
	return n
}

func TestLoginOpensSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.SendOTP(ctx, f.admin.Mobile); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	code := f.pendingCode(t, f.admin.Mobile)
	res, err := f.svc.Login(ctx, f.admin.Mobile, code)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.ID != f.admin.ID {
		t.Fatalf("unexpected login result %+v", res)
	}
	if res.User.LastLogin == nil {
		t.Fatalf("expected last login on result")
	}

	user, sess, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != f.admin.ID || sess.UserID != f.admin.ID {
		t.Fatalf("session bound to wrong user: %+v %+v", user, sess)
	}
	if !sess.ExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("expected expiry %s, got %s", res.ExpiresAt, sess.ExpiresAt)
	}

	// The code is single use.
	if _, err := f.svc.Login(ctx, f.admin.Mobile, code); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for reused code, got %v", err)
	}
	if _, ok := f.inbox.Get(ctx, f.admin.Mobile); ok {
		t.Fatalf("expected inbox to be cleared after login")
	}
}

func TestLoginRejectsWrongCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.SendOTP(ctx, f.admin.Mobile); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	wrong := (f.pendingCode(t, f.admin.Mobile) + 1) % 1000000
	if _, err := f.svc.Login(ctx, f.admin.Mobile, wrong); !errors.Is(err, otp.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := f.svc.Login(ctx, f.admin.Mobile, 1234567); !errors.Is(err, otp.ErrInvalid) {
		t.Fatalf("expected out of range code to be invalid, got %v", err)
	}
}

func TestSendOTPUnknownOrInactiveUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.svc.SendOTP(ctx, "8888888888"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	inactive := f.admin
	inactive.IsActive = false
	if err := f.ids.Repository().Update(ctx, inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := f.svc.SendOTP(ctx, f.admin.Mobile); !errors.Is(err, identity.ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestAuthenticateAfterLogoutOrDeactivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	login := func() LoginResult {
		if err := f.svc.SendOTP(ctx, f.admin.Mobile); err != nil {
			t.Fatalf("send otp: %v", err)
		}
		res, err := f.svc.Login(ctx, f.admin.Mobile, f.pendingCode(t, f.admin.Mobile))
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		return res
	}

	res := login()
	_, sess, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.svc.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}

	res = login()
	inactive := f.admin
	inactive.IsActive = false
	if err := f.ids.Repository().Update(ctx, inactive); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for inactive user, got %v", err)
	}
}

func TestSignerParse(t *testing.T) {
	signer := NewSigner("secret", "fieldops")
	now := time.Now()

	token, err := signer.Sign("s1", "u1", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != "s1" || claims.Subject != "u1" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := NewSigner("other", "fieldops").Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign secret, got %v", err)
	}
	if _, err := NewSigner("secret", "elsewhere").Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign issuer, got %v", err)
	}
	if _, err := signer.Parse("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}

	expired, err := signer.Sign("s2", "u1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.Parse(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	now := time.Now().UTC()
	sess := Session{ID: "s1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected session %+v", got)
	}
	if ttl := mr.TTL(sessionPrefix + "s1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within a minute, got %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after expiry, got %v", err)
	}
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore().(*memorySessionStore)
	now := time.Now()
	store.nowF = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	store.nowF = func() time.Time { return now.Add(time.Minute) }
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
