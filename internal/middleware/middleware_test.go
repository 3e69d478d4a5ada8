package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/notification"
	"github.com/fieldops/fieldops/internal/otp"
)

type sessionFixture struct {
	app      *fiber.App
	svc      *auth.Service
	sessions auth.SessionStore
	signer   *auth.Signer
	user     identity.User
	inbox    *otp.Inbox
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()
	ids := identity.NewService(identity.NewMemoryRepository(), nil)
	user, err := ids.EnsureAdmin(ctx, "9999999999")
	if err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	inbox := otp.NewInbox()
	otps := otp.NewService(otp.NewMemoryStore(), notification.NewLoggerNotifier(logger),
		otp.Config{TTL: time.Minute, BcryptCost: bcrypt.MinCost, Inbox: inbox}, logger)
	sessions := auth.NewMemorySessionStore()
	signer := auth.NewSigner("secret", "test")
	svc := auth.NewService(ids, otps, sessions, signer, time.Hour, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Get("/profile", RequireSession(svc, "sid"), func(c *fiber.Ctx) error {
		u, _ := auth.CurrentUser(c)
		return c.SendString(u.ID)
	})
	app.Get("/engineers-only", RequireSession(svc, "sid"), RequireRole(identity.RoleEngineer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return sessionFixture{app: app, svc: svc, sessions: sessions, signer: signer, user: user, inbox: inbox}
}

func (f sessionFixture) login(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.SendOTP(ctx, f.user.Mobile); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	code, ok := f.inbox.Get(ctx, f.user.Mobile)
	if !ok {
		t.Fatalf("expected pending otp")
	}
	n := 0
	for _, r := range code {
		n = n*10 + int(r-'0')
	}
	res, err := f.svc.Login(ctx, f.user.Mobile, n)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.Token
}

func decodeError(t *testing.T, body io.Reader) dto.Error {
	t.Helper()
	var e dto.Error
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestRequireSessionMissingToken(t *testing.T) {
	f := newSessionFixture(t)
	resp, err := f.app.Test(httptest.NewRequest(fiber.MethodGet, "/profile", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	body := decodeError(t, resp.Body)
	if body.Code != dto.CodeLoginRequired || body.Message != dto.MessageLoginRequired {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRequireSessionBearerAndCookie(t *testing.T) {
	f := newSessionFixture(t)
	token := f.login(t)

	req := httptest.NewRequest(fiber.MethodGet, "/profile", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	got, _ := io.ReadAll(resp.Body)
	if string(got) != f.user.ID {
		t.Fatalf("expected user %s got %s", f.user.ID, got)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/profile", nil)
	req.Header.Set("Cookie", "sid="+token)
	resp, err = f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 via cookie got %d", resp.StatusCode)
	}
}

func TestRequireSessionExpiredToken(t *testing.T) {
	f := newSessionFixture(t)
	past := time.Now().Add(-2 * time.Hour)
	token, err := f.signer.Sign("gone", f.user.ID, past, past.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/profile", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body := decodeError(t, resp.Body)
	if resp.StatusCode != fiber.StatusUnauthorized || body.Code != dto.CodeSessionExpired || body.Message != dto.MessageSessionExpired {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, body)
	}
}

func TestRequireSessionRevoked(t *testing.T) {
	f := newSessionFixture(t)
	token := f.login(t)
	claims, err := f.signer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := f.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/profile", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body := decodeError(t, resp.Body)
	if body.Code != dto.CodeReauthRequired {
		t.Fatalf("expected reauth_required, got %+v", body)
	}
}

func TestRequireRoleForbidden(t *testing.T) {
	f := newSessionFixture(t)
	token := f.login(t)
	req := httptest.NewRequest(fiber.MethodGet, "/engineers-only", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.StatusCode)
	}
}

func TestErrorHandlerFieldErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Post("/", func(c *fiber.Ctx) error {
		return form.FieldErrors{"mobile": "mobile is required"}
	})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body := decodeError(t, resp.Body)
	if resp.StatusCode != fiber.StatusBadRequest || body.Code != dto.CodeValidation || body.Message != "mobile is required" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, body)
	}
}

func rateLimitedApp(cache *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Post("/sendotp", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postMobile(t *testing.T, app *fiber.App, mobile string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/sendotp", strings.NewReader(`{"mobile":"`+mobile+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestLoginRateLimitRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := rateLimitedApp(cache)
	for i := 0; i < 2; i++ {
		if got := postMobile(t, app, "9876543210"); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, got)
		}
	}
	if got := postMobile(t, app, "9876543210"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
	if got := postMobile(t, app, "9876543211"); got != fiber.StatusOK {
		t.Fatalf("other mobile should pass, got %d", got)
	}
}

func TestLoginRateLimitInMemory(t *testing.T) {
	app := rateLimitedApp(nil)
	for i := 0; i < 2; i++ {
		if got := postMobile(t, app, "9876543210"); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, got)
		}
	}
	if got := postMobile(t, app, "9876543210"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", got)
	}
}

func TestLoginRateLimitCountsLocallyWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	mr.Close()

	app := rateLimitedApp(cache)
	for i := 0; i < 2; i++ {
		if got := postMobile(t, app, "9876543210"); got != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, got)
		}
	}
	if got := postMobile(t, app, "9876543210"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 while redis is unreachable, got %d", got)
	}
}

func TestMetricsExposesRequests(t *testing.T) {
	m := NewMetrics("fieldops")
	app := fiber.New()
	app.Use(m.Handler())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Expose())

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil)); err != nil {
		t.Fatalf("ping: %v", err)
	}
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `fieldops_http_requests_total{method="GET",route="/ping",status="200"} 1`) {
		t.Fatalf("expected ping counter in metrics output:\n%s", body)
	}
}
