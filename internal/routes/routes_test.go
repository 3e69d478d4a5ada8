package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/logging"
	"github.com/fieldops/fieldops/internal/middleware"
)

const adminMobile = "9999999999"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := logging.Discard()
	cfg := config.Config{
		AppName:         "FieldOps",
		Env:             "test",
		IdempotencyTTL:  time.Hour,
		SessionSecret:   "secret",
		SessionTTL:      time.Hour,
		SessionCookie:   "sid",
		OTPTTL:          time.Minute,
		OTPBcryptCost:   bcrypt.MinCost,
		OTPReturnToDev:  true,
		LoginRatePerMin: 100,
		AdminMobile:     adminMobile,
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	if err := Setup(app, Deps{Cfg: cfg, Logger: logger}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func login(t *testing.T, app *fiber.App, mobile string) *http.Cookie {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/v1/sendotp", `{"mobile":"`+mobile+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sendotp: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/dev/otp?mobile="+mobile, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev otp: expected 200, got %d", resp.StatusCode)
	}
	var pending dto.DevOTPResponse
	decode(t, resp, &pending)
	code, err := strconv.Atoi(pending.OTP)
	if err != nil {
		t.Fatalf("otp %q: %v", pending.OTP, err)
	}

	resp = do(t, app, http.MethodPost, "/api/v1/login", `{"mobile":"`+mobile+`","otp":`+strconv.Itoa(code)+`}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" && c.Value != "" {
			if !c.HttpOnly {
				t.Fatalf("expected http only session cookie")
			}
			return c
		}
	}
	t.Fatalf("expected session cookie")
	return nil
}

func TestLoginProfileLogout(t *testing.T) {
	app := newTestApp(t)
	cookie := login(t, app, adminMobile)

	resp := do(t, app, http.MethodGet, "/api/v1/profile", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", resp.StatusCode)
	}
	var profile dto.ProfileResponse
	decode(t, resp, &profile)
	if profile.User.Role != dto.RoleAdmin || profile.User.Mobile != adminMobile {
		t.Fatalf("unexpected profile %+v", profile.User)
	}
	if profile.User.LastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}

	resp = do(t, app, http.MethodPost, "/api/v1/logout", "", cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/profile", "", cookie)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
	var body dto.Error
	decode(t, resp, &body)
	if body.Code != dto.CodeReauthRequired {
		t.Fatalf("expected reauth_required, got %q", body.Code)
	}
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/machines", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body dto.Error
	decode(t, resp, &body)
	if body.Code != dto.CodeLoginRequired || body.Message != dto.MessageLoginRequired {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestSendOTPUnknownMobile(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/sendotp", `{"mobile":"8888888888"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSendOTPValidation(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/sendotp", `{"mobile":"12"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body dto.Error
	decode(t, resp, &body)
	if body.Code != dto.CodeValidation || body.Message != "mobile must be 10 digits" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestWrongOTPIsRejected(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/api/v1/sendotp", `{"mobile":"`+adminMobile+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sendotp: expected 200, got %d", resp.StatusCode)
	}
	resp = do(t, app, http.MethodGet, "/api/v1/dev/otp?mobile="+adminMobile, "")
	var pending dto.DevOTPResponse
	decode(t, resp, &pending)
	code, _ := strconv.Atoi(pending.OTP)

	resp = do(t, app, http.MethodPost, "/api/v1/login", `{"mobile":"`+adminMobile+`","otp":`+strconv.Itoa((code+1)%1000000)+`}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "sid" && c.Value != "" {
			t.Fatalf("no session cookie expected on failed login")
		}
	}
}

func TestRegisteredOwnerCanLogIn(t *testing.T) {
	app := newTestApp(t)

	body := `{"name":"Acme Foods","address":"12 Mill Road","gst":"22AAAAA0000A1Z5","pincode":560001,"email":"ops@acme.test","mobile":"9000000001"}`
	resp := do(t, app, http.MethodPost, "/api/v1/customers", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodPost, "/api/v1/customers", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.StatusCode)
	}

	cookie := login(t, app, "9000000001")
	resp = do(t, app, http.MethodGet, "/api/v1/profile", "", cookie)
	var profile dto.ProfileResponse
	decode(t, resp, &profile)
	if profile.User.Role != dto.RoleOwner {
		t.Fatalf("expected owner, got %s", profile.User.Role)
	}
	if profile.User.Customer == nil || profile.User.Customer.Label != "Acme Foods" {
		t.Fatalf("expected customer ref, got %+v", profile.User.Customer)
	}

	resp = do(t, app, http.MethodPost, "/api/v1/engineers", `{"username":"field-eng","mobile":"9000000002","customer":"x"}`, cookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner creating engineer: expected 403, got %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "fieldops_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
