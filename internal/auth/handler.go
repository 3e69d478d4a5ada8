package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/dto"
	"github.com/fieldops/fieldops/internal/form"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/otp"
)

const (
	localUser    = "auth.user"
	localSession = "auth.session"
)

// Bind stores the authenticated user and session on the request.
func Bind(c *fiber.Ctx, user identity.User, sess Session) {
	c.Locals(localUser, user)
	c.Locals(localSession, sess)
}

// CurrentUser returns the user bound by the session middleware.
func CurrentUser(c *fiber.Ctx) (identity.User, bool) {
	user, ok := c.Locals(localUser).(identity.User)
	return user, ok
}

// CurrentSession returns the session bound by the session middleware.
func CurrentSession(c *fiber.Ctx) (Session, bool) {
	sess, ok := c.Locals(localSession).(Session)
	return sess, ok
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler exposes the OTP login endpoints.
type Handler struct {
	svc    *Service
	cookie CookieConfig
	logger *slog.Logger
}

// NewHandler builds the auth HTTP handler.
func NewHandler(svc *Service, cookie CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, cookie: cookie, logger: logger}
}

// SendOTP issues a login code.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req dto.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := form.Validate(req); err != nil {
		return err
	}
	if err := h.svc.SendOTP(c.UserContext(), req.Mobile); err != nil {
		return loginError(err)
	}
	return c.Status(http.StatusOK).JSON(dto.Message{Message: "Otp sent successfully"})
}

// Login exchanges a code for a session cookie and token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := form.Validate(req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.UserContext(), req.Mobile, req.OTP)
	if err != nil {
		return loginError(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	h.logger.Info("auth.login completed", slog.String("user_id", res.User.ID), slog.String("role", res.User.Role))
	return c.Status(http.StatusOK).JSON(dto.LoginResponse{User: identity.ToDTO(res.User), Token: res.Token})
}

// Logout revokes the current session and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if sess, ok := CurrentSession(c); ok {
		if err := h.svc.Logout(c.UserContext(), sess.ID); err != nil {
			return err
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
	})
	return c.Status(http.StatusOK).JSON(dto.Message{Message: "Logged out"})
}

// Profile returns the logged in user.
func (h *Handler) Profile(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, dto.MessageLoginRequired)
	}
	return c.JSON(dto.ProfileResponse{User: identity.ToDTO(user)})
}

// DevOTP returns the pending code for ?mobile= from the development inbox.
func (h *Handler) DevOTP(c *fiber.Ctx) error {
	code, ok := h.svc.PendingOTP(c.UserContext(), c.Query("mobile"))
	if !ok {
		return fiber.NewError(http.StatusNotFound, "no pending otp")
	}
	return c.JSON(dto.DevOTPResponse{OTP: code})
}

func loginError(err error) error {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrInactive):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, otp.ErrInvalid), errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrTooManyAttempts):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
