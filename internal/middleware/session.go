package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/dto"
)

// RequireSession resolves the session token from the cookie or the bearer
// header and binds the user to the request.
func RequireSession(svc *auth.Service, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			return NewError(http.StatusUnauthorized, dto.CodeLoginRequired, dto.MessageLoginRequired)
		}

		user, sess, err := svc.Authenticate(c.UserContext(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrTokenExpired):
			return NewError(http.StatusUnauthorized, dto.CodeSessionExpired, dto.MessageSessionExpired)
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrSessionNotFound):
			return NewError(http.StatusUnauthorized, dto.CodeReauthRequired, dto.MessageReauthRequired)
		default:
			return err
		}

		auth.Bind(c, user, sess)
		return c.Next()
	}
}

// RequireRole rejects users whose role is not listed. It must run after
// RequireSession.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := auth.CurrentUser(c)
		if !ok {
			return NewError(http.StatusUnauthorized, dto.CodeLoginRequired, dto.MessageLoginRequired)
		}
		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}
		return NewError(http.StatusForbidden, dto.CodeForbidden, "you are not allowed to access this resource")
	}
}

func bearerToken(c *fiber.Ctx) string {
	const prefix = "bearer "
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) <= len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(prefix):])
}
