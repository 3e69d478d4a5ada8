package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
)

// quietPaths are probed constantly and only logged at debug level.
var quietPaths = map[string]bool{"/healthz": true, "/metrics": true}

// Audit logs one line per request with the caller and outcome. Server
// failures log at error, rejected requests at warn.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := statusOf(c, err)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if user, ok := auth.CurrentUser(c); ok {
			attrs = append(attrs, slog.String("user_id", user.ID), slog.String("role", user.Role))
		}

		switch {
		case err != nil && status >= fiber.StatusInternalServerError:
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			logger.Warn("request rejected", append(attrs, slog.String("error", err.Error()))...)
		case quietPaths[c.Path()]:
			logger.Debug("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
