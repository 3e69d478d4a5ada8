package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldops/internal/auth"
)

// RegisterAuthRoutes wires the public OTP login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/sendotp", rateLimiter, h.SendOTP)
		r.Post("/login", rateLimiter, h.Login)
		return
	}
	r.Post("/sendotp", h.SendOTP)
	r.Post("/login", h.Login)
}

// RegisterSessionRoutes wires endpoints that need a session.
func RegisterSessionRoutes(r fiber.Router, h *auth.Handler) {
	r.Post("/logout", h.Logout)
	r.Get("/profile", h.Profile)
}
