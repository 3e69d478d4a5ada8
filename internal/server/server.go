package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/middleware"
	"github.com/fieldops/fieldops/internal/routes"
)

// uploadBodyLimit leaves room for a service request carrying several videos.
const uploadBodyLimit = 64 << 20

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// db and cache may be nil in development.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    uploadBodyLimit,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// App exposes the underlying Fiber app for in-process tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
