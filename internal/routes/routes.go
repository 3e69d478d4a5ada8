package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/fieldops/internal/auth"
	"github.com/fieldops/fieldops/internal/config"
	"github.com/fieldops/fieldops/internal/customer"
	"github.com/fieldops/fieldops/internal/identity"
	"github.com/fieldops/fieldops/internal/machine"
	"github.com/fieldops/fieldops/internal/media"
	"github.com/fieldops/fieldops/internal/middleware"
	"github.com/fieldops/fieldops/internal/notification"
	"github.com/fieldops/fieldops/internal/otp"
	"github.com/fieldops/fieldops/internal/product"
	"github.com/fieldops/fieldops/internal/servicerequest"
	"github.com/fieldops/fieldops/internal/sparepart"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Media overrides the store chosen from configuration.
	Media media.Store
	// Notifier overrides the notifier chosen from configuration.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	metrics := middleware.NewMetrics("fieldops")
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(metrics.Handler())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Cfg.SessionCookie, d.Logger))
	}

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", metrics.Expose())

	store, err := mediaStore(d)
	if err != nil {
		return err
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = buildNotifier(d)
	}

	// Services
	identityRepo := identity.NewMemoryRepository()
	customerRepo := customer.NewMemoryRepository()
	machineRepo := machine.NewMemoryRepository()
	partRepo := sparepart.NewMemoryRepository()
	productRepo := product.NewMemoryRepository()
	requestRepo := servicerequest.NewMemoryRepository()
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		customerRepo = customer.NewPostgresRepository(d.DB)
		machineRepo = machine.NewPostgresRepository(d.DB)
		partRepo = sparepart.NewPostgresRepository(d.DB)
		productRepo = product.NewPostgresRepository(d.DB)
		requestRepo = servicerequest.NewPostgresRepository(d.DB)
	}

	identitySvc := identity.NewService(identityRepo, nil)
	customerSvc := customer.NewService(customerRepo, identitySvc, d.Logger)
	machineSvc := machine.NewService(machineRepo, store)
	partSvc := sparepart.NewService(partRepo, machineSvc, store)
	productSvc := product.NewService(productRepo, machineSvc, customerSvc)
	requestSvc := servicerequest.NewService(requestRepo, productSvc, customerSvc, identitySvc, store, notifier, d.Logger)

	if d.Cfg.AdminMobile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		admin, err := identitySvc.EnsureAdmin(ctx, d.Cfg.AdminMobile)
		cancel()
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		d.Logger.Info("admin account ready", slog.String("user_id", admin.ID), slog.String("mobile", admin.Mobile))
	}

	authSvc := buildAuth(d, identitySvc, notifier)
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{Name: d.Cfg.SessionCookie, Secure: d.Cfg.CookieSecure}, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRatePerMin)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	customerHandler := customer.NewHandler(customerSvc)
	api.Post("/customers", customerHandler.Register)
	if d.Cfg.OTPReturnToDev {
		api.Get("/dev/otp", authHandler.DevOTP)
	}

	// Protected routes
	protected := api.Group("", middleware.RequireSession(authSvc, d.Cfg.SessionCookie))
	RegisterSessionRoutes(protected, authHandler)
	RegisterIdentityRoutes(protected, customerHandler, identity.NewHandler(identitySvc, auth.CurrentUser))
	RegisterCatalogRoutes(protected, machine.NewHandler(machineSvc), sparepart.NewHandler(partSvc), product.NewHandler(productSvc))
	RegisterRequestRoutes(protected, servicerequest.NewHandler(requestSvc))

	if mem, ok := store.(*media.MemoryStore); ok {
		app.Get(media.PathPrefix+"*", mem.Handler)
	}
	return nil
}

func buildAuth(d Deps, ids *identity.Service, notifier notification.Notifier) *auth.Service {
	otpStore := otp.Store(otp.NewMemoryStore())
	sessions := auth.NewMemorySessionStore()
	if d.Cache != nil {
		otpStore = otp.NewRedisStore(d.Cache)
		sessions = auth.NewRedisSessionStore(d.Cache)
	}
	otpCfg := otp.Config{TTL: d.Cfg.OTPTTL, BcryptCost: d.Cfg.OTPBcryptCost}
	if d.Cfg.OTPReturnToDev {
		otpCfg.Inbox = otp.NewInbox()
	}
	otps := otp.NewService(otpStore, notifier, otpCfg, d.Logger)
	signer := auth.NewSigner(d.Cfg.SessionSecret, d.Cfg.AppName)
	return auth.NewService(ids, otps, sessions, signer, d.Cfg.SessionTTL, d.Logger)
}

func buildNotifier(d Deps) notification.Notifier {
	if d.Cfg.SMS.APIKey != "" {
		return notification.NewSMSNotifier(d.Cfg.SMS.APIKey, d.Cfg.SMS.BaseURL, d.Cfg.SMS.Sender)
	}
	n := notification.NewLoggerNotifier(d.Logger)
	n.ShowSecrets = d.Cfg.IsDev()
	return n
}

func mediaStore(d Deps) (media.Store, error) {
	if d.Media != nil {
		return d.Media, nil
	}
	if d.Cfg.Storage.Bucket == "" {
		if !d.Cfg.IsDev() {
			return nil, fmt.Errorf("S3_BUCKET must be set when APP_ENV=%s", d.Cfg.Env)
		}
		return media.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s3, err := media.NewS3Store(ctx, d.Cfg.Storage, d.Logger)
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}
