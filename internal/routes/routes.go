package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudipay/kudi_pay/internal/auth"
	"github.com/kudipay/kudi_pay/internal/config"
	"github.com/kudipay/kudi_pay/internal/kyc"
	"github.com/kudipay/kudi_pay/internal/ledger"
	"github.com/kudipay/kudi_pay/internal/middleware"
	"github.com/kudipay/kudi_pay/internal/notification"
	"github.com/kudipay/kudi_pay/internal/user"
	"github.com/kudipay/kudi_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backend
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB, d.Cfg.TxTimeout)
	} else {
		store = ledger.NewMemoryStore()
	}

	// Collaborators
	var verifier kyc.Verifier
	if d.Cfg.KYCBaseURL != "" {
		verifier = kyc.NewClient(d.Cfg.KYCBaseURL, d.Cfg.KYCAPIKey, d.Cfg.KYCTimeout)
	} else {
		verifier = kyc.Static{Eligible: true}
	}
	notifier := notification.NewLoggerNotifier(d.Logger)

	// Services and handlers
	tokens := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL)
	engine := ledger.NewEngine(store, d.Logger)
	userSvc := user.NewService(store, verifier, tokens, d.Logger)
	userHandler := user.NewHandler(userSvc)
	walletHandler := wallet.NewHandler(engine, store, notifier)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterUserRoutes(api, userHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(tokens, store)
	protected := api.Group("", jwtmw)
	RegisterWalletRoutes(protected, walletHandler)

	return nil
}
