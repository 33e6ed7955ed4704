package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/prep-pay/prep_pay/internal/config"
	"github.com/prep-pay/prep_pay/internal/middleware"
	"github.com/prep-pay/prep_pay/internal/notification"
	"github.com/prep-pay/prep_pay/internal/payout"
	"github.com/prep-pay/prep_pay/internal/paystack"
	"github.com/prep-pay/prep_pay/internal/wallet"
	"github.com/prep-pay/prep_pay/internal/webhook"
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
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var walletRepo wallet.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
	}
	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(walletRepo, notifier)

	var guard *webhook.ReplayGuard
	if d.Cache != nil {
		guard = webhook.NewReplayGuard(d.Cache, d.Cfg.ReplayTTL, d.Logger)
	}
	webhookHandler := webhook.NewHandler(d.Cfg.PaystackSecretKey, walletSvc, guard, d.Logger)

	provider := paystack.NewClient(d.Cfg.PaystackSecretKey, d.Cfg.PaystackBaseURL)
	payoutSvc, err := payout.NewService(walletSvc, provider, notifier, d.Logger)
	if err != nil {
		return err
	}
	payoutHandler := payout.NewHandler(payoutSvc)
	walletHandler := wallet.NewHandler(walletSvc)

	api := app.Group("/api/v1")

	RegisterWebhookRoutes(api, webhookHandler)
	RegisterWalletRoutes(api, walletHandler)
	RegisterPayoutRoutes(api, payoutHandler)

	return nil
}
