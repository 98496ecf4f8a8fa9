package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/walletgrid/walletgrid/internal/config"
	"github.com/walletgrid/walletgrid/internal/ledger"
	"github.com/walletgrid/walletgrid/internal/middleware"
	"github.com/walletgrid/walletgrid/internal/notification"
	"github.com/walletgrid/walletgrid/internal/transaction"
	"github.com/walletgrid/walletgrid/internal/transfer"
	"github.com/walletgrid/walletgrid/internal/user"
	"github.com/walletgrid/walletgrid/internal/wallet"
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
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	userRepo := user.NewPostgresRepository(d.DB)
	walletRepo := wallet.NewPostgresRepository(d.DB)
	txStore := transaction.NewPostgresStore(d.DB)

	userSvc := user.NewService(userRepo)
	walletSvc := wallet.NewService(walletRepo, userRepo)
	balanceLedger := ledger.New(walletRepo,
		ledger.WithMaxAttempts(d.Cfg.TransferMaxAttempts),
		ledger.WithRetryDelay(d.Cfg.TransferRetryDelay),
	)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transferSvc := transfer.NewService(walletSvc, balanceLedger, txStore, notifier)

	userHandler := user.NewHandler(userSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	transferHandler := transfer.NewHandler(transferSvc)

	api := app.Group("/api/v1")
	RegisterUserRoutes(api, userHandler, walletHandler)
	RegisterWalletRoutes(api, walletHandler, transferHandler)
	RegisterTransferRoutes(api, transferHandler)

	return nil
}
