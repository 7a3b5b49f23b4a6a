// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"ledgerwallet/internal/handlers"
	"ledgerwallet/internal/middleware"
	"ledgerwallet/internal/models"
	"ledgerwallet/internal/observability"
	"ledgerwallet/internal/repositories"
	"ledgerwallet/internal/repositories/cache"
	"ledgerwallet/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the services the routes are served by.
type Dependencies struct {
	Wallets   *wallet.Service
	Store     *repositories.LedgerStore
	Cache     *cache.CacheService
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	JWTSecret string
	Logger    *zap.Logger
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	if deps.Metrics != nil {
		app.Use(middleware.Metrics(deps.Metrics))
	}

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Cache)
	app.Get("/health", healthHandler.HealthCheck)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	auth := middleware.NewAuthMiddleware(deps.JWTSecret, deps.Logger)
	walletHandler := handlers.NewWalletHandler(deps.Wallets, deps.Store, deps.Logger)

	api := app.Group("/api", auth.Handler)
	api.Get("/cache/stats", middleware.RequireScope(models.ScopeWalletAdmin), healthHandler.CacheStats)

	wallets := api.Group("/wallets/:id")
	wallets.Get("/balance", middleware.RequireScope(models.ScopeWalletRead), walletHandler.GetBalance)
	wallets.Get("/transactions", middleware.RequireScope(models.ScopeWalletRead), walletHandler.ListTransactions)
	wallets.Post("/credit", middleware.RequireScope(models.ScopeWalletWrite), walletHandler.Credit)
	wallets.Post("/debit", middleware.RequireScope(models.ScopeWalletWrite), walletHandler.Debit)
}
