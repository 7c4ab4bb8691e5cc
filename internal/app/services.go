package app

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/expenses"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/observability"
	"github.com/odyssey-erp/odyssey-tours/internal/payments"
	"github.com/odyssey-erp/odyssey-tours/internal/rates"
	"github.com/odyssey-erp/odyssey-tours/internal/reports"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Services is the dependency graph shared by the API server and the worker.
type Services struct {
	Tokens      *auth.TokenIssuer
	Guard       auth.Middleware
	Auth        *auth.Service
	FXRates     *fx.CachedSource
	FX          *fx.Service
	ReportCache *reports.Cache
	Rates       *rates.Service
	Bookings    *bookings.Service
	Payments    *payments.Service
	Expenses    *expenses.Service
	Reports     *reports.Service
	Idempotency *shared.IdempotencyStore
}

// NewServices wires repositories and services from configuration. Metrics
// may be nil in the worker.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *observability.Metrics) *Services {
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	guard := auth.Middleware{Tokens: tokens, Logger: logger}

	var source fx.Source = fx.NewStaticSource(cfg.FXBaseCurrency, cfg.FXRates)
	if cfg.FXRatesURL != "" {
		source = fx.NewFallbackSource(fx.NewRemoteSource(cfg.FXRatesURL, cfg.FXBaseCurrency), source)
	}
	fxRates := fx.NewCachedSource(redisClient, source, cfg.FXCacheTTL)
	fxService := fx.NewService(fxRates)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	ratesService := rates.NewService(rates.NewRepository(pool))

	return &Services{
		Tokens:      tokens,
		Guard:       guard,
		Auth:        auth.NewService(auth.NewRepository(pool), tokens),
		FXRates:     fxRates,
		FX:          fxService,
		ReportCache: reportCache,
		Rates:       ratesService,
		Bookings: bookings.NewService(bookings.NewRepository(pool), ratesService,
			bookings.WithFX(fxService),
			bookings.WithCache(reportCache),
			bookings.WithMetrics(metrics),
			bookings.WithLogger(logger),
		),
		Payments: payments.NewService(payments.NewRepository(pool), fxService,
			payments.WithCache(reportCache),
			payments.WithMetrics(metrics),
			payments.WithLogger(logger),
		),
		Expenses: expenses.NewService(expenses.NewRepository(pool), fxService, reportCache, logger),
		Reports: reports.NewService(reports.NewRepository(pool), fxService, reportCache,
			reports.WithMetrics(metrics),
			reports.WithLogger(logger),
			reports.WithClock(func() time.Time { return time.Now().UTC() }),
		),
		Idempotency: shared.NewIdempotencyStore(pool),
	}
}
