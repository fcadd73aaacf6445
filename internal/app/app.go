// Package app wires configuration, storage, the market-data client and the
// services together. Both the HTTP server and the operator CLI start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/marketstack"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
)

// Features reported by GET /api/system/version.
var Features = map[string]bool{
	"short_selling":     true,
	"multi_market":      true,
	"quote_refresher":   true,
	"redis_quote_cache": true,
}

// App holds the long-lived dependencies of a running process.
type App struct {
	DB        *sql.DB
	Registry  *prometheus.Registry
	Services  api.Services
	Refresher *service.QuoteRefresher

	closers []func() error
}

// New opens the database, applies pending migrations and builds every service.
// The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &App{DB: db, closers: []func() error{db.Close}}

	version, err := database.Migrate(ctx, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Info().Str("database", cfg.Database.URL).Int64("schema_version", version).Msg("database ready")

	cache, err := newQuoteCache(ctx, cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := cache.(*repository.RedisQuoteCache); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.Registry = metrics.NewRegistry()
	m := metrics.New(a.Registry)

	client := marketstack.NewEODClient(cfg.Marketstack.BaseURL, cfg.Marketstack.APIKey, cfg.Marketstack.Timeout.Duration)
	converter := currency.New(currency.Rates{
		USDToHKD: cfg.Trading.USDToHKD,
		HKDToCNY: cfg.Trading.HKDToCNY,
	})

	portfolioRepo := repository.NewPortfolioRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	realizedRepo := repository.NewRealizedGainLossRepository(db)

	quoteService := service.NewQuoteService(client, cache, m, service.QuoteOptions{
		Freshness: cfg.Quotes.Freshness.Duration,
		Timeout:   cfg.Marketstack.Timeout.Duration,
		Budget:    cfg.Marketstack.Budget.Duration,
		Retries:   cfg.Marketstack.Retries,
	})
	valuationService := service.NewValuationService(quoteService, converter, m, cfg.Marketstack.Budget.Duration)
	profileService := service.NewProfileService(
		db,
		profileRepo,
		portfolioRepo,
		decimal.NewFromFloat(cfg.Trading.StartingCash),
	)
	sessionService, err := service.NewSessionService(cfg.Session.Key, cfg.Session.TTL.Duration, profileService)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = api.Services{
		System:  service.NewSystemService(db, converter, Features),
		Session: sessionService,
		Profile: profileService,
		Portfolio: service.NewPortfolioService(
			db,
			portfolioRepo,
			holdingRepo,
			realizedRepo,
			valuationService,
		),
		Trade: service.NewTradeService(
			db,
			portfolioRepo,
			profileRepo,
			holdingRepo,
			transactionRepo,
			realizedRepo,
			quoteService,
			converter,
			m,
		),
		Transaction: service.NewTransactionService(transactionRepo, portfolioRepo),
		Quote:       quoteService,
	}
	a.Refresher = service.NewQuoteRefresher(holdingRepo, quoteService, m)

	return a, nil
}

func newQuoteCache(ctx context.Context, cfg *config.Config, db *sql.DB) (service.QuoteCache, error) {
	if cfg.Quotes.CacheBackend != "redis" {
		return repository.NewQuoteCacheRepository(db), nil
	}
	cache, err := repository.NewRedisQuoteCache(ctx, cfg.Quotes.RedisAddr, cfg.Quotes.RedisPassword, cfg.Quotes.RedisDB)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Quotes.RedisAddr).Msg("using redis quote cache")
	return cache, nil
}

// Close releases the database and cache connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
}
