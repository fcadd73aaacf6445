package testutil

import (
	"database/sql"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/marketstack"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
)

// NewTestMetrics returns collectors registered on a private registry so tests can
// run in parallel without duplicate registration panics.
func NewTestMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	return metrics.New(prometheus.NewRegistry())
}

// NewTestConverter returns a converter using the default exchange rates.
func NewTestConverter() *currency.Converter {
	return currency.New(currency.DefaultRates())
}

// NewTestQuoteService creates a QuoteService backed by the SQLite quote cache and the
// given Marketstack client. Retries are disabled unless the test configures them.
func NewTestQuoteService(t *testing.T, db *sql.DB, client marketstack.Client) *service.QuoteService {
	t.Helper()
	return NewTestQuoteServiceWithOptions(t, db, client, service.QuoteOptions{})
}

// NewTestQuoteServiceWithOptions is NewTestQuoteService with custom gateway options.
// A zero RetryDelay is replaced with 1ms to keep retry tests fast.
func NewTestQuoteServiceWithOptions(t *testing.T, db *sql.DB, client marketstack.Client, opts service.QuoteOptions) *service.QuoteService {
	t.Helper()

	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}

	return service.NewQuoteService(
		client,
		repository.NewQuoteCacheRepository(db),
		NewTestMetrics(t),
		opts,
	)
}

func NewTestValuationService(t *testing.T, db *sql.DB, client marketstack.Client) *service.ValuationService {
	t.Helper()

	return service.NewValuationService(
		NewTestQuoteService(t, db, client),
		NewTestConverter(),
		NewTestMetrics(t),
		0,
	)
}

func NewTestTradeService(t *testing.T, db *sql.DB, client marketstack.Client) *service.TradeService {
	t.Helper()
	return NewTestTradeServiceWithOptions(t, db, client, service.QuoteOptions{})
}

// NewTestTradeServiceWithOptions is NewTestTradeService with custom quote gateway options.
func NewTestTradeServiceWithOptions(t *testing.T, db *sql.DB, client marketstack.Client, opts service.QuoteOptions) *service.TradeService {
	t.Helper()

	return service.NewTradeService(
		db,
		repository.NewPortfolioRepository(db),
		repository.NewProfileRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewRealizedGainLossRepository(db),
		NewTestQuoteServiceWithOptions(t, db, client, opts),
		NewTestConverter(),
		NewTestMetrics(t),
	)
}

func NewTestPortfolioService(t *testing.T, db *sql.DB, client marketstack.Client) *service.PortfolioService {
	t.Helper()

	return service.NewPortfolioService(
		db,
		repository.NewPortfolioRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRealizedGainLossRepository(db),
		NewTestValuationService(t, db, client),
	)
}

func NewTestTransactionService(t *testing.T, db *sql.DB) *service.TransactionService {
	t.Helper()

	return service.NewTransactionService(
		repository.NewTransactionRepository(db),
		repository.NewPortfolioRepository(db),
	)
}

func NewTestProfileService(t *testing.T, db *sql.DB) *service.ProfileService {
	t.Helper()

	return service.NewProfileService(
		db,
		repository.NewProfileRepository(db),
		repository.NewPortfolioRepository(db),
		service.DefaultStartingCash,
	)
}

// NewTestSessionService creates a SessionService with a freshly generated key and the
// given token lifetime.
func NewTestSessionService(t *testing.T, db *sql.DB, ttl time.Duration) *service.SessionService {
	t.Helper()

	key, err := service.GenerateSessionKey()
	if err != nil {
		t.Fatalf("Failed to generate session key: %v", err)
	}

	svc, err := service.NewSessionService(key, ttl, NewTestProfileService(t, db))
	if err != nil {
		t.Fatalf("Failed to create session service: %v", err)
	}
	return svc
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db, NewTestConverter(), map[string]bool{"short_selling": true})
}

func NewTestQuoteRefresher(t *testing.T, db *sql.DB, client marketstack.Client) *service.QuoteRefresher {
	t.Helper()

	return service.NewQuoteRefresher(
		repository.NewHoldingRepository(db),
		NewTestQuoteService(t, db, client),
		NewTestMetrics(t),
	)
}

// MakeEmail generates a unique, lower-case email address for testing.
//
// Example usage:
//
//	email := testutil.MakeEmail()
//	// Returns: "trader-x7k2p9@example.com"
func MakeEmail() string {
	return "trader-" + strings.ToLower(randomAlphanumeric(6)) + "@example.com"
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakePortfolioName generates a unique portfolio name for testing.
//
// Example usage:
//
//	name := testutil.MakePortfolioName("MyPortfolio")
//	// Returns: "MyPortfolio ABC123"
func MakePortfolioName(base string) string {
	if base == "" {
		base = "Portfolio"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

