package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/marketstack"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// QuoteCache is the storage behind the quote gateway. Implementations return
// apperrors.ErrQuoteNotCached for keys that were never stored.
type QuoteCache interface {
	GetQuote(ctx context.Context, key model.QuoteKey) (model.Quote, error)
	PutQuote(ctx context.Context, q model.Quote) error
}

// QuoteOptions tunes the quote gateway. Zero values fall back to the defaults below.
type QuoteOptions struct {
	Freshness  time.Duration // default 1h
	Timeout    time.Duration // per provider call, default 10s
	Budget     time.Duration // all attempts of one fetch together, default 12s
	Retries    int           // additional attempts after the first, default 0
	RetryDelay time.Duration // constant backoff between attempts, default 250ms
}

const (
	defaultQuoteFreshness  = time.Hour
	defaultProviderTimeout = 10 * time.Second
	defaultQuoteBudget     = 12 * time.Second
	defaultRetryDelay      = 250 * time.Millisecond
	batchQuoteConcurrency  = 8
)

// QuoteService resolves (symbol, market) pairs to quotes. It serves fresh cache
// entries directly, refreshes stale or missing ones from Marketstack and falls back
// to the last cached value when the provider fails.
type QuoteService struct {
	client  marketstack.Client
	cache   QuoteCache
	metrics *metrics.Metrics
	opts    QuoteOptions
	group   singleflight.Group
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(client marketstack.Client, cache QuoteCache, m *metrics.Metrics, opts QuoteOptions) *QuoteService {
	if opts.Freshness <= 0 {
		opts.Freshness = defaultQuoteFreshness
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProviderTimeout
	}
	if opts.Budget <= 0 {
		opts.Budget = defaultQuoteBudget
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &QuoteService{
		client:  client,
		cache:   cache,
		metrics: m,
		opts:    opts,
	}
}

// GetQuote returns the quote for a symbol on a market.
//
// A cache entry younger than the freshness window is returned unchanged. Anything
// older, or a miss, triggers a provider fetch whose result overwrites the cache.
// Concurrent misses for the same key share a single provider call.
//
// Parameters:
//   - ctx: Bounds the cache lookup and the provider fetch
//   - symbol: Exchange-neutral ticker; trimmed and upper-cased here
//   - market: One of the supported market codes
//
// Returns:
//   - model.Quote: The quote; Stale is set when it came from cache after a provider failure
//   - error: ErrUnsupportedMarket, ErrInvalidOrder for an empty symbol, or
//     ErrQuoteUnavailable when the provider failed and nothing was cached
func (s *QuoteService) GetQuote(ctx context.Context, symbol string, market model.Market) (model.Quote, error) {
	key, err := quoteKey(symbol, market)
	if err != nil {
		return model.Quote{}, err
	}

	cached := s.lookup(ctx, key)
	if cached != nil && time.Since(cached.CachedAt) < s.opts.Freshness {
		s.metrics.QuoteCacheHits.Inc()
		return *cached, nil
	}

	s.metrics.QuoteCacheMisses.Inc()
	return s.refresh(ctx, key, cached)
}

// GetQuotes resolves several keys concurrently. It fails if any lookup fails;
// results are returned in the order of keys.
func (s *QuoteService) GetQuotes(ctx context.Context, keys []model.QuoteKey) ([]model.Quote, error) {
	quotes := make([]model.Quote, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchQuoteConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			q, err := s.GetQuote(gctx, key.Symbol, key.Market)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", key.Market, key.Symbol, err)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return quotes, nil
}

// RefreshQuote bypasses the freshness check and fetches the key from the provider.
// It falls back to the cached entry exactly like GetQuote.
func (s *QuoteService) RefreshQuote(ctx context.Context, key model.QuoteKey) (model.Quote, error) {
	key, err := quoteKey(key.Symbol, key.Market)
	if err != nil {
		return model.Quote{}, err
	}
	return s.refresh(ctx, key, s.lookup(ctx, key))
}

// lookup reads the cache. A read failure is logged and treated as a miss.
func (s *QuoteService) lookup(ctx context.Context, key model.QuoteKey) *model.Quote {
	q, err := s.cache.GetQuote(ctx, key)
	if err == nil {
		return &q
	}
	if !errors.Is(err, apperrors.ErrQuoteNotCached) {
		log.Warn().Err(err).Str("symbol", key.Symbol).Str("market", string(key.Market)).Msg("quote cache read failed")
	}
	return nil
}

func (s *QuoteService) refresh(ctx context.Context, key model.QuoteKey, cached *model.Quote) (model.Quote, error) {
	v, err, _ := s.group.Do(string(key.Market)+":"+key.Symbol, func() (any, error) {
		q, err := s.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		if cached != nil && cached.Name != "" && cached.Name != cached.Symbol {
			q.Name = cached.Name
		}
		if err := s.cache.PutQuote(ctx, q); err != nil {
			log.Warn().Err(err).Str("symbol", key.Symbol).Str("market", string(key.Market)).Msg("failed to write quote cache")
		}
		return q, nil
	})
	if err == nil {
		return v.(model.Quote), nil
	}

	s.metrics.QuoteProviderErrors.Inc()
	if cached != nil {
		s.metrics.QuoteStaleServed.Inc()
		log.Warn().Err(err).
			Str("symbol", key.Symbol).
			Str("market", string(key.Market)).
			Time("cached_at", cached.CachedAt).
			Msg("provider fetch failed, serving stale quote")
		stale := *cached
		stale.Stale = true
		return stale, nil
	}
	return model.Quote{}, fmt.Errorf("%w: %s on %s: %w", apperrors.ErrQuoteUnavailable, key.Symbol, key.Market, err)
}

// fetch calls the provider with retries and converts the bar for key into a Quote.
// Retries stop once the budget is spent, whatever the per-call timeout allows.
func (s *QuoteService) fetch(ctx context.Context, key model.QuoteKey) (model.Quote, error) {
	providerSymbol := marketstack.Symbol(key.Symbol, key.Market)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Budget)
	defer cancel()

	start := time.Now()
	defer func() {
		s.metrics.QuoteProviderLatency.Observe(time.Since(start).Seconds())
	}()

	var bars []marketstack.EOD
	backoff := retry.WithMaxRetries(uint64(s.opts.Retries), retry.NewConstant(s.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		result, err := s.client.LatestEOD(callCtx, providerSymbol)
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		bars = result
		return nil
	})
	if err != nil {
		return model.Quote{}, err
	}

	for _, bar := range bars {
		if strings.EqualFold(bar.Symbol, providerSymbol) {
			return quoteFromEOD(key, bar, time.Now()), nil
		}
	}
	if len(bars) == 1 && bars[0].Symbol == "" {
		return quoteFromEOD(key, bars[0], time.Now()), nil
	}
	return model.Quote{}, fmt.Errorf("%w for %s", apperrors.ErrProviderEmptyResult, providerSymbol)
}

// retryable reports whether a provider error may clear up on another attempt.
// Rejected requests (bad key, unknown symbol) are final.
func retryable(err error) bool {
	var apiErr *marketstack.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == "rate_limit_reached"
	}
	var statusErr *marketstack.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// quoteFromEOD normalizes a provider bar. Change is measured against the open.
func quoteFromEOD(key model.QuoteKey, bar marketstack.EOD, now time.Time) model.Quote {
	change := bar.Close.Sub(bar.Open)
	changePercent := decimal.Zero
	if !bar.Open.IsZero() {
		changePercent = change.Div(bar.Open).Mul(decimal.NewFromInt(100))
	}

	date := bar.Date
	if len(date) >= 10 {
		date = date[:10]
	}

	return model.Quote{
		Symbol:        key.Symbol,
		Market:        key.Market,
		Name:          key.Symbol,
		Price:         bar.Close,
		Open:          bar.Open,
		High:          bar.High,
		Low:           bar.Low,
		Close:         bar.Close,
		Volume:        int64(bar.Volume),
		Change:        change,
		ChangePercent: changePercent,
		Date:          date,
		CachedAt:      now.UTC(),
	}
}

// quoteKey validates and normalizes a lookup key.
func quoteKey(symbol string, market model.Market) (model.QuoteKey, error) {
	m, ok := model.ParseMarket(string(market))
	if !ok {
		return model.QuoteKey{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedMarket, market)
	}
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.QuoteKey{}, fmt.Errorf("%w: symbol is required", apperrors.ErrInvalidOrder)
	}
	return model.QuoteKey{Symbol: symbol, Market: m}, nil
}
