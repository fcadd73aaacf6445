package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

const defaultRefreshTimeout = 5 * time.Minute

// QuoteRefresher keeps the quote cache warm by refreshing every held symbol on a
// cron schedule.
type QuoteRefresher struct {
	holdingRepo *repository.HoldingRepository
	quotes      *QuoteService
	metrics     *metrics.Metrics
	cron        *cron.Cron
	timeout     time.Duration
}

// NewQuoteRefresher creates a refresher. It does nothing until Start is called.
func NewQuoteRefresher(holdingRepo *repository.HoldingRepository, quotes *QuoteService, m *metrics.Metrics) *QuoteRefresher {
	return &QuoteRefresher{
		holdingRepo: holdingRepo,
		quotes:      quotes,
		metrics:     m,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout:     defaultRefreshTimeout,
	}
}

// Start schedules RefreshAll with a standard cron expression or a descriptor such as
// "@every 1h". An empty schedule disables the refresher.
func (r *QuoteRefresher) Start(schedule string) error {
	if schedule == "" {
		log.Info().Msg("quote refresher disabled")
		return nil
	}

	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		refreshed, err := r.RefreshAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("scheduled quote refresh failed")
			return
		}
		log.Info().Int("refreshed", refreshed).Msg("scheduled quote refresh complete")
	})
	if err != nil {
		return fmt.Errorf("invalid quote refresh schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	log.Info().Str("schedule", schedule).Msg("quote refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish or ctx to expire.
func (r *QuoteRefresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("quote refresher did not stop before shutdown deadline")
	}
}

// RefreshAll fetches a fresh quote for every distinct held (symbol, market).
// Symbols that fail are logged and skipped; the returned count covers successful
// provider fetches only. It fails only when the held symbols cannot be listed.
func (r *QuoteRefresher) RefreshAll(ctx context.Context) (int, error) {
	keys, err := r.holdingRepo.GetHeldSymbols(ctx)
	if err != nil {
		r.metrics.QuoteRefreshRuns.WithLabelValues("error").Inc()
		return 0, storeError(err)
	}

	refreshed := 0
	for _, key := range keys {
		q, err := r.quotes.RefreshQuote(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("symbol", key.Symbol).Str("market", string(key.Market)).Msg("quote refresh failed")
			continue
		}
		if !q.Stale {
			refreshed++
		}
	}

	r.metrics.QuoteRefreshRuns.WithLabelValues("ok").Inc()
	return refreshed, nil
}
