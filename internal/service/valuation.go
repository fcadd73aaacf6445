package service

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Valuate prices holdings against quotes and aggregates the result in the home currency.
//
// Per holding:
//   - value = shares × price, cost = shares × average cost, both converted to home
//   - unrealized P/L = value − cost; percent is taken against |cost| and is 0 when cost is 0
//
// A holding without a quote is valued at its own average cost, so its P/L is zero and
// it is flagged Degraded. Long exposure sums the value of long holdings and short
// exposure sums |value| of short holdings; the two are never netted.
//
// Parameters:
//   - holdings: Open positions; shares are signed
//   - quotes: Latest quotes keyed by (symbol, market); missing keys are degraded
//   - conv: Converter for native → home amounts
//
// Returns:
//   - model.Valuation: Per-holding lines in input order plus totals
func Valuate(holdings []model.Holding, quotes map[model.QuoteKey]model.Quote, conv *currency.Converter) model.Valuation {
	v := model.Valuation{
		Holdings:          make([]model.HoldingValuation, 0, len(holdings)),
		TotalValue:        decimal.Zero,
		TotalCost:         decimal.Zero,
		UnrealizedPL:      decimal.Zero,
		UnrealizedPercent: decimal.Zero,
		LongExposure:      decimal.Zero,
		ShortExposure:     decimal.Zero,
	}

	for _, h := range holdings {
		line := valuateHolding(h, quotes, conv)

		v.TotalValue = v.TotalValue.Add(line.CurrentValue)
		v.TotalCost = v.TotalCost.Add(line.CostValue)
		v.UnrealizedPL = v.UnrealizedPL.Add(line.UnrealizedPL)
		if h.IsLong() {
			v.LongExposure = v.LongExposure.Add(line.CurrentValue)
		} else {
			v.ShortExposure = v.ShortExposure.Add(line.CurrentValue.Abs())
		}
		if line.Degraded {
			v.Degraded = true
		}

		v.Holdings = append(v.Holdings, line)
	}

	v.UnrealizedPercent = percentOf(v.UnrealizedPL, v.TotalCost)
	return v
}

func valuateHolding(h model.Holding, quotes map[model.QuoteKey]model.Quote, conv *currency.Converter) model.HoldingValuation {
	line := model.HoldingValuation{
		Holding:  h,
		Currency: h.Market.Currency(),
	}

	price := h.AverageCost
	if q, ok := quotes[h.Key()]; ok && q.Price.IsPositive() {
		price = q.Price
	} else {
		line.Degraded = true
	}

	shares := decimal.NewFromInt(h.Shares)
	line.CurrentPrice = price
	line.CurrentValue = conv.ToHome(shares.Mul(price), h.Market)
	line.CostValue = conv.ToHome(shares.Mul(h.AverageCost), h.Market)
	line.UnrealizedPL = line.CurrentValue.Sub(line.CostValue)
	line.UnrealizedPercent = percentOf(line.UnrealizedPL, line.CostValue)
	return line
}

// percentOf returns part / |whole| × 100, or 0 when whole is 0.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole.Abs()).Mul(hundred)
}

// QuoteSource resolves a single quote. *QuoteService satisfies it.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string, market model.Market) (model.Quote, error)
}

// ValuationService fetches quotes for holdings and values them.
type ValuationService struct {
	quotes      QuoteSource
	converter   *currency.Converter
	metrics     *metrics.Metrics
	concurrency int
	budget      time.Duration
}

// NewValuationService creates a new ValuationService. budget caps the time spent
// resolving quotes for one valuation; zero selects the quote gateway's default.
func NewValuationService(quotes QuoteSource, converter *currency.Converter, m *metrics.Metrics, budget time.Duration) *ValuationService {
	if budget <= 0 {
		budget = defaultQuoteBudget
	}
	return &ValuationService{
		quotes:      quotes,
		converter:   converter,
		metrics:     m,
		concurrency: batchQuoteConcurrency,
		budget:      budget,
	}
}

// Converter returns the currency converter used for valuations.
func (s *ValuationService) Converter() *currency.Converter {
	return s.converter
}

// ValueHoldings values one set of holdings.
func (s *ValuationService) ValueHoldings(ctx context.Context, holdings []model.Holding) model.Valuation {
	return s.ValuePortfolios(ctx, map[string][]model.Holding{"": holdings})[""]
}

// ValuePortfolios values holdings grouped by portfolio ID. Quotes are fetched once
// per distinct (symbol, market) across all portfolios, concurrently. A failed fetch
// degrades the affected lines instead of failing the valuation.
func (s *ValuationService) ValuePortfolios(ctx context.Context, byPortfolio map[string][]model.Holding) map[string]model.Valuation {
	start := time.Now()
	defer func() {
		s.metrics.ValuationDuration.Observe(time.Since(start).Seconds())
	}()

	quotes := s.fetchQuotes(ctx, byPortfolio)

	result := make(map[string]model.Valuation, len(byPortfolio))
	for portfolioID, holdings := range byPortfolio {
		v := Valuate(holdings, quotes, s.converter)
		for _, line := range v.Holdings {
			if line.Degraded {
				s.metrics.DegradedHoldings.Inc()
			}
		}
		result[portfolioID] = v
	}
	return result
}

func (s *ValuationService) fetchQuotes(ctx context.Context, byPortfolio map[string][]model.Holding) map[model.QuoteKey]model.Quote {
	keys := make(map[model.QuoteKey]struct{})
	for _, holdings := range byPortfolio {
		for _, h := range holdings {
			keys[h.Key()] = struct{}{}
		}
	}

	// Keys still queued when the budget runs out degrade to cost.
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	var mu sync.Mutex
	quotes := make(map[model.QuoteKey]model.Quote, len(keys))

	// Errors are never returned to the group, so one bad symbol cannot cancel the rest.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for key := range keys {
		g.Go(func() error {
			q, err := s.quotes.GetQuote(ctx, key.Symbol, key.Market)
			if err != nil {
				log.Warn().Err(err).Str("symbol", key.Symbol).Str("market", string(key.Market)).Msg("valuing holding at cost, no quote available")
				return nil
			}
			mu.Lock()
			quotes[key] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return quotes
}
