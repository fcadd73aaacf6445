package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the net open position in one symbol on one market within a portfolio.
// Shares is signed: positive for long, negative for short. A holding is never
// stored with zero shares.
type Holding struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolioId"`
	UserID      string          `json:"userId"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Market      Market          `json:"market"`
	Shares      int64           `json:"shares"`
	AverageCost decimal.Decimal `json:"averageCost"` // native currency
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsLong reports whether the holding owns shares.
func (h Holding) IsLong() bool { return h.Shares > 0 }

// IsShort reports whether the holding owes shares.
func (h Holding) IsShort() bool { return h.Shares < 0 }

// Key returns the quote lookup key for the holding.
func (h Holding) Key() QuoteKey {
	return QuoteKey{Symbol: h.Symbol, Market: h.Market}
}
