package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteKey identifies a cached quote.
type QuoteKey struct {
	Symbol string `json:"symbol"`
	Market Market `json:"market"`
}

// Quote is a normalized end-of-day price snapshot. Prices are in the market's native currency.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Market        Market          `json:"market"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        int64           `json:"volume"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Date          string          `json:"date"`
	CachedAt      time.Time       `json:"lastUpdated"`
	Stale         bool            `json:"stale"`
}

// Key returns the cache key of the quote.
func (q Quote) Key() QuoteKey {
	return QuoteKey{Symbol: q.Symbol, Market: q.Market}
}
