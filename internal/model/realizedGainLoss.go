package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealizedGainLoss records the profit or loss locked in when a trade reduces,
// closes or flips an existing position. Amounts are in the market's native currency.
type RealizedGainLoss struct {
	ID               string          `json:"id"`
	PortfolioID      string          `json:"portfolioId"`
	TransactionID    string          `json:"transactionId"`
	Symbol           string          `json:"symbol"`
	Market           Market          `json:"market"`
	TransactionDate  time.Time       `json:"transactionDate"`
	SharesClosed     int64           `json:"sharesClosed"`
	CostBasis        decimal.Decimal `json:"costBasis"`
	Proceeds         decimal.Decimal `json:"proceeds"`
	RealizedGainLoss decimal.Decimal `json:"realizedGainLoss"`
	CreatedAt        time.Time       `json:"createdAt"`
}
