package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an order.
type TradeSide string

// Trade sides.
const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Valid reports whether s is buy or sell.
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Transaction is the immutable record of one executed order.
// Shares is always positive; direction is carried by Type.
type Transaction struct {
	ID              string          `json:"id"`
	PortfolioID     string          `json:"portfolioId"`
	UserID          string          `json:"userId"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Market          Market          `json:"market"`
	Type            TradeSide       `json:"type"`
	Shares          int64           `json:"shares"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TransactionDate time.Time       `json:"transactionDate"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// TransactionFilters narrows a transaction history query.
// Zero values mean "no constraint".
type TransactionFilters struct {
	PortfolioID string
	Type        TradeSide
	Symbol      string
	Market      Market
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
}
