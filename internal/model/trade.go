package model

import (
	"github.com/shopspring/decimal"
)

// Share limits. MaxOrderShares bounds a single order and MaxPositionShares the
// absolute size of a holding, which keeps signed share arithmetic far from int64 overflow.
const (
	MaxOrderShares    int64 = 1_000_000_000_000
	MaxPositionShares int64 = 1_000_000_000_000_000
)

// TradeOrder is a validated instruction to buy or sell shares in one symbol.
type TradeOrder struct {
	PortfolioID string
	UserID      string
	Symbol      string
	Name        string
	Market      Market
	Side        TradeSide
	Shares      int64
	Price       decimal.Decimal // native currency
}

// HoldingAction describes what a trade did to the holding it touched.
type HoldingAction string

// Holding actions.
const (
	HoldingCreated   HoldingAction = "created"
	HoldingIncreased HoldingAction = "increased"
	HoldingReduced   HoldingAction = "reduced"
	HoldingClosed    HoldingAction = "closed"
	HoldingFlipped   HoldingAction = "flipped"
)

// TradeOutcome is the result of applying one order to a holding.
// Holding is nil when the position was closed.
type TradeOutcome struct {
	Holding     *Holding
	Previous    *Holding
	Action      HoldingAction
	Transaction Transaction
	Realized    *RealizedGainLoss
}

// TradeResult is returned to API callers after a trade has been committed.
type TradeResult struct {
	Transaction      Transaction       `json:"transaction"`
	Holding          *Holding          `json:"holding"`
	Action           HoldingAction     `json:"action"`
	RealizedGainLoss *RealizedGainLoss `json:"realizedGainLoss,omitempty"`
	CashBalance      decimal.Decimal   `json:"cashBalance"`
	AmountHome       decimal.Decimal   `json:"amountHome"`
	Message          string            `json:"message"`
}
