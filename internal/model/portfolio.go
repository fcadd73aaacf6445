package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPortfolioName and DefaultPortfolioDescription describe the portfolio
// provisioned for every new user.
const (
	DefaultPortfolioName        = "Main Portfolio"
	DefaultPortfolioDescription = "My primary trading portfolio"
)

// Portfolio is a named grouping of holdings and transactions owned by one user.
type Portfolio struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PortfolioSummary is a portfolio together with its computed valuation.
// All monetary values are in the home currency.
type PortfolioSummary struct {
	ID                      string          `json:"id"`
	Name                    string          `json:"name"`
	Description             string          `json:"description"`
	HoldingCount            int             `json:"holdingCount"`
	TotalValue              decimal.Decimal `json:"totalValue"`
	TotalCost               decimal.Decimal `json:"totalCost"`
	TotalUnrealizedGainLoss decimal.Decimal `json:"totalUnrealizedGainLoss"`
	TotalUnrealizedPercent  decimal.Decimal `json:"totalUnrealizedPercent"`
	TotalRealizedGainLoss   decimal.Decimal `json:"totalRealizedGainLoss"`
	LongExposure            decimal.Decimal `json:"longExposure"`
	ShortExposure           decimal.Decimal `json:"shortExposure"`
	Degraded                bool            `json:"degraded"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`
}
