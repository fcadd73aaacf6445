package model

import "github.com/shopspring/decimal"

// HoldingValuation is one holding priced against its latest quote.
// CurrentPrice and AverageCost are native; the remaining amounts are home currency.
type HoldingValuation struct {
	Holding
	Currency          string          `json:"currency"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	CostValue         decimal.Decimal `json:"costValue"`
	UnrealizedPL      decimal.Decimal `json:"unrealizedPL"`
	UnrealizedPercent decimal.Decimal `json:"unrealizedPercent"`
	Degraded          bool            `json:"degraded"`
}

// Valuation aggregates holding valuations. Long and short exposure are reported
// separately and never netted.
type Valuation struct {
	Holdings          []HoldingValuation `json:"holdings"`
	TotalValue        decimal.Decimal    `json:"totalValue"`
	TotalCost         decimal.Decimal    `json:"totalCost"`
	UnrealizedPL      decimal.Decimal    `json:"unrealizedPL"`
	UnrealizedPercent decimal.Decimal    `json:"unrealizedPercent"`
	LongExposure      decimal.Decimal    `json:"longExposure"`
	ShortExposure     decimal.Decimal    `json:"shortExposure"`
	Degraded          bool               `json:"degraded"`
}
