package request

import "github.com/shopspring/decimal"

// TradeRequest represents the request body for POST /api/portfolio/{uuid}/trade.
// Price is optional; when omitted the latest quote is used.
type TradeRequest struct {
	Symbol string           `json:"symbol"`
	Name   string           `json:"name,omitempty"`
	Market string           `json:"market"`
	Type   string           `json:"type"`
	Shares int64            `json:"shares"`
	Price  *decimal.Decimal `json:"price,omitempty"`
}
