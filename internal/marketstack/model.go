package marketstack

import (
	"github.com/shopspring/decimal"
)

// Response represents the raw JSON body returned by the Marketstack EOD endpoints.
//
// The structure includes:
//   - Pagination: paging metadata (unused for latest queries)
//   - Data: one entry per requested symbol that the provider recognized
//   - Error: set instead of Data when the request was rejected
type Response struct {
	Pagination *Pagination `json:"pagination,omitempty"`
	Data       []EOD       `json:"data"`
	Error      *APIError   `json:"error,omitempty"`
}

// Pagination describes the paging window of a Marketstack response.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

// EOD is one end-of-day price bar. Prices are in the listing currency of the exchange.
type EOD struct {
	Symbol   string          `json:"symbol"`
	Exchange string          `json:"exchange"`
	Date     string          `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   float64         `json:"volume"`
}

// APIError is the error object Marketstack returns for rejected requests
// (invalid access key, usage limit reached, unknown symbol).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return "marketstack error " + e.Code + ": " + e.Message
}
