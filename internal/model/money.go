package model

import "github.com/shopspring/decimal"

func init() {
	// API consumers expect JSON numbers, not quoted decimal strings.
	decimal.MarshalJSONWithoutQuotes = true
}
