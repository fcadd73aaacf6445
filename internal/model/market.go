package model

import "strings"

// Market identifies the exchange a symbol trades on.
type Market string

// Supported markets.
const (
	MarketUS Market = "US"
	MarketHK Market = "HK"
	MarketCN Market = "CN"
)

// MarketInfo describes a supported market for API consumers.
type MarketInfo struct {
	Code     Market `json:"code"`
	Name     string `json:"name"`
	Suffix   string `json:"suffix"`
	Currency string `json:"currency"`
}

// SupportedMarkets lists every market a trade or quote may reference, in display order.
var SupportedMarkets = []MarketInfo{
	{Code: MarketHK, Name: "Hong Kong Stock Exchange", Suffix: ".XHKG", Currency: "HKD"},
	{Code: MarketCN, Name: "Shanghai Stock Exchange", Suffix: ".XSHG", Currency: "CNY"},
	{Code: MarketUS, Name: "US Stock Market", Suffix: "", Currency: "USD"},
}

// ParseMarket normalizes a market code. The second return value is false for unsupported codes.
func ParseMarket(code string) (Market, bool) {
	m := Market(strings.ToUpper(strings.TrimSpace(code)))
	return m, m.Valid()
}

// Valid reports whether m is one of the supported markets.
func (m Market) Valid() bool {
	switch m {
	case MarketUS, MarketHK, MarketCN:
		return true
	}
	return false
}

// Currency returns the ISO code of the market's native currency.
// Unknown markets report the home currency.
func (m Market) Currency() string {
	for _, info := range SupportedMarkets {
		if info.Code == m {
			return info.Currency
		}
	}
	return HomeCurrency
}

// HomeCurrency is the currency all aggregate values and cash balances are expressed in.
const HomeCurrency = "USD"

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
