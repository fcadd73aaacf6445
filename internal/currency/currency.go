// Package currency converts amounts between a market's native currency and the
// home currency using a fixed table of directional exchange rates.
package currency

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// Default rates. Each rate converts one unit of the parent currency into the child.
const (
	DefaultUSDToHKD = 7.75
	DefaultHKDToCNY = 0.89
)

// link attaches a currency to its parent in the conversion tree.
type link struct {
	parent string
	rate   decimal.Decimal // 1 parent = rate child
}

// Converter holds the static conversion table. The zero value is not usable; use New.
type Converter struct {
	home  string
	links map[string]link
}

// Rates configures the conversion table.
type Rates struct {
	USDToHKD float64
	HKDToCNY float64
}

// DefaultRates returns the built-in conversion table.
func DefaultRates() Rates {
	return Rates{USDToHKD: DefaultUSDToHKD, HKDToCNY: DefaultHKDToCNY}
}

// New creates a Converter with USD as home currency. HKD hangs off USD and CNY
// hangs off HKD, so CNY conversions route through HKD.
func New(r Rates) *Converter {
	return &Converter{
		home: model.HomeCurrency,
		links: map[string]link{
			"HKD": {parent: "USD", rate: decimal.NewFromFloat(r.USDToHKD)},
			"CNY": {parent: "HKD", rate: decimal.NewFromFloat(r.HKDToCNY)},
		},
	}
}

// Home returns the home currency code.
func (c *Converter) Home() string { return c.home }

// ToHome converts an amount in the market's native currency into the home currency.
// Unknown markets are treated as already being in the home currency.
func (c *Converter) ToHome(amount decimal.Decimal, market model.Market) decimal.Decimal {
	if !market.Valid() {
		return amount
	}
	return c.toHome(amount, market.Currency())
}

// FromHome converts a home-currency amount into the market's native currency.
// Unknown markets are treated as already being in the home currency.
func (c *Converter) FromHome(amount decimal.Decimal, market model.Market) decimal.Decimal {
	if !market.Valid() {
		return amount
	}
	return c.fromHome(amount, market.Currency())
}

// Convert converts between two currency codes by routing through the home currency.
// Unknown codes pass through unconverted.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if from == to {
		return amount
	}
	return c.fromHome(c.toHome(amount, from), to)
}

func (c *Converter) toHome(amount decimal.Decimal, code string) decimal.Decimal {
	for code != c.home {
		l, ok := c.links[code]
		if !ok || l.rate.IsZero() {
			return amount
		}
		amount = amount.Div(l.rate)
		code = l.parent
	}
	return amount
}

func (c *Converter) fromHome(amount decimal.Decimal, code string) decimal.Decimal {
	var path []decimal.Decimal
	for cur := code; cur != c.home; {
		l, ok := c.links[cur]
		if !ok {
			return amount
		}
		path = append(path, l.rate)
		cur = l.parent
	}
	for i := len(path) - 1; i >= 0; i-- {
		amount = amount.Mul(path[i])
	}
	return amount
}

// Table lists the directional rates of the converter.
func (c *Converter) Table() []model.ExchangeRate {
	rates := make([]model.ExchangeRate, 0, len(c.links))
	for _, code := range []string{"HKD", "CNY"} {
		l, ok := c.links[code]
		if !ok {
			continue
		}
		rates = append(rates, model.ExchangeRate{From: l.parent, To: code, Rate: l.rate.InexactFloat64()})
	}
	return rates
}

// Round rounds an amount to the minor unit of the currency (two places for USD
// and HKD). Unknown codes round to two places.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	fraction := 2
	if cur := money.GetCurrency(code); cur != nil {
		fraction = cur.Fraction
	}
	return amount.Round(int32(fraction))
}

// Format renders an amount with the currency's symbol and grouping, e.g. "$1,800.00".
func Format(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}
