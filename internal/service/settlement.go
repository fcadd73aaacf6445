package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// Settle computes the cash balance after a trade worth amountHome (home currency).
// A buy debits the balance and fails with ErrInsufficientFunds when the amount exceeds it.
// A sell credits the balance, including a short sale, whose proceeds are available immediately.
func Settle(balance decimal.Decimal, side model.TradeSide, amountHome decimal.Decimal) (decimal.Decimal, error) {
	switch side {
	case model.SideBuy:
		if amountHome.GreaterThan(balance) {
			return balance, fmt.Errorf("%w: order costs %s, cash balance is %s", apperrors.ErrInsufficientFunds,
				currency.Format(amountHome, model.HomeCurrency), currency.Format(balance, model.HomeCurrency))
		}
		return balance.Sub(amountHome), nil
	case model.SideSell:
		return balance.Add(amountHome), nil
	}
	return balance, fmt.Errorf("%w: side must be buy or sell, got %q", apperrors.ErrInvalidOrder, side)
}
