package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile holds per-user simulation state. CashBalance is in the home currency.
type Profile struct {
	UserID      string          `json:"userId"`
	Email       string          `json:"email"`
	CashBalance decimal.Decimal `json:"cashBalance"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Session identifies the user a request acts for.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Account is the request-scoped state the ledger and settlement operate on:
// who is trading and how much cash they hold.
type Account struct {
	Session
	CashBalance decimal.Decimal
}
