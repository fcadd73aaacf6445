// Package apperrors defines the sentinel errors shared across the service and API layers.
// Callers wrap them with fmt.Errorf("...: %w", err) and test with errors.Is.
package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
var (
	// ErrPortfolioNotFound indicates that a portfolio with the given ID does not exist
	// or is not owned by the requesting user.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrHoldingNotFound indicates that no open position exists for a symbol in a portfolio.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrProfileNotFound indicates that no simulation profile exists for the user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrQuoteNotCached indicates that the quote cache holds no entry for a symbol and market.
	ErrQuoteNotCached = errors.New("quote not cached")
)

// Trading errors are business-rule failures. They are resolved before any write
// and surfaced to the caller unchanged.
var (
	// ErrInvalidOrder indicates malformed trade input (non-positive shares or price,
	// unknown side, empty symbol or unsupported market).
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnsupportedMarket indicates a market code outside the supported set.
	ErrUnsupportedMarket = errors.New("unsupported market")

	// ErrInsufficientShares indicates a sell that exceeds the shares held in a long position.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrInsufficientFunds indicates a buy whose home-currency value exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLastPortfolio indicates an attempt to delete the user's only portfolio.
	ErrLastPortfolio = errors.New("cannot delete the last portfolio")
)

// Infrastructure errors represent failures outside the business rules.
var (
	// ErrQuoteUnavailable indicates that neither a cached nor a fresh quote could be obtained.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrTradeExecutionFailed indicates that the trade settlement sequence failed part way
	// and was rolled back.
	ErrTradeExecutionFailed = errors.New("trade execution failed")

	// ErrStoreUnavailable indicates a data store read or write failure.
	ErrStoreUnavailable = errors.New("data store unavailable")

	// ErrProviderEmptyResult indicates the market-data provider answered without data.
	ErrProviderEmptyResult = errors.New("no data returned by market-data provider")
)

// Session errors.
var (
	ErrMissingSession = errors.New("missing session token")
	ErrInvalidSession = errors.New("session token is invalid or expired")
)

// Validation errors for required fields.
var (
	ErrInvalidUUID      = errors.New("invalid UUID format")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidEmail     = errors.New("valid email is required")
)

// Operation failure errors used as user-facing messages by the API layer.
var (
	ErrFailedToRetrievePortfolios   = errors.New("failed to retrieve portfolios")
	ErrFailedToRetrievePortfolio    = errors.New("failed to retrieve portfolio")
	ErrFailedToRetrieveHoldings     = errors.New("failed to retrieve holdings")
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToRetrieveProfile      = errors.New("failed to retrieve profile")
	ErrFailedToRetrieveQuote        = errors.New("failed to retrieve quote")
	ErrFailedToCreatePortfolio      = errors.New("failed to create portfolio")
	ErrFailedToUpdatePortfolio      = errors.New("failed to update portfolio")
	ErrFailedToDeletePortfolio      = errors.New("failed to delete portfolio")
	ErrFailedToExecuteTrade         = errors.New("failed to execute trade")
	ErrFailedToStartSession         = errors.New("failed to start session")
)
