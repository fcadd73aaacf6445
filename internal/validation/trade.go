package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// ValidateTrade validates a trade request before any price lookup or write.
//
// Required fields:
//   - symbol: Non-empty, at most 20 characters
//   - market: One of US, HK, CN (case-insensitive)
//   - type: buy or sell (case-insensitive)
//   - shares: Positive whole number, at most model.MaxOrderShares
//
// Optional fields:
//   - price: Must be positive if provided
//
// Returns a validation Error matching apperrors.ErrInvalidOrder if validation fails.
func ValidateTrade(req request.TradeRequest) error {
	errors := make(map[string]string)

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if len(symbol) > 20 {
		errors["symbol"] = "symbol must be 20 characters or less"
	}

	if _, ok := model.ParseMarket(req.Market); !ok {
		errors["market"] = fmt.Sprintf("unsupported market: %q", req.Market)
	}

	if !model.TradeSide(strings.ToLower(strings.TrimSpace(req.Type))).Valid() {
		errors["type"] = fmt.Sprintf("type must be buy or sell, got %q", req.Type)
	}

	switch {
	case req.Shares <= 0:
		errors["shares"] = "shares must be a positive whole number"
	case req.Shares > model.MaxOrderShares:
		errors["shares"] = fmt.Sprintf("shares must be at most %d", model.MaxOrderShares)
	}

	if req.Price != nil && !req.Price.IsPositive() {
		errors["price"] = "price must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors, Kind: apperrors.ErrInvalidOrder}
	}
	return nil
}
