package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// Transaction history paging limits.
const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 500
)

// ParseTransactionFilters extracts and validates transaction history filters from
// query parameters. All parameters are optional.
//
// Validation rules:
//   - portfolioId: Must be a valid UUID
//   - type: Must be "buy" or "sell"
//   - market: Must be a supported market code (US, HK, CN)
//   - symbol: Trimmed and upper-cased
//   - startDate/endDate: YYYY-MM-DD or RFC3339; a bare endDate covers the whole day
//   - limit: Must be between 1 and 500 (defaults to 50)
//
// Returns an error if any parameter fails validation or startDate is after endDate.
//
//nolint:gocyclo // Complex validation logic is intentional and clear
func ParseTransactionFilters(
	portfolioIDParam, typeParam, symbolParam, marketParam,
	startDateParam, endDateParam, limitParam string,
) (*model.TransactionFilters, error) {
	filters := &model.TransactionFilters{
		Symbol: model.NormalizeSymbol(symbolParam),
		Limit:  DefaultTransactionLimit,
	}

	if portfolioIDParam != "" {
		if _, err := uuid.Parse(portfolioIDParam); err != nil {
			return nil, fmt.Errorf("%w: portfolioId", apperrors.ErrInvalidUUID)
		}
		filters.PortfolioID = portfolioIDParam
	}

	if typeParam != "" {
		side := model.TradeSide(strings.ToLower(strings.TrimSpace(typeParam)))
		if !side.Valid() {
			return nil, fmt.Errorf("invalid type: must be 'buy' or 'sell'")
		}
		filters.Type = side
	}

	if marketParam != "" {
		market, ok := model.ParseMarket(marketParam)
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedMarket, marketParam)
		}
		filters.Market = market
	}

	// Parse startDate
	if startDateParam != "" {
		startTime, _, err := parseFilterTime(startDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate format: %w", err)
		}
		filters.StartDate = &startTime
	}

	// Parse endDate
	if endDateParam != "" {
		endTime, dateOnly, err := parseFilterTime(endDateParam)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate format: %w", err)
		}
		if dateOnly {
			endTime = endTime.Add(24*time.Hour - time.Nanosecond)
		}
		filters.EndDate = &endTime
	}

	if filters.StartDate != nil && filters.EndDate != nil && filters.StartDate.After(*filters.EndDate) {
		return nil, fmt.Errorf("%w: startDate is after endDate", apperrors.ErrInvalidDateRange)
	}

	// Parse and validate limit
	if limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return nil, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > MaxTransactionLimit {
			return nil, fmt.Errorf("invalid limit: must be between 1 and %d", MaxTransactionLimit)
		}
		filters.Limit = limit
	}

	return filters, nil
}

// parseFilterTime parses date strings for filter parameters.
// Accepts YYYY-MM-DD, RFC3339, and RFC3339 with milliseconds formats.
// dateOnly reports whether the value carried no time component.
func parseFilterTime(str string) (t time.Time, dateOnly bool, err error) {
	if t, err := time.Parse("2006-01-02", str); err == nil {
		return t, true, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("cannot parse %q as a date or datetime", str)
}
