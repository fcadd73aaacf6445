package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// MaxBatchQuotes caps the number of keys in one batch quote request.
const MaxBatchQuotes = 50

// ValidateBatchQuotes checks every key of a batch quote request.
func ValidateBatchQuotes(req request.BatchQuoteRequest) error {
	errors := make(map[string]string)

	switch {
	case len(req.Quotes) == 0:
		errors["quotes"] = "at least one quote is required"
	case len(req.Quotes) > MaxBatchQuotes:
		errors["quotes"] = fmt.Sprintf("at most %d quotes per request", MaxBatchQuotes)
	}

	for i, q := range req.Quotes {
		if strings.TrimSpace(q.Symbol) == "" {
			errors[fmt.Sprintf("quotes[%d].symbol", i)] = "symbol is required"
		}
		if _, ok := model.ParseMarket(q.Market); !ok {
			errors[fmt.Sprintf("quotes[%d].market", i)] = fmt.Sprintf("unsupported market: %q", q.Market)
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
