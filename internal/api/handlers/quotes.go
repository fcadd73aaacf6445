package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/validation"
)

// QuoteHandler serves market quotes through the quote cache.
type QuoteHandler struct {
	quoteService *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
	}
}

// Markets handles GET /api/quote/markets.
func (h *QuoteHandler) Markets(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, model.SupportedMarkets)
}

// Quote handles GET requests for a single quote. A quote served from cache after
// a provider failure carries stale=true.
//
// Endpoint: GET /api/quote/{market}/{symbol}
// Response: 200 OK with model.Quote
// Error: 400 Bad Request for an unsupported market
// Error: 503 Service Unavailable if the provider failed and nothing is cached
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	market, ok := model.ParseMarket(chi.URLParam(r, "market"))
	if !ok {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrUnsupportedMarket.Error(), chi.URLParam(r, "market"))
		return
	}

	quote, err := h.quoteService.GetQuote(r.Context(), chi.URLParam(r, "symbol"), market)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrieveQuote, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, quote)
}

// BatchQuotes handles POST requests for several quotes at once. Quotes are
// returned in request order; the request fails if any quote is unavailable.
//
// Endpoint: POST /api/quote/batch
// Request Body: BatchQuoteRequest (quotes: [{symbol, market}])
// Response: 200 OK with array of model.Quote
// Error: 400 Bad Request if validation fails
// Error: 503 Service Unavailable if any quote is unavailable
func (h *QuoteHandler) BatchQuotes(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.BatchQuoteRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBatchQuotes(req); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrieveQuote, err)
		return
	}

	keys := make([]model.QuoteKey, len(req.Quotes))
	for i, q := range req.Quotes {
		market, _ := model.ParseMarket(q.Market)
		keys[i] = model.QuoteKey{Symbol: q.Symbol, Market: market}
	}

	quotes, err := h.quoteService.GetQuotes(r.Context(), keys)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrieveQuote, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, quotes)
}
