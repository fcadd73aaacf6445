package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/validation"
)

// PortfolioHandler handles portfolio-related HTTP requests, including trading.
// Every operation is scoped to the session user; another user's portfolio
// answers 404.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	tradeService     *service.TradeService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService, tradeService *service.TradeService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		tradeService:     tradeService,
	}
}

// Portfolios handles GET requests for the session user's portfolios with valuation totals.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with array of model.PortfolioSummary
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Portfolios(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	portfolios, err := h.portfolioService.ListPortfolios(r.Context(), session)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrievePortfolios, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolios)
}

// GetPortfolio handles GET requests for one portfolio summary.
//
// Endpoint: GET /api/portfolio/{uuid}
// Response: 200 OK with model.PortfolioSummary
// Error: 400 Bad Request if the ID is invalid (validated by middleware)
// Error: 404 Not Found if the portfolio does not exist or belongs to another user
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), session, chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrievePortfolio, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolio)
}

// Holdings handles GET requests for the per-holding valuation of a portfolio.
// Holdings without a resolvable quote are valued at cost and flagged degraded.
//
// Endpoint: GET /api/portfolio/{uuid}/holdings
// Response: 200 OK with model.Valuation
// Error: 404 Not Found if the portfolio does not exist or belongs to another user
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	valuation, err := h.portfolioService.GetHoldings(r.Context(), session, chi.URLParam(r, "uuid"))
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrieveHoldings, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, valuation)
}

// CreatePortfolio handles POST requests to create a portfolio.
//
// Endpoint: POST /api/portfolio
// Request Body: CreatePortfolioRequest (name, description)
// Response: 201 Created with model.Portfolio
// Error: 400 Bad Request if validation fails or request body is invalid
func (h *PortfolioHandler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.CreatePortfolioRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreatePortfolio(req); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToCreatePortfolio, err)
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(r.Context(), session, req)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToCreatePortfolio, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, portfolio)
}

// UpdatePortfolio handles PUT requests to rename a portfolio or change its description.
//
// Endpoint: PUT /api/portfolio/{uuid}
// Request Body: UpdatePortfolioRequest (all fields optional, at least one required)
// Response: 200 OK with updated model.Portfolio
// Error: 400 Bad Request if validation fails
// Error: 404 Not Found if the portfolio does not exist or belongs to another user
func (h *PortfolioHandler) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.UpdatePortfolioRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdatePortfolio(req); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToUpdatePortfolio, err)
		return
	}

	portfolio, err := h.portfolioService.UpdatePortfolio(r.Context(), session, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToUpdatePortfolio, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolio)
}

// DeletePortfolio handles DELETE requests. Holdings, transactions and realized
// gain/loss rows of the portfolio are removed with it.
//
// Endpoint: DELETE /api/portfolio/{uuid}
// Response: 204 No Content on successful deletion
// Error: 404 Not Found if the portfolio does not exist or belongs to another user
// Error: 422 Unprocessable Entity if it is the user's last portfolio
func (h *PortfolioHandler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	if err := h.portfolioService.DeletePortfolio(r.Context(), session, chi.URLParam(r, "uuid")); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToDeletePortfolio, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Trade handles POST requests that execute a buy or sell against a portfolio.
// When the body carries no price the latest quote is used.
//
// Endpoint: POST /api/portfolio/{uuid}/trade
// Request Body: TradeRequest (symbol, market, type, shares, optional name and price)
// Response: 201 Created with model.TradeResult
// Error: 400 Bad Request if the order is invalid
// Error: 404 Not Found if the portfolio does not exist or belongs to another user
// Error: 422 Unprocessable Entity for insufficient shares or funds
// Error: 503 Service Unavailable if no quote can be obtained
// Error: 500 Internal Server Error if settlement failed and was rolled back
func (h *PortfolioHandler) Trade(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	req, err := parseJSON[request.TradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateTrade(req); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToExecuteTrade, err)
		return
	}

	result, err := h.tradeService.ExecuteTrade(r.Context(), session, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToExecuteTrade, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}
