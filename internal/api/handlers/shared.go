package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/phuslu/log"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/middleware"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/validation"
)

// maxBodyBytes caps the size of JSON request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields and trailing data are rejected.
func parseJSON[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil {
		return req, errors.New("request body is empty")
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return req, errors.New("invalid JSON: unexpected data after object")
	}
	return req, nil
}

// sessionFrom returns the session attached by middleware.RequireSession.
// Handlers behind that middleware always have one; a missing session answers 401.
func sessionFrom(w http.ResponseWriter, r *http.Request) (model.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, "unauthorized", apperrors.ErrMissingSession.Error())
	}
	return session, ok
}

// respondServiceError maps a service error onto its HTTP status. fallback is the
// message used for unexpected failures.
func respondServiceError(w http.ResponseWriter, r *http.Request, fallback error, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}

	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		message = fallback.Error()
		log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	response.RespondError(w, status, message, err.Error())
}

func statusFor(err error) (int, string) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, ""
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{apperrors.ErrInvalidOrder, http.StatusBadRequest},
	{apperrors.ErrUnsupportedMarket, http.StatusBadRequest},
	{apperrors.ErrInvalidUUID, http.StatusBadRequest},
	{apperrors.ErrInvalidDateRange, http.StatusBadRequest},
	{apperrors.ErrInvalidEmail, http.StatusBadRequest},
	{apperrors.ErrPortfolioNotFound, http.StatusNotFound},
	{apperrors.ErrTransactionNotFound, http.StatusNotFound},
	{apperrors.ErrHoldingNotFound, http.StatusNotFound},
	{apperrors.ErrProfileNotFound, http.StatusNotFound},
	{apperrors.ErrInsufficientShares, http.StatusUnprocessableEntity},
	{apperrors.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{apperrors.ErrLastPortfolio, http.StatusUnprocessableEntity},
	{apperrors.ErrQuoteUnavailable, http.StatusServiceUnavailable},
	{apperrors.ErrMissingSession, http.StatusUnauthorized},
	{apperrors.ErrInvalidSession, http.StatusUnauthorized},
}
