package handlers

import (
	"net/http"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/validation"
)

// SessionHandler issues session tokens.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// SessionResponse is returned by POST /api/session.
type SessionResponse struct {
	Token   string        `json:"token"`
	Profile model.Profile `json:"profile"`
}

// CreateSession handles POST requests that exchange an email for a session token.
// The user's profile and default portfolio are provisioned on first use.
//
// Endpoint: POST /api/session
// Request Body: SessionRequest (email)
// Response: 201 Created with SessionResponse
// Error: 400 Bad Request if the email is missing or malformed
// Error: 500 Internal Server Error if provisioning fails
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SessionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateSession(req); err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToStartSession, err)
		return
	}

	token, profile, err := h.sessionService.StartSession(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToStartSession, err)
		return
	}

	response.RespondJSON(w, http.StatusCreated, SessionResponse{Token: token, Profile: profile})
}
