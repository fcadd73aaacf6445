package handlers

import (
	"net/http"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
)

// ProfileHandler serves the simulation profile of the session user.
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// GetProfile handles GET /api/profile.
// Response: 200 OK with model.Profile, 404 if the session user was never provisioned.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), session)
	if err != nil {
		respondServiceError(w, r, apperrors.ErrFailedToRetrieveProfile, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, profile)
}
