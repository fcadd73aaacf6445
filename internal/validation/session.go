package validation

import (
	"net/mail"
	"strings"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
)

// ValidateSession checks that the request carries a single plain email address.
func ValidateSession(req request.SessionRequest) error {
	email := strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(email)
	if email == "" || err != nil || addr.Address != email {
		return &Error{Fields: map[string]string{"email": "a valid email address is required"}, Kind: apperrors.ErrInvalidEmail}
	}
	return nil
}
