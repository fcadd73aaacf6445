package request

// SessionRequest represents the request body for POST /api/session.
type SessionRequest struct {
	Email string `json:"email"`
}
