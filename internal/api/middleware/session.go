package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/response"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

type sessionKey struct{}

// SessionVerifier decodes a session token. *service.SessionService satisfies it.
type SessionVerifier interface {
	Verify(token string) (model.Session, error)
}

// RequireSession rejects requests without a valid X-Session-Token header with
// 401 Unauthorized. On success the decoded session is stored in the request
// context for SessionFromContext.
//
// Example usage in router:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.RequireSession(sessionService))
//	    r.Get("/profile", profileHandler.GetProfile)
//	})
func RequireSession(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := verifier.Verify(r.Header.Get(SessionHeader))
			if err != nil {
				message := apperrors.ErrInvalidSession.Error()
				if errors.Is(err, apperrors.ErrMissingSession) {
					message = apperrors.ErrMissingSession.Error()
				}
				response.RespondError(w, http.StatusUnauthorized, "unauthorized", message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(model.Session)
	return session, ok
}
