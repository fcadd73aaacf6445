package middleware

import (
	"github.com/go-chi/cors"
)

// SessionHeader carries the session token on authenticated requests.
const SessionHeader = "X-Session-Token"

// NewCORS allows the configured frontend origins to call the API with a session token.
// X-Request-Id is exposed so the client can quote it when reporting a failed trade.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			SessionHeader,
		},
		ExposedHeaders:   []string{"Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
