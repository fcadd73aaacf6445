package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/middleware"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
)

// Services bundles the services the HTTP layer depends on.
type Services struct {
	System      *service.SystemService
	Session     *service.SessionService
	Profile     *service.ProfileService
	Portfolio   *service.PortfolioService
	Trade       *service.TradeService
	Transaction *service.TransactionService
	Quote       *service.QuoteService
}

// NewRouter creates and configures the HTTP router. gatherer backs the /metrics endpoint.
func NewRouter(svc Services, gatherer prometheus.Gatherer, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Handle("/metrics", metrics.Handler(gatherer))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Get("/exchange-rates", systemHandler.ExchangeRates)
		})

		sessionHandler := handlers.NewSessionHandler(svc.Session)
		r.Post("/session", sessionHandler.CreateSession)

		// Everything below acts for the session user.
		r.Group(func(r chi.Router) {
			r.Use(custommiddleware.RequireSession(svc.Session))

			profileHandler := handlers.NewProfileHandler(svc.Profile)
			r.Get("/profile", profileHandler.GetProfile)

			r.Route("/portfolio", func(r chi.Router) {
				portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, svc.Trade)
				r.Get("/", portfolioHandler.Portfolios)
				r.Post("/", portfolioHandler.CreatePortfolio)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", portfolioHandler.GetPortfolio)
					r.Put("/", portfolioHandler.UpdatePortfolio)
					r.Delete("/", portfolioHandler.DeletePortfolio)
					r.Get("/holdings", portfolioHandler.Holdings)
					r.Post("/trade", portfolioHandler.Trade)
				})
			})

			r.Route("/transaction", func(r chi.Router) {
				transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
				r.Get("/", transactionHandler.Transactions)
				r.With(custommiddleware.ValidateUUIDMiddleware).Get("/{uuid}", transactionHandler.GetTransaction)
			})

			r.Route("/quote", func(r chi.Router) {
				quoteHandler := handlers.NewQuoteHandler(svc.Quote)
				r.Get("/markets", quoteHandler.Markets)
				r.Post("/batch", quoteHandler.BatchQuotes)
				r.Get("/{market}/{symbol}", quoteHandler.Quote)
			})
		})
	})

	return r
}
