package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/handlers"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/middleware"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

func newTestRouter(t *testing.T, db *sql.DB, client *testutil.MockMarketstackClient) http.Handler {
	t.Helper()
	svc := Services{
		System:      testutil.NewTestSystemService(t, db),
		Session:     testutil.NewTestSessionService(t, db, time.Hour),
		Profile:     testutil.NewTestProfileService(t, db),
		Portfolio:   testutil.NewTestPortfolioService(t, db, client),
		Trade:       testutil.NewTestTradeService(t, db, client),
		Transaction: testutil.NewTestTransactionService(t, db),
		Quote:       testutil.NewTestQuoteService(t, db, client),
	}
	return NewRouter(svc, prometheus.NewRegistry(), config.NewDefaultConfig())
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set(middleware.SessionHeader, token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRouter_TradingFlow drives a session from sign-in to a sale through the router.
//
// WHY: Handlers are unit tested in isolation. This checks that routes, session
// middleware and UUID validation are wired together the way clients call them.
func TestRouter_TradingFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.NewMockMarketstackClient().WithBar("AAPL", "95", "100")
	router := newTestRouter(t, db, client)

	w := serve(router, http.MethodPost, "/api/session", "", `{"email":"flow@example.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/session: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var session handlers.SessionResponse
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&session)

	w = serve(router, http.MethodGet, "/api/portfolio", session.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/portfolio: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var portfolios []model.PortfolioSummary
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&portfolios)
	if len(portfolios) != 1 || portfolios[0].Name != "Main Portfolio" {
		t.Fatalf("Expected the default portfolio, got %+v", portfolios)
	}
	tradePath := "/api/portfolio/" + portfolios[0].ID + "/trade"

	w = serve(router, http.MethodPost, tradePath, session.Token, `{"symbol":"AAPL","market":"US","type":"buy","shares":10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("buy: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, http.MethodPost, tradePath, session.Token, `{"symbol":"AAPL","market":"US","type":"sell","shares":4,"price":120}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("sell: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sale model.TradeResult
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&sale)
	if sale.RealizedGainLoss == nil || !sale.RealizedGainLoss.RealizedGainLoss.Equal(testutil.Dec("80")) {
		t.Errorf("Expected realized gain 80, got %+v", sale.RealizedGainLoss)
	}

	w = serve(router, http.MethodGet, "/api/transaction?symbol=AAPL", session.Token, "")
	var history []model.Transaction
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&history)
	if len(history) != 2 || history[0].Type != model.SideSell {
		t.Errorf("Expected sell then buy, got %+v", history)
	}

	w = serve(router, http.MethodGet, "/api/profile", session.Token, "")
	var profile model.Profile
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.NewDecoder(w.Body).Decode(&profile)
	if !profile.CashBalance.Equal(testutil.Dec("999480")) {
		t.Errorf("Expected cash 999480, got %s", profile.CashBalance)
	}
}

func TestRouter_Access(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newTestRouter(t, db, testutil.NewMockMarketstackClient())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health is public", http.MethodGet, "/api/system/health", http.StatusOK},
		{"exchange rates are public", http.MethodGet, "/api/system/exchange-rates", http.StatusOK},
		{"metrics are public", http.MethodGet, "/metrics", http.StatusOK},
		{"profile requires a session", http.MethodGet, "/api/profile", http.StatusUnauthorized},
		{"portfolios require a session", http.MethodGet, "/api/portfolio", http.StatusUnauthorized},
		{"quotes require a session", http.MethodGet, "/api/quote/markets", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, "", "")

			if w.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	t.Run("invalid portfolio id is rejected before lookup", func(t *testing.T) {
		w := serve(router, http.MethodPost, "/api/session", "", `{"email":"access@example.com"}`)
		var session handlers.SessionResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&session)

		w = serve(router, http.MethodGet, "/api/portfolio/not-a-uuid", session.Token, "")

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
