package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

// TestSessionHandler_CreateSession tests the POST /api/session endpoint.
//
// WHY: This is the only unauthenticated write. It must provision a new user
// exactly once and hand back a token the session middleware accepts.
func TestSessionHandler_CreateSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sessions := testutil.NewTestSessionService(t, db, time.Hour)
	handler := NewSessionHandler(sessions)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.CreateSession(w, req)
		return w
	}

	t.Run("issues a token and provisions the profile", func(t *testing.T) {
		w := post(`{"email":"trader@example.com"}`)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var got SessionResponse
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&got)

		session, err := sessions.Verify(got.Token)
		if err != nil {
			t.Fatalf("Expected a valid token, got %v", err)
		}
		if session.UserID != got.Profile.UserID {
			t.Errorf("Expected token for %s, got %s", got.Profile.UserID, session.UserID)
		}
		testutil.AssertRowCount(t, db, "profile", 1)
		testutil.AssertRowCount(t, db, "portfolio", 1)
	})

	t.Run("second session reuses the profile", func(t *testing.T) {
		w := post(`{"email":"trader@example.com"}`)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		testutil.AssertRowCount(t, db, "profile", 1)
		testutil.AssertRowCount(t, db, "portfolio", 1)
	})

	for _, body := range []string{`{"email":""}`, `{"email":"not-an-email"}`, `{"email":"A <a@example.com>"}`, `{}`} {
		t.Run("rejects "+body, func(t *testing.T) {
			w := post(body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestProfileHandler_GetProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewProfileHandler(testutil.NewTestProfileService(t, db))

	t.Run("returns the cash balance", func(t *testing.T) {
		profile := testutil.NewProfile().WithCash("2500.50").Build(t, db)
		req := testutil.NewSessionRequest(http.MethodGet, "/api/profile", "", testutil.SessionFor(profile), nil)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var got model.Profile
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&got)
		if !got.CashBalance.Equal(testutil.Dec("2500.50")) {
			t.Errorf("Expected cash 2500.50, got %s", got.CashBalance)
		}
	})

	t.Run("returns 404 for an unprovisioned user", func(t *testing.T) {
		session := model.Session{UserID: testutil.MakeID(), Email: testutil.MakeEmail()}
		req := testutil.NewSessionRequest(http.MethodGet, "/api/profile", "", session, nil)
		w := httptest.NewRecorder()

		handler.GetProfile(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}
