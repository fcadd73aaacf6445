package service_test

import (
	"errors"
	"testing"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

// TestProfileService_EnsureProfile tests first-use provisioning.
//
// WHY: Every user starts with the same cash and one portfolio. Signing in again
// must never reset the balance or add another default portfolio.
func TestProfileService_EnsureProfile(t *testing.T) {
	t.Run("provisions cash and a default portfolio once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestProfileService(t, db)
		session := model.Session{UserID: testutil.MakeID(), Email: testutil.MakeEmail()}

		profile, err := svc.EnsureProfile(t.Context(), session)
		if err != nil {
			t.Fatalf("EnsureProfile() returned unexpected error: %v", err)
		}
		if !profile.CashBalance.Equal(testutil.Dec("1000000")) {
			t.Errorf("Expected starting cash 1000000, got %s", profile.CashBalance)
		}

		var name string
		if err := db.QueryRow(`SELECT name FROM portfolio WHERE user_id = ?`, session.UserID).Scan(&name); err != nil {
			t.Fatalf("Failed to read default portfolio: %v", err)
		}
		if name != model.DefaultPortfolioName {
			t.Errorf("Expected %q, got %q", model.DefaultPortfolioName, name)
		}

		if _, err := svc.EnsureProfile(t.Context(), session); err != nil {
			t.Fatalf("second EnsureProfile() returned unexpected error: %v", err)
		}
		testutil.AssertRowCount(t, db, "profile", 1)
		testutil.AssertRowCount(t, db, "portfolio", 1)
	})

	t.Run("keeps an existing balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		existing := testutil.NewProfile().WithCash("42.50").Build(t, db)
		svc := testutil.NewTestProfileService(t, db)

		profile, err := svc.EnsureProfile(t.Context(), testutil.SessionFor(existing))

		if err != nil {
			t.Fatalf("EnsureProfile() returned unexpected error: %v", err)
		}
		if !profile.CashBalance.Equal(testutil.Dec("42.50")) {
			t.Errorf("Expected balance 42.50, got %s", profile.CashBalance)
		}
	})
}

// TestProfileService_GetProfile tests profile lookup.
//
// WHY: A valid session for a user whose profile was never provisioned must be
// reported as not found rather than as an empty balance.
func TestProfileService_GetProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestProfileService(t, db)

	_, err := svc.GetProfile(t.Context(), model.Session{UserID: testutil.MakeID()})

	if !errors.Is(err, apperrors.ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound, got %v", err)
	}
}
