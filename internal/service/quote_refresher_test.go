package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

// TestQuoteRefresher_RefreshAll tests the background cache warm-up.
//
// WHY: Portfolio pages read quotes for every holding. Refreshing held symbols ahead
// of time keeps those pages off the provider's critical path, and one bad symbol
// must not stop the rest from being refreshed.
func TestQuoteRefresher_RefreshAll(t *testing.T) {
	t.Run("refreshes each held symbol once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		p1 := testutil.NewPortfolio().Build(t, db)
		p2 := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p1).WithSymbol("AAPL").Build(t, db)
		testutil.NewHolding(p2).WithSymbol("AAPL").Build(t, db)
		testutil.NewHolding(p2).WithSymbol("700").WithMarket(model.MarketHK).Build(t, db)
		client := testutil.NewMockMarketstackClient().
			WithBar("AAPL", "180", "185").
			WithBar("0700.XHKG", "300", "310")
		refresher := testutil.NewTestQuoteRefresher(t, db, client)

		refreshed, err := refresher.RefreshAll(t.Context())

		if err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}
		if refreshed != 2 {
			t.Errorf("Expected 2 refreshed symbols, got %d", refreshed)
		}
		if client.Calls() != 2 {
			t.Errorf("Expected 2 provider calls, got %d", client.Calls())
		}
		q, err := repository.NewQuoteCacheRepository(db).GetQuote(t.Context(), model.QuoteKey{Symbol: "700", Market: model.MarketHK})
		if err != nil || !q.Price.Equal(testutil.Dec("310")) {
			t.Errorf("Expected cached 700/HK at 310, got %s (%v)", q.Price, err)
		}
	})

	t.Run("refreshes fresh entries too", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p).WithSymbol("AAPL").Build(t, db)
		testutil.NewQuote("AAPL", model.MarketUS).WithPrice("100").Build(t, db)
		client := testutil.NewMockMarketstackClient().WithBar("AAPL", "100", "101")
		refresher := testutil.NewTestQuoteRefresher(t, db, client)

		if _, err := refresher.RefreshAll(t.Context()); err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}

		if client.Calls() != 1 {
			t.Errorf("Expected the freshness window to be bypassed, got %d calls", client.Calls())
		}
	})

	t.Run("skips symbols that fail", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p).WithSymbol("AAPL").Build(t, db)
		testutil.NewHolding(p).WithSymbol("GONE").Build(t, db)
		client := testutil.NewMockMarketstackClient().WithBar("AAPL", "180", "185")
		refresher := testutil.NewTestQuoteRefresher(t, db, client)

		refreshed, err := refresher.RefreshAll(t.Context())

		if err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}
		if refreshed != 1 {
			t.Errorf("Expected 1 refreshed symbol, got %d", refreshed)
		}
	})

	t.Run("stale fallback does not count as refreshed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		p := testutil.NewPortfolio().Build(t, db)
		testutil.NewHolding(p).WithSymbol("AAPL").Build(t, db)
		testutil.NewQuote("AAPL", model.MarketUS).CachedAgo(5 * time.Hour).Build(t, db)
		client := testutil.NewMockMarketstackClient().WithError(errors.New("down"))
		refresher := testutil.NewTestQuoteRefresher(t, db, client)

		refreshed, err := refresher.RefreshAll(t.Context())

		if err != nil {
			t.Fatalf("RefreshAll() returned unexpected error: %v", err)
		}
		if refreshed != 0 {
			t.Errorf("Expected 0 refreshed symbols, got %d", refreshed)
		}
	})
}

// TestQuoteRefresher_Start tests schedule handling.
//
// WHY: A typo in QUOTE_REFRESH_SCHEDULE should stop the server at startup instead
// of silently disabling the refresher.
func TestQuoteRefresher_Start(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.NewMockMarketstackClient()

	t.Run("empty schedule disables", func(t *testing.T) {
		refresher := testutil.NewTestQuoteRefresher(t, db, client)
		if err := refresher.Start(""); err != nil {
			t.Errorf("Start(\"\") returned unexpected error: %v", err)
		}
		refresher.Stop(context.Background())
	})

	t.Run("invalid schedule", func(t *testing.T) {
		refresher := testutil.NewTestQuoteRefresher(t, db, client)
		if err := refresher.Start("every now and then"); err == nil {
			t.Error("Expected an error for an invalid schedule")
		}
	})

	t.Run("valid schedule starts and stops", func(t *testing.T) {
		refresher := testutil.NewTestQuoteRefresher(t, db, client)
		if err := refresher.Start("@every 1h"); err != nil {
			t.Fatalf("Start() returned unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		refresher.Stop(ctx)
	})
}
