package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

func priced(price string) *decimal.Decimal {
	d := testutil.Dec(price)
	return &d
}

func cashBalance(t *testing.T, db *sql.DB, userID string) decimal.Decimal {
	t.Helper()
	p, err := repository.NewProfileRepository(db).GetProfile(t.Context(), userID)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}
	return p.CashBalance
}

// TestTradeService_ExecuteTrade tests end-to-end order execution.
//
// WHY: A trade touches four tables. Either every write lands together with the
// matching cash movement, or none do. Business-rule failures must be detected
// before the first write.
func TestTradeService_ExecuteTrade(t *testing.T) {
	t.Run("buy at quote price then partial sell", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		testutil.NewQuote("AAPL", model.MarketUS).WithPrice("180").WithName("Apple Inc.").Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())
		session := testutil.SessionFor(profile)

		buy, err := svc.ExecuteTrade(t.Context(), session, portfolio.ID, request.TradeRequest{
			Symbol: "aapl", Market: "US", Type: "buy", Shares: 100,
		})
		if err != nil {
			t.Fatalf("ExecuteTrade(buy) returned unexpected error: %v", err)
		}

		if buy.Action != model.HoldingCreated {
			t.Errorf("Expected action created, got %s", buy.Action)
		}
		if !buy.CashBalance.Equal(testutil.Dec("982000")) {
			t.Errorf("Expected cash 982000, got %s", buy.CashBalance)
		}
		if buy.Transaction.Name != "Apple Inc." {
			t.Errorf("Expected name from quote, got %q", buy.Transaction.Name)
		}
		if buy.Message != "Bought 100 AAPL at $180.00 for $18,000.00" {
			t.Errorf("Unexpected message %q", buy.Message)
		}

		sell, err := svc.ExecuteTrade(t.Context(), session, portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "sell", Shares: 40, Price: priced("200"),
		})
		if err != nil {
			t.Fatalf("ExecuteTrade(sell) returned unexpected error: %v", err)
		}

		if sell.Holding == nil || sell.Holding.Shares != 60 {
			t.Errorf("Expected 60 shares left, got %+v", sell.Holding)
		}
		if sell.RealizedGainLoss == nil || !sell.RealizedGainLoss.RealizedGainLoss.Equal(testutil.Dec("800")) {
			t.Errorf("Expected realized gain 800, got %+v", sell.RealizedGainLoss)
		}
		if !cashBalance(t, db, profile.UserID).Equal(testutil.Dec("990000")) {
			t.Errorf("Expected stored cash 990000, got %s", cashBalance(t, db, profile.UserID))
		}
		testutil.AssertRowCount(t, db, "transaction", 2)
		testutil.AssertRowCount(t, db, "holding", 1)
		testutil.AssertRowCount(t, db, "realized_gain_loss", 1)
	})

	t.Run("foreign trade settles in home currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		result, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "700", Market: "HK", Type: "buy", Shares: 500, Price: priced("65.8"),
		})
		if err != nil {
			t.Fatalf("ExecuteTrade() returned unexpected error: %v", err)
		}

		if !result.AmountHome.Equal(testutil.Dec("4245.16")) {
			t.Errorf("Expected home amount 4245.16, got %s", result.AmountHome)
		}
		if !result.CashBalance.Equal(testutil.Dec("995754.84")) {
			t.Errorf("Expected cash 995754.84, got %s", result.CashBalance)
		}
		if result.Transaction.Currency != "HKD" || !result.Transaction.TotalAmount.Equal(testutil.Dec("32900")) {
			t.Errorf("Expected native total 32900 HKD, got %s %s", result.Transaction.TotalAmount, result.Transaction.Currency)
		}
	})

	t.Run("closing a position deletes the holding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		testutil.NewHolding(portfolio).WithSymbol("MSFT").WithShares(10).WithAverageCost("400").Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		result, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "MSFT", Market: "US", Type: "sell", Shares: 10, Price: priced("410"),
		})
		if err != nil {
			t.Fatalf("ExecuteTrade() returned unexpected error: %v", err)
		}

		if result.Action != model.HoldingClosed || result.Holding != nil {
			t.Errorf("Expected closed position, got %s %+v", result.Action, result.Holding)
		}
		testutil.AssertRowCount(t, db, "holding", 0)
	})

	t.Run("short sale credits cash", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().WithCash("0").Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		result, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "TSLA", Market: "US", Type: "sell", Shares: 10, Price: priced("250"),
		})
		if err != nil {
			t.Fatalf("ExecuteTrade() returned unexpected error: %v", err)
		}

		if result.Holding.Shares != -10 {
			t.Errorf("Expected -10 shares, got %d", result.Holding.Shares)
		}
		if !result.CashBalance.Equal(testutil.Dec("2500")) {
			t.Errorf("Expected cash 2500, got %s", result.CashBalance)
		}
	})
}

// TestTradeService_ExecuteTrade_Rejections tests orders that must leave no trace.
//
// WHY: A rejected order must not move cash or create records. These are the cases
// users hit every day (not enough cash, selling what they don't own, bad input).
func TestTradeService_ExecuteTrade_Rejections(t *testing.T) {
	t.Run("insufficient funds", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().WithCash("1000").Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "buy", Shares: 10, Price: priced("150"),
		})

		if !errors.Is(err, apperrors.ErrInsufficientFunds) {
			t.Errorf("Expected ErrInsufficientFunds, got %v", err)
		}
		if !cashBalance(t, db, profile.UserID).Equal(testutil.Dec("1000")) {
			t.Errorf("Expected cash to remain 1000, got %s", cashBalance(t, db, profile.UserID))
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
		testutil.AssertRowCount(t, db, "holding", 0)
	})

	t.Run("insufficient shares", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		h := testutil.NewHolding(portfolio).WithSymbol("AAPL").WithShares(5).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "sell", Shares: 6, Price: priced("100"),
		})

		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
		stored, err := repository.NewHoldingRepository(db).GetHolding(t.Context(), portfolio.ID, "AAPL", model.MarketUS)
		if err != nil || stored.Shares != h.Shares {
			t.Errorf("Expected holding unchanged at %d shares, got %d (%v)", h.Shares, stored.Shares, err)
		}
		if !cashBalance(t, db, profile.UserID).Equal(profile.CashBalance) {
			t.Errorf("Expected cash to remain %s, got %s", profile.CashBalance, cashBalance(t, db, profile.UserID))
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("portfolio of another user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		owner := testutil.NewProfile().Build(t, db)
		intruder := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(owner.UserID).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(intruder), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "buy", Shares: 1, Price: priced("100"),
		})

		if !errors.Is(err, apperrors.ErrPortfolioNotFound) {
			t.Errorf("Expected ErrPortfolioNotFound, got %v", err)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("invalid order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		client := testutil.NewMockMarketstackClient()
		svc := testutil.NewTestTradeService(t, db, client)

		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "short", Shares: 1,
		})

		if !errors.Is(err, apperrors.ErrInvalidOrder) {
			t.Errorf("Expected ErrInvalidOrder, got %v", err)
		}
		if client.Calls() != 0 {
			t.Errorf("Expected no quote lookup for an invalid order, got %d calls", client.Calls())
		}
	})

	t.Run("no quote available", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient().WithError(errors.New("timeout")))

		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "buy", Shares: 1,
		})

		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Errorf("Expected ErrQuoteUnavailable, got %v", err)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})
}

// TestTradeService_ExecuteTrade_PartialFailure tests rollback when a write fails mid-trade.
//
// WHY: The transaction row is written before the holding. If the holding write fails,
// the already-inserted transaction and the cash debit must both be undone so the
// history never disagrees with the positions.
func TestTradeService_ExecuteTrade_PartialFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	profile := testutil.NewProfile().WithCash("5000").Build(t, db)
	portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
	testutil.FailHoldingWrites(t, db, "FAIL")
	svc := testutil.NewTestTradeService(t, db, testutil.NewMockMarketstackClient())

	_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
		Symbol: "FAIL", Market: "US", Type: "buy", Shares: 10, Price: priced("100"),
	})

	if !errors.Is(err, apperrors.ErrTradeExecutionFailed) {
		t.Fatalf("Expected ErrTradeExecutionFailed, got %v", err)
	}
	testutil.AssertRowCount(t, db, "transaction", 0)
	testutil.AssertRowCount(t, db, "holding", 0)
	if !cashBalance(t, db, profile.UserID).Equal(testutil.Dec("5000")) {
		t.Errorf("Expected cash to remain 5000, got %s", cashBalance(t, db, profile.UserID))
	}

	// The connection must be usable again after the rollback.
	if _, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
		Symbol: "AAPL", Market: "US", Type: "buy", Shares: 10, Price: priced("100"),
	}); err != nil {
		t.Errorf("Follow-up trade failed: %v", err)
	}
}

// TestTradeService_ExecuteTrade_SlowProvider tests trades whose quote lookup hangs.
//
// WHY: The HTTP server drops the connection at its write deadline without cancelling
// the handler. A trade that commits after that point is reported to the user as a
// failure, and the retry executes it twice.
func TestTradeService_ExecuteTrade_SlowProvider(t *testing.T) {
	t.Run("quote lookup gives up within the budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().WithCash("5000").Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		client := testutil.NewMockMarketstackClient().WithBar("AAPL", "100", "100").WithDelay(10 * time.Second)
		svc := testutil.NewTestTradeServiceWithOptions(t, db, client, service.QuoteOptions{
			Timeout: 100 * time.Millisecond,
			Budget:  150 * time.Millisecond,
			Retries: 3,
		})

		start := time.Now()
		_, err := svc.ExecuteTrade(t.Context(), testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "buy", Shares: 10,
		})

		if !errors.Is(err, apperrors.ErrQuoteUnavailable) {
			t.Errorf("Expected ErrQuoteUnavailable, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("Expected the trade to fail within the quote budget, took %s", elapsed)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
	})

	t.Run("request ended while the quote resolved", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		profile := testutil.NewProfile().WithCash("5000").Build(t, db)
		portfolio := testutil.NewPortfolio().WithUserID(profile.UserID).Build(t, db)
		// The stale entry lets the gateway answer after the caller's deadline passed.
		testutil.NewQuote("AAPL", model.MarketUS).WithPrice("100").CachedAgo(2 * time.Hour).Build(t, db)
		client := testutil.NewMockMarketstackClient().WithDelay(10 * time.Second)
		svc := testutil.NewTestTradeService(t, db, client)

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()

		_, err := svc.ExecuteTrade(ctx, testutil.SessionFor(profile), portfolio.ID, request.TradeRequest{
			Symbol: "AAPL", Market: "US", Type: "buy", Shares: 10,
		})

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected context.DeadlineExceeded, got %v", err)
		}
		testutil.AssertRowCount(t, db, "transaction", 0)
		testutil.AssertRowCount(t, db, "holding", 0)
		if !cashBalance(t, db, profile.UserID).Equal(testutil.Dec("5000")) {
			t.Errorf("Expected cash to remain 5000, got %s", cashBalance(t, db, profile.UserID))
		}
	})
}
