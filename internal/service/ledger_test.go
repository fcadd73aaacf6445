package service_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/testutil"
)

func newOrder(symbol string, market model.Market, side model.TradeSide, shares int64, price string) model.TradeOrder {
	return model.TradeOrder{
		PortfolioID: "portfolio-1",
		UserID:      "user-1",
		Symbol:      symbol,
		Market:      market,
		Side:        side,
		Shares:      shares,
		Price:       testutil.Dec(price),
	}
}

// mustApply applies an order and fails the test on error.
func mustApply(t *testing.T, existing *model.Holding, order model.TradeOrder) model.TradeOutcome {
	t.Helper()
	outcome, err := service.ApplyTrade(existing, order, time.Now().UTC())
	if err != nil {
		t.Fatalf("ApplyTrade() returned unexpected error: %v", err)
	}
	return outcome
}

// TestApplyTrade_LongPosition tests opening, growing and reducing a long position.
//
// WHY: The weighted average cost drives every P/L figure the user sees. Growing a
// position must blend the basis, while reducing it must leave the basis alone and
// realize the difference against the sale price.
func TestApplyTrade_LongPosition(t *testing.T) {
	t.Run("buy, buy more, partial sell", func(t *testing.T) {
		first := mustApply(t, nil, newOrder("AAPL", model.MarketUS, model.SideBuy, 100, "180"))
		if first.Action != model.HoldingCreated {
			t.Errorf("Expected action %s, got %s", model.HoldingCreated, first.Action)
		}
		if first.Holding.Shares != 100 || !first.Holding.AverageCost.Equal(testutil.Dec("180")) {
			t.Errorf("Expected 100 @ 180, got %d @ %s", first.Holding.Shares, first.Holding.AverageCost)
		}
		if first.Realized != nil {
			t.Error("Opening a position must not realize gain/loss")
		}

		second := mustApply(t, first.Holding, newOrder("AAPL", model.MarketUS, model.SideBuy, 50, "190"))
		if second.Action != model.HoldingIncreased {
			t.Errorf("Expected action %s, got %s", model.HoldingIncreased, second.Action)
		}
		if second.Holding.Shares != 150 {
			t.Errorf("Expected 150 shares, got %d", second.Holding.Shares)
		}
		if got := second.Holding.AverageCost.StringFixed(2); got != "183.33" {
			t.Errorf("Expected average cost 183.33, got %s", got)
		}
		if second.Holding.ID != first.Holding.ID {
			t.Error("Increasing a position must keep the holding ID")
		}

		third := mustApply(t, second.Holding, newOrder("AAPL", model.MarketUS, model.SideSell, 30, "195"))
		if third.Action != model.HoldingReduced {
			t.Errorf("Expected action %s, got %s", model.HoldingReduced, third.Action)
		}
		if third.Holding.Shares != 120 {
			t.Errorf("Expected 120 shares, got %d", third.Holding.Shares)
		}
		if !third.Holding.AverageCost.Equal(second.Holding.AverageCost) {
			t.Errorf("Reducing must keep average cost %s, got %s", second.Holding.AverageCost, third.Holding.AverageCost)
		}
		if third.Realized == nil {
			t.Fatal("Expected a realized gain/loss record")
		}
		if got := third.Realized.RealizedGainLoss.StringFixed(2); got != "350.00" {
			t.Errorf("Expected realized gain 350.00, got %s", got)
		}
		if third.Realized.SharesClosed != 30 {
			t.Errorf("Expected 30 shares closed, got %d", third.Realized.SharesClosed)
		}
		if third.Realized.TransactionID != third.Transaction.ID {
			t.Error("Realized record must reference the transaction")
		}
	})

	t.Run("selling the whole position closes it", func(t *testing.T) {
		open := mustApply(t, nil, newOrder("MSFT", model.MarketUS, model.SideBuy, 10, "400"))

		closed := mustApply(t, open.Holding, newOrder("MSFT", model.MarketUS, model.SideSell, 10, "380"))

		if closed.Action != model.HoldingClosed {
			t.Errorf("Expected action %s, got %s", model.HoldingClosed, closed.Action)
		}
		if closed.Holding != nil {
			t.Errorf("Expected nil holding after close, got %+v", closed.Holding)
		}
		if got := closed.Realized.RealizedGainLoss.StringFixed(2); got != "-200.00" {
			t.Errorf("Expected realized loss -200.00, got %s", got)
		}
	})

	t.Run("selling more than held fails", func(t *testing.T) {
		open := mustApply(t, nil, newOrder("MSFT", model.MarketUS, model.SideBuy, 10, "400"))

		_, err := service.ApplyTrade(open.Holding, newOrder("MSFT", model.MarketUS, model.SideSell, 11, "400"), time.Now())

		if !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
	})
}

// TestApplyTrade_ShortPosition tests short selling, covering and flipping.
//
// WHY: Shorts invert the sign of every gain. A cover below the entry price is a
// profit, and a trade that crosses zero must realize the old side and start the new
// side at the trade price.
func TestApplyTrade_ShortPosition(t *testing.T) {
	t.Run("sell without a position opens a short", func(t *testing.T) {
		outcome := mustApply(t, nil, newOrder("TSLA", model.MarketUS, model.SideSell, 10, "50"))

		if outcome.Action != model.HoldingCreated {
			t.Errorf("Expected action %s, got %s", model.HoldingCreated, outcome.Action)
		}
		if outcome.Holding.Shares != -10 {
			t.Errorf("Expected -10 shares, got %d", outcome.Holding.Shares)
		}
		if !outcome.Holding.IsShort() {
			t.Error("Expected a short holding")
		}
	})

	t.Run("selling into a short extends it at a blended basis", func(t *testing.T) {
		short := mustApply(t, nil, newOrder("TSLA", model.MarketUS, model.SideSell, 10, "50"))

		outcome := mustApply(t, short.Holding, newOrder("TSLA", model.MarketUS, model.SideSell, 10, "70"))

		if outcome.Action != model.HoldingIncreased {
			t.Errorf("Expected action %s, got %s", model.HoldingIncreased, outcome.Action)
		}
		if outcome.Holding.Shares != -20 {
			t.Errorf("Expected -20 shares, got %d", outcome.Holding.Shares)
		}
		if !outcome.Holding.AverageCost.Equal(testutil.Dec("60")) {
			t.Errorf("Expected average cost 60, got %s", outcome.Holding.AverageCost)
		}
	})

	t.Run("covering above entry realizes a loss, below entry a gain", func(t *testing.T) {
		short := mustApply(t, nil, newOrder("TSLA", model.MarketUS, model.SideSell, 10, "50"))

		partial := mustApply(t, short.Holding, newOrder("TSLA", model.MarketUS, model.SideBuy, 4, "60"))
		if partial.Action != model.HoldingReduced || partial.Holding.Shares != -6 {
			t.Fatalf("Expected reduced short of -6, got %s %d", partial.Action, partial.Holding.Shares)
		}
		if got := partial.Realized.RealizedGainLoss.StringFixed(2); got != "-40.00" {
			t.Errorf("Expected realized loss -40.00, got %s", got)
		}

		cover := mustApply(t, partial.Holding, newOrder("TSLA", model.MarketUS, model.SideBuy, 6, "40"))
		if cover.Action != model.HoldingClosed || cover.Holding != nil {
			t.Fatalf("Expected closed position, got %s %+v", cover.Action, cover.Holding)
		}
		if got := cover.Realized.RealizedGainLoss.StringFixed(2); got != "60.00" {
			t.Errorf("Expected realized gain 60.00, got %s", got)
		}
	})

	t.Run("selling through a long is rejected instead of flipping", func(t *testing.T) {
		long := mustApply(t, nil, newOrder("NVDA", model.MarketUS, model.SideBuy, 10, "100"))

		if _, err := service.ApplyTrade(long.Holding, newOrder("NVDA", model.MarketUS, model.SideSell, 15, "120"), time.Now()); !errors.Is(err, apperrors.ErrInsufficientShares) {
			t.Errorf("Expected ErrInsufficientShares, got %v", err)
		}
	})

	t.Run("buying through a short flips to long", func(t *testing.T) {
		short := mustApply(t, nil, newOrder("NVDA", model.MarketUS, model.SideSell, 10, "100"))

		outcome := mustApply(t, short.Holding, newOrder("NVDA", model.MarketUS, model.SideBuy, 15, "80"))

		if outcome.Action != model.HoldingFlipped {
			t.Errorf("Expected action %s, got %s", model.HoldingFlipped, outcome.Action)
		}
		if outcome.Holding.Shares != 5 {
			t.Errorf("Expected 5 shares, got %d", outcome.Holding.Shares)
		}
		if !outcome.Holding.AverageCost.Equal(testutil.Dec("80")) {
			t.Errorf("Flipped position must start at the trade price, got %s", outcome.Holding.AverageCost)
		}
		if outcome.Realized.SharesClosed != 10 {
			t.Errorf("Expected 10 shares closed, got %d", outcome.Realized.SharesClosed)
		}
		if got := outcome.Realized.RealizedGainLoss.StringFixed(2); got != "200.00" {
			t.Errorf("Expected realized gain 200.00, got %s", got)
		}
	})
}

// TestApplyTrade_Transaction tests the transaction record produced by a trade.
//
// WHY: The transaction history is the audit trail. Shares are stored unsigned with
// the side carried by the type, and amounts stay in the market's currency.
func TestApplyTrade_Transaction(t *testing.T) {
	outcome := mustApply(t, nil, newOrder("700", model.MarketHK, model.SideSell, 500, "65.8"))

	tx := outcome.Transaction
	if tx.Shares != 500 {
		t.Errorf("Expected unsigned share count 500, got %d", tx.Shares)
	}
	if tx.Type != model.SideSell {
		t.Errorf("Expected type sell, got %s", tx.Type)
	}
	if tx.Currency != "HKD" {
		t.Errorf("Expected currency HKD, got %s", tx.Currency)
	}
	if !tx.TotalAmount.Equal(testutil.Dec("32900")) {
		t.Errorf("Expected total 32900, got %s", tx.TotalAmount)
	}
	if tx.Name != "700" {
		t.Errorf("Expected name to default to the symbol, got %q", tx.Name)
	}
	if tx.ID == "" || tx.ID == outcome.Holding.ID {
		t.Error("Expected distinct generated IDs for transaction and holding")
	}
}

// TestApplyTrade_InvalidOrder tests input validation.
//
// WHY: Malformed orders must be rejected before they can touch a position.
func TestApplyTrade_InvalidOrder(t *testing.T) {
	tests := []struct {
		name  string
		order model.TradeOrder
	}{
		{"zero shares", newOrder("AAPL", model.MarketUS, model.SideBuy, 0, "10")},
		{"negative shares", newOrder("AAPL", model.MarketUS, model.SideBuy, -5, "10")},
		{"zero price", newOrder("AAPL", model.MarketUS, model.SideBuy, 1, "0")},
		{"negative price", newOrder("AAPL", model.MarketUS, model.SideSell, 1, "-1")},
		{"unknown side", newOrder("AAPL", model.MarketUS, model.TradeSide("hold"), 1, "10")},
		{"unsupported market", newOrder("AAPL", model.Market("JP"), model.SideBuy, 1, "10")},
		{"empty symbol", newOrder("  ", model.MarketUS, model.SideBuy, 1, "10")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := service.ApplyTrade(nil, tt.order, time.Now())

			if !errors.Is(err, apperrors.ErrInvalidOrder) {
				t.Errorf("Expected ErrInvalidOrder, got %v", err)
			}
			if outcome.Holding != nil {
				t.Error("Expected empty outcome on error")
			}
		})
	}
}

// TestApplyTrade_Properties tests accounting properties that must hold for any trade sequence.
//
// WHY: Lots arrive in whatever order the user places them. The resulting basis must
// not depend on that order, and a buy followed by a sell at the same price must leave
// nothing behind: no holding and no gain or loss.
func TestApplyTrade_Properties(t *testing.T) {
	type lot struct {
		shares int64
		price  string
	}

	orderings := []struct {
		name string
		lots []lot
	}{
		{"ascending price", []lot{{10, "100"}, {30, "110.50"}, {5, "120"}, {55, "131.25"}}},
		{"descending price", []lot{{55, "131.25"}, {5, "120"}, {30, "110.50"}, {10, "100"}}},
		{"interleaved", []lot{{30, "110.50"}, {55, "131.25"}, {10, "100"}, {5, "120"}}},
	}

	// (10*100 + 30*110.50 + 5*120 + 55*131.25) / 100
	wantCost := testutil.Dec("121.3375")

	for _, tt := range orderings {
		t.Run("same-direction buys are order-independent: "+tt.name, func(t *testing.T) {
			var h *model.Holding
			for _, l := range tt.lots {
				h = mustApply(t, h, newOrder("MSFT", model.MarketUS, model.SideBuy, l.shares, l.price)).Holding
			}

			if h.Shares != 100 {
				t.Errorf("Expected 100 shares, got %d", h.Shares)
			}
			// Each blend divides at 16 places, so orderings may differ in the last digit.
			if !h.AverageCost.Round(10).Equal(wantCost) {
				t.Errorf("Expected average cost %s, got %s", wantCost, h.AverageCost)
			}
		})
	}

	roundTrips := []struct {
		name   string
		market model.Market
		first  model.TradeSide
		second model.TradeSide
		shares int64
		price  string
	}{
		{"long round trip", model.MarketUS, model.SideBuy, model.SideSell, 25, "187.43"},
		{"short round trip", model.MarketUS, model.SideSell, model.SideBuy, 8, "250"},
		{"hong kong long round trip", model.MarketHK, model.SideBuy, model.SideSell, 500, "65.8"},
	}

	for _, tt := range roundTrips {
		t.Run(tt.name+" at the same price", func(t *testing.T) {
			opened := mustApply(t, nil, newOrder("RT", tt.market, tt.first, tt.shares, tt.price))
			closed := mustApply(t, opened.Holding, newOrder("RT", tt.market, tt.second, tt.shares, tt.price))

			if closed.Action != model.HoldingClosed || closed.Holding != nil {
				t.Errorf("Expected holding to be closed, got action %s holding %v", closed.Action, closed.Holding)
			}
			if closed.Realized == nil {
				t.Fatal("Expected a realized gain/loss record")
			}
			if !closed.Realized.RealizedGainLoss.IsZero() {
				t.Errorf("Expected zero realized P/L, got %s", closed.Realized.RealizedGainLoss)
			}
		})
	}
}

// TestApplyTrade_ShareLimits tests the bounds on order and position size.
//
// WHY: Short sales need no cash, so nothing else stops a client from growing a short
// until the signed share count wraps around and turns into a long.
func TestApplyTrade_ShareLimits(t *testing.T) {
	t.Run("order above the per-order limit is rejected", func(t *testing.T) {
		_, err := service.ApplyTrade(nil, newOrder("AAPL", model.MarketUS, model.SideSell, math.MaxInt64, "1"), time.Now())
		if !errors.Is(err, apperrors.ErrInvalidOrder) {
			t.Errorf("Expected ErrInvalidOrder, got %v", err)
		}
	})

	t.Run("order at the per-order limit is accepted", func(t *testing.T) {
		outcome := mustApply(t, nil, newOrder("AAPL", model.MarketUS, model.SideSell, model.MaxOrderShares, "1"))
		if outcome.Holding.Shares != -model.MaxOrderShares {
			t.Errorf("Expected short of %d, got %d", -model.MaxOrderShares, outcome.Holding.Shares)
		}
	})

	t.Run("extending a short past the position limit is rejected", func(t *testing.T) {
		existing := &model.Holding{
			ID:          testutil.MakeID(),
			Symbol:      "AAPL",
			Market:      model.MarketUS,
			Shares:      -model.MaxPositionShares + 1,
			AverageCost: testutil.Dec("1"),
		}

		outcome, err := service.ApplyTrade(existing, newOrder("AAPL", model.MarketUS, model.SideSell, 2, "1"), time.Now())

		if !errors.Is(err, apperrors.ErrInvalidOrder) {
			t.Errorf("Expected ErrInvalidOrder, got %v", err)
		}
		if outcome.Holding != nil {
			t.Errorf("Expected no holding on error, got %d shares", outcome.Holding.Shares)
		}
	})

	t.Run("extending a short up to the position limit stays short", func(t *testing.T) {
		existing := &model.Holding{
			ID:          testutil.MakeID(),
			Symbol:      "AAPL",
			Market:      model.MarketUS,
			Shares:      -model.MaxPositionShares + 2,
			AverageCost: testutil.Dec("1"),
		}

		outcome := mustApply(t, existing, newOrder("AAPL", model.MarketUS, model.SideSell, 2, "1"))

		if outcome.Action != model.HoldingIncreased || outcome.Holding.Shares != -model.MaxPositionShares {
			t.Errorf("Expected increased short of %d, got %s %d", -model.MaxPositionShares, outcome.Action, outcome.Holding.Shares)
		}
	})

	t.Run("corrupt position at the int64 minimum is rejected", func(t *testing.T) {
		existing := &model.Holding{ID: testutil.MakeID(), Symbol: "AAPL", Market: model.MarketUS, Shares: math.MinInt64, AverageCost: testutil.Dec("1")}

		_, err := service.ApplyTrade(existing, newOrder("AAPL", model.MarketUS, model.SideBuy, 1, "1"), time.Now())
		if !errors.Is(err, apperrors.ErrInvalidOrder) {
			t.Errorf("Expected ErrInvalidOrder, got %v", err)
		}
	})
}
