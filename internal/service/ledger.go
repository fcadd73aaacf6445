package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// ApplyTrade applies one order to the holding it targets and returns the resulting
// position, the transaction record and any realized gain or loss. It performs no I/O;
// the caller persists the outcome atomically.
//
// Position rules, with shares signed (long > 0, short < 0):
//   - No position: a buy opens a long, a sell opens a short, at the trade price.
//   - Same direction (buy into long, sell into short): shares grow and the average cost
//     becomes the share-weighted blend of the old basis and the trade price.
//   - Opposite direction, partial: shares shrink and the average cost is unchanged.
//   - Opposite direction, exact: the position is closed and Outcome.Holding is nil.
//   - Opposite direction, crossing zero: the old position is closed and the remainder
//     opens in the other direction with the trade price as its basis.
//
// Selling more than an existing long holds fails with ErrInsufficientShares. Selling
// with no position, or against a short, is allowed and opens or extends a short. A buy
// larger than an open short covers it and flips to long.
//
// Orders above model.MaxOrderShares, and orders that would leave a position larger
// than model.MaxPositionShares in either direction, fail with ErrInvalidOrder.
//
// Parameters:
//   - existing: The current holding, or nil when the portfolio holds no position
//   - order: The order to apply; prices are in the market's native currency
//   - now: Timestamp recorded on the transaction and holding
//
// Returns:
//   - model.TradeOutcome: Next holding state, action taken, transaction and realized P/L
//   - error: ErrInvalidOrder or ErrInsufficientShares; the outcome is empty on error
func ApplyTrade(existing *model.Holding, order model.TradeOrder, now time.Time) (model.TradeOutcome, error) {
	if err := validateOrder(order, true); err != nil {
		return model.TradeOutcome{}, err
	}

	delta := order.Shares
	if order.Side == model.SideSell {
		delta = -order.Shares
	}

	var oldShares int64
	if existing != nil {
		oldShares = existing.Shares
	}

	if order.Side == model.SideSell && oldShares > 0 && order.Shares > oldShares {
		return model.TradeOutcome{}, fmt.Errorf("%w: selling %d %s but only %d held",
			apperrors.ErrInsufficientShares, order.Shares, order.Symbol, oldShares)
	}

	name := order.Name
	if name == "" {
		name = order.Symbol
	}

	outcome := model.TradeOutcome{
		Previous: existing,
		Transaction: model.Transaction{
			ID:              uuid.New().String(),
			PortfolioID:     order.PortfolioID,
			UserID:          order.UserID,
			Symbol:          order.Symbol,
			Name:            name,
			Market:          order.Market,
			Type:            order.Side,
			Shares:          order.Shares,
			Price:           order.Price,
			Currency:        order.Market.Currency(),
			TotalAmount:     order.Price.Mul(decimal.NewFromInt(order.Shares)),
			TransactionDate: now,
			CreatedAt:       now,
		},
	}

	// Both operands are bounded by the limits checked here, so the sum cannot wrap.
	if !withinPositionLimit(oldShares) {
		return model.TradeOutcome{}, fmt.Errorf("%w: existing position of %d shares exceeds the limit",
			apperrors.ErrInvalidOrder, oldShares)
	}
	newShares := oldShares + delta
	if !withinPositionLimit(newShares) {
		return model.TradeOutcome{}, fmt.Errorf("%w: resulting position of %d shares exceeds the limit of %d",
			apperrors.ErrInvalidOrder, newShares, model.MaxPositionShares)
	}

	switch {
	case oldShares == 0:
		outcome.Action = model.HoldingCreated
		outcome.Holding = &model.Holding{
			ID:          uuid.New().String(),
			PortfolioID: order.PortfolioID,
			UserID:      order.UserID,
			Symbol:      order.Symbol,
			Name:        name,
			Market:      order.Market,
			Shares:      newShares,
			AverageCost: order.Price,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return outcome, nil

	case sameSign(oldShares, delta):
		next := *existing
		next.Shares = newShares
		next.AverageCost = weightedAverage(abs(oldShares), existing.AverageCost, abs(delta), order.Price)
		next.Name = name
		next.UpdatedAt = now
		outcome.Action = model.HoldingIncreased
		outcome.Holding = &next
		return outcome, nil
	}

	// Opposite direction: part or all of the existing position is closed.
	closed := min(abs(oldShares), abs(delta))
	outcome.Realized = realize(existing, closed, order.Price, outcome.Transaction, now)

	switch {
	case newShares == 0:
		outcome.Action = model.HoldingClosed
		outcome.Holding = nil
	case sameSign(oldShares, newShares):
		next := *existing
		next.Shares = newShares
		next.UpdatedAt = now
		outcome.Action = model.HoldingReduced
		outcome.Holding = &next
	default:
		next := *existing
		next.Shares = newShares
		next.AverageCost = order.Price
		next.Name = name
		next.UpdatedAt = now
		outcome.Action = model.HoldingFlipped
		outcome.Holding = &next
	}

	return outcome, nil
}

// validateOrder enforces the input constraints of an order. The price is only checked
// when checkPrice is set, so an order can be validated before its price is resolved.
func validateOrder(order model.TradeOrder, checkPrice bool) error {
	var problems []string
	if strings.TrimSpace(order.Symbol) == "" {
		problems = append(problems, "symbol is required")
	}
	if !order.Market.Valid() {
		problems = append(problems, fmt.Sprintf("unsupported market %q", order.Market))
	}
	if !order.Side.Valid() {
		problems = append(problems, fmt.Sprintf("side must be buy or sell, got %q", order.Side))
	}
	if order.Shares <= 0 {
		problems = append(problems, "shares must be a positive integer")
	} else if order.Shares > model.MaxOrderShares {
		problems = append(problems, fmt.Sprintf("shares must be at most %d", model.MaxOrderShares))
	}
	if checkPrice && !order.Price.IsPositive() {
		problems = append(problems, "price must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidOrder, strings.Join(problems, "; "))
	}
	return nil
}

// realize computes the gain or loss of closing `closed` shares of an existing position.
// Longs gain when the price rose above the basis, shorts when it fell below.
func realize(existing *model.Holding, closed int64, price decimal.Decimal, tx model.Transaction, now time.Time) *model.RealizedGainLoss {
	qty := decimal.NewFromInt(closed)
	costBasis := existing.AverageCost.Mul(qty)
	proceeds := price.Mul(qty)

	gain := proceeds.Sub(costBasis)
	if existing.IsShort() {
		gain = gain.Neg()
	}

	return &model.RealizedGainLoss{
		ID:               uuid.New().String(),
		PortfolioID:      tx.PortfolioID,
		TransactionID:    tx.ID,
		Symbol:           tx.Symbol,
		Market:           tx.Market,
		TransactionDate:  tx.TransactionDate,
		SharesClosed:     closed,
		CostBasis:        costBasis,
		Proceeds:         proceeds,
		RealizedGainLoss: gain,
		CreatedAt:        now,
	}
}

// weightedAverage blends two prices by their (unsigned) share counts.
func weightedAverage(sharesA int64, priceA decimal.Decimal, sharesB int64, priceB decimal.Decimal) decimal.Decimal {
	a := decimal.NewFromInt(sharesA)
	b := decimal.NewFromInt(sharesB)
	return a.Mul(priceA).Add(b.Mul(priceB)).Div(a.Add(b))
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// withinPositionLimit compares signed values directly so math.MinInt64 is rejected too.
func withinPositionLimit(n int64) bool {
	return n <= model.MaxPositionShares && n >= -model.MaxPositionShares
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
