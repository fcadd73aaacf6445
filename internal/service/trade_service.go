package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

// TradeService executes orders: it resolves the price, applies the ledger rules,
// settles cash and persists everything in one database transaction.
type TradeService struct {
	db                   *sql.DB
	portfolioRepo        *repository.PortfolioRepository
	profileRepo          *repository.ProfileRepository
	holdingRepo          *repository.HoldingRepository
	transactionRepo      *repository.TransactionRepository
	realizedGainLossRepo *repository.RealizedGainLossRepository
	quotes               QuoteSource
	converter            *currency.Converter
	metrics              *metrics.Metrics
}

// NewTradeService creates a new TradeService with the provided dependencies.
func NewTradeService(
	db *sql.DB,
	portfolioRepo *repository.PortfolioRepository,
	profileRepo *repository.ProfileRepository,
	holdingRepo *repository.HoldingRepository,
	transactionRepo *repository.TransactionRepository,
	realizedGainLossRepo *repository.RealizedGainLossRepository,
	quotes QuoteSource,
	converter *currency.Converter,
	m *metrics.Metrics,
) *TradeService {
	return &TradeService{
		db:                   db,
		portfolioRepo:        portfolioRepo,
		profileRepo:          profileRepo,
		holdingRepo:          holdingRepo,
		transactionRepo:      transactionRepo,
		realizedGainLossRepo: realizedGainLossRepo,
		quotes:               quotes,
		converter:            converter,
		metrics:              m,
	}
}

// ExecuteTrade buys or sells shares in a portfolio owned by the session user.
//
// Sequence:
//  1. Validate the order shape (ErrInvalidOrder).
//  2. Resolve the price: the request price if given, otherwise the latest quote.
//     ErrQuoteUnavailable is fatal here.
//     The provider fetch is bounded by the gateway's budget, and a request whose
//     context ended meanwhile stops here with nothing written.
//  3. Inside one SQL transaction, load the portfolio, profile and existing holding,
//     apply the ledger rules and check funds. Nothing is written until both the
//     share check and the funds check pass.
//  4. Insert the transaction, upsert or delete the holding, record realized gain/loss
//     and update the cash balance, then commit.
//
// Business-rule failures (ErrInvalidOrder, ErrInsufficientShares, ErrInsufficientFunds,
// ErrPortfolioNotFound, ErrQuoteUnavailable) are returned as-is. Any store failure rolls
// the transaction back and is returned wrapped in ErrTradeExecutionFailed. Writes are
// never retried.
//
// Trades are serialized by the single-connection database pool; several server
// processes sharing one database file fall back to last-write-wins on the holding row.
func (s *TradeService) ExecuteTrade(ctx context.Context, session model.Session, portfolioID string, req request.TradeRequest) (model.TradeResult, error) {
	side := model.TradeSide(strings.ToLower(strings.TrimSpace(req.Type)))

	result, err := s.executeTrade(ctx, session, portfolioID, req, side)

	label := string(side)
	if !side.Valid() {
		label = "invalid"
	}
	switch {
	case err == nil:
		s.metrics.TradesTotal.WithLabelValues(label, "executed").Inc()
	case errors.Is(err, apperrors.ErrTradeExecutionFailed):
		s.metrics.TradesTotal.WithLabelValues(label, "failed").Inc()
		log.Error().Err(err).Str("portfolio_id", portfolioID).Str("symbol", req.Symbol).Msg("trade rolled back")
	default:
		s.metrics.TradesTotal.WithLabelValues(label, "rejected").Inc()
	}

	return result, err
}

func (s *TradeService) executeTrade(ctx context.Context, session model.Session, portfolioID string, req request.TradeRequest, side model.TradeSide) (model.TradeResult, error) {
	market, _ := model.ParseMarket(req.Market)
	order := model.TradeOrder{
		PortfolioID: portfolioID,
		UserID:      session.UserID,
		Symbol:      model.NormalizeSymbol(req.Symbol),
		Name:        strings.TrimSpace(req.Name),
		Market:      market,
		Side:        side,
		Shares:      req.Shares,
	}
	if req.Price != nil {
		order.Price = *req.Price
	}
	if err := validateOrder(order, req.Price != nil); err != nil {
		return model.TradeResult{}, err
	}

	if req.Price == nil {
		quote, err := s.quotes.GetQuote(ctx, order.Symbol, order.Market)
		if err != nil {
			return model.TradeResult{}, err
		}
		order.Price = quote.Price
		if order.Name == "" {
			order.Name = quote.Name
		}
		if quote.Stale {
			log.Warn().Str("symbol", order.Symbol).Str("market", string(order.Market)).Msg("executing trade at stale quote")
		}
	}

	// Nothing is written for a caller that has already gone away.
	if err := ctx.Err(); err != nil {
		return model.TradeResult{}, fmt.Errorf("trade abandoned before execution: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TradeResult{}, executionFailed(err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error().Err(err).Msg("failed to roll back trade")
		}
	}()

	portfolios := s.portfolioRepo.WithTx(tx)
	profiles := s.profileRepo.WithTx(tx)
	holdings := s.holdingRepo.WithTx(tx)
	transactions := s.transactionRepo.WithTx(tx)
	realized := s.realizedGainLossRepo.WithTx(tx)

	if _, err := portfolios.GetPortfolioForUser(ctx, portfolioID, session.UserID); err != nil {
		if errors.Is(err, apperrors.ErrPortfolioNotFound) {
			return model.TradeResult{}, err
		}
		return model.TradeResult{}, executionFailed(err)
	}

	profile, err := profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrProfileNotFound) {
			return model.TradeResult{}, err
		}
		return model.TradeResult{}, executionFailed(err)
	}

	var existing *model.Holding
	current, err := holdings.GetHolding(ctx, portfolioID, order.Symbol, order.Market)
	switch {
	case err == nil:
		existing = &current
	case !errors.Is(err, apperrors.ErrHoldingNotFound):
		return model.TradeResult{}, executionFailed(err)
	}

	now := time.Now().UTC()
	outcome, err := ApplyTrade(existing, order, now)
	if err != nil {
		return model.TradeResult{}, err
	}

	amountHome := currency.Round(s.converter.ToHome(outcome.Transaction.TotalAmount, order.Market), model.HomeCurrency)
	balance, err := Settle(profile.CashBalance, side, amountHome)
	if err != nil {
		return model.TradeResult{}, err
	}

	// Writes start here; every failure below is a partial execution.
	if err := transactions.InsertTransaction(ctx, &outcome.Transaction); err != nil {
		return model.TradeResult{}, executionFailed(err)
	}

	if outcome.Holding != nil {
		if err := holdings.UpsertHolding(ctx, outcome.Holding); err != nil {
			return model.TradeResult{}, executionFailed(err)
		}
	} else if existing != nil {
		if err := holdings.DeleteHolding(ctx, existing.ID); err != nil {
			return model.TradeResult{}, executionFailed(err)
		}
	}

	if outcome.Realized != nil {
		if err := realized.InsertRealizedGainLoss(ctx, outcome.Realized); err != nil {
			return model.TradeResult{}, executionFailed(err)
		}
	}

	if err := profiles.UpdateCashBalance(ctx, session.UserID, balance, now); err != nil {
		return model.TradeResult{}, executionFailed(err)
	}

	if err := tx.Commit(); err != nil {
		return model.TradeResult{}, executionFailed(err)
	}

	log.Info().
		Str("user_id", session.UserID).
		Str("portfolio_id", portfolioID).
		Str("symbol", order.Symbol).
		Str("side", string(side)).
		Int64("shares", order.Shares).
		Str("action", string(outcome.Action)).
		Msg("trade executed")

	return model.TradeResult{
		Transaction:      outcome.Transaction,
		Holding:          outcome.Holding,
		Action:           outcome.Action,
		RealizedGainLoss: outcome.Realized,
		CashBalance:      balance,
		AmountHome:       amountHome,
		Message:          tradeMessage(outcome.Transaction, amountHome),
	}, nil
}

// tradeMessage summarizes an executed trade, e.g.
// "Bought 100 AAPL at $180.00 for $18,000.00".
func tradeMessage(t model.Transaction, amountHome decimal.Decimal) string {
	verb := "Bought"
	if t.Type == model.SideSell {
		verb = "Sold"
	}
	msg := fmt.Sprintf("%s %d %s at %s", verb, t.Shares, t.Symbol, currency.Format(t.Price, t.Currency))
	return msg + " for " + currency.Format(amountHome, model.HomeCurrency)
}

func executionFailed(err error) error {
	return fmt.Errorf("%w: %w", apperrors.ErrTradeExecutionFailed, err)
}
