package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

// PortfolioService handles portfolio-related business logic operations.
// It combines stored holdings and realized gain/loss records with live quotes
// to produce portfolio summaries in the home currency.
type PortfolioService struct {
	db                   *sql.DB
	portfolioRepo        *repository.PortfolioRepository
	holdingRepo          *repository.HoldingRepository
	realizedGainLossRepo *repository.RealizedGainLossRepository
	valuationService     *ValuationService
}

// NewPortfolioService creates a new PortfolioService with the provided dependencies.
func NewPortfolioService(
	db *sql.DB,
	portfolioRepo *repository.PortfolioRepository,
	holdingRepo *repository.HoldingRepository,
	realizedGainLossRepo *repository.RealizedGainLossRepository,
	valuationService *ValuationService,
) *PortfolioService {
	return &PortfolioService{
		db:                   db,
		portfolioRepo:        portfolioRepo,
		holdingRepo:          holdingRepo,
		realizedGainLossRepo: realizedGainLossRepo,
		valuationService:     valuationService,
	}
}

// ListPortfolios returns every portfolio of the session user with its current valuation.
// Quotes are fetched once per distinct symbol across all portfolios; a symbol without a
// quote is valued at cost and marks its portfolio as degraded.
func (s *PortfolioService) ListPortfolios(ctx context.Context, session model.Session) ([]model.PortfolioSummary, error) {
	portfolios, err := s.portfolioRepo.GetPortfoliosByUser(ctx, session.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return s.summarize(ctx, portfolios)
}

// GetPortfolio returns one portfolio summary.
// Returns ErrPortfolioNotFound if the portfolio does not exist or belongs to another user.
func (s *PortfolioService) GetPortfolio(ctx context.Context, session model.Session, portfolioID string) (model.PortfolioSummary, error) {
	portfolio, err := s.portfolioRepo.GetPortfolioForUser(ctx, portfolioID, session.UserID)
	if err != nil {
		return model.PortfolioSummary{}, storeError(err)
	}

	summaries, err := s.summarize(ctx, []model.Portfolio{portfolio})
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	return summaries[0], nil
}

// GetHoldings returns the per-holding valuation of one portfolio.
func (s *PortfolioService) GetHoldings(ctx context.Context, session model.Session, portfolioID string) (model.Valuation, error) {
	if _, err := s.portfolioRepo.GetPortfolioForUser(ctx, portfolioID, session.UserID); err != nil {
		return model.Valuation{}, storeError(err)
	}

	holdings, err := s.holdingRepo.GetHoldingsByPortfolios(ctx, []string{portfolioID})
	if err != nil {
		return model.Valuation{}, storeError(err)
	}

	return s.valuationService.ValueHoldings(ctx, holdings[portfolioID]), nil
}

// summarize values the given portfolios and adds their realized gain/loss totals.
func (s *PortfolioService) summarize(ctx context.Context, portfolios []model.Portfolio) ([]model.PortfolioSummary, error) {
	summaries := make([]model.PortfolioSummary, 0, len(portfolios))
	if len(portfolios) == 0 {
		return summaries, nil
	}

	portfolioIDs := make([]string, len(portfolios))
	for i, p := range portfolios {
		portfolioIDs[i] = p.ID
	}

	holdings, err := s.holdingRepo.GetHoldingsByPortfolios(ctx, portfolioIDs)
	if err != nil {
		return nil, storeError(err)
	}
	realized, err := s.realizedGainLossRepo.GetRealizedGainLossByPortfolios(ctx, portfolioIDs)
	if err != nil {
		return nil, storeError(err)
	}

	valuations := s.valuationService.ValuePortfolios(ctx, holdings)
	conv := s.valuationService.Converter()

	for _, p := range portfolios {
		v, ok := valuations[p.ID]
		if !ok {
			v = Valuate(nil, nil, conv)
		}

		totalRealized := decimal.Zero
		for _, r := range realized[p.ID] {
			totalRealized = totalRealized.Add(conv.ToHome(r.RealizedGainLoss, r.Market))
		}

		summaries = append(summaries, model.PortfolioSummary{
			ID:                      p.ID,
			Name:                    p.Name,
			Description:             p.Description,
			HoldingCount:            len(v.Holdings),
			TotalValue:              v.TotalValue,
			TotalCost:               v.TotalCost,
			TotalUnrealizedGainLoss: v.UnrealizedPL,
			TotalUnrealizedPercent:  v.UnrealizedPercent,
			TotalRealizedGainLoss:   totalRealized,
			LongExposure:            v.LongExposure,
			ShortExposure:           v.ShortExposure,
			Degraded:                v.Degraded,
			CreatedAt:               p.CreatedAt,
			UpdatedAt:               p.UpdatedAt,
		})
	}

	return summaries, nil
}

// CreatePortfolio creates an empty portfolio for the session user.
func (s *PortfolioService) CreatePortfolio(ctx context.Context, session model.Session, req request.CreatePortfolioRequest) (*model.Portfolio, error) {
	now := time.Now().UTC()
	portfolio := &model.Portfolio{
		ID:          uuid.New().String(),
		UserID:      session.UserID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.portfolioRepo.InsertPortfolio(ctx, portfolio); err != nil {
		return nil, storeError(err)
	}

	return portfolio, nil
}

// UpdatePortfolio changes the name and/or description of a portfolio.
// Nil request fields keep their current value.
func (s *PortfolioService) UpdatePortfolio(ctx context.Context, session model.Session, portfolioID string, req request.UpdatePortfolioRequest) (*model.Portfolio, error) {
	portfolio, err := s.portfolioRepo.GetPortfolioForUser(ctx, portfolioID, session.UserID)
	if err != nil {
		return nil, storeError(err)
	}

	if req.Name != nil {
		portfolio.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		portfolio.Description = strings.TrimSpace(*req.Description)
	}
	portfolio.UpdatedAt = time.Now().UTC()

	if err := s.portfolioRepo.UpdatePortfolio(ctx, &portfolio); err != nil {
		return nil, storeError(err)
	}

	return &portfolio, nil
}

// DeletePortfolio removes a portfolio together with its holdings, transactions and
// realized gain/loss records. A user's last remaining portfolio cannot be deleted.
//
// Returns:
//   - ErrPortfolioNotFound if the portfolio does not exist or belongs to another user
//   - ErrLastPortfolio if it is the only portfolio of the user
func (s *PortfolioService) DeletePortfolio(ctx context.Context, session model.Session, portfolioID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error().Err(err).Msg("failed to roll back portfolio delete")
		}
	}()

	portfolios := s.portfolioRepo.WithTx(tx)

	if _, err := portfolios.GetPortfolioForUser(ctx, portfolioID, session.UserID); err != nil {
		return storeError(err)
	}

	count, err := portfolios.CountPortfolios(ctx, session.UserID)
	if err != nil {
		return storeError(err)
	}
	if count <= 1 {
		return apperrors.ErrLastPortfolio
	}

	if err := portfolios.DeletePortfolio(ctx, portfolioID, session.UserID); err != nil {
		return storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return storeError(err)
	}

	log.Info().Str("user_id", session.UserID).Str("portfolio_id", portfolioID).Msg("portfolio deleted")
	return nil
}
