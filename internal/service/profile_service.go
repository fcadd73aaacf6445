package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

// DefaultStartingCash is the balance, in the home currency, given to every new profile.
var DefaultStartingCash = decimal.NewFromInt(1_000_000)

// ProfileService provisions and reads per-user simulation state.
type ProfileService struct {
	db            *sql.DB
	profileRepo   *repository.ProfileRepository
	portfolioRepo *repository.PortfolioRepository
	startingCash  decimal.Decimal
}

// NewProfileService creates a new ProfileService. A non-positive startingCash falls
// back to DefaultStartingCash.
func NewProfileService(
	db *sql.DB,
	profileRepo *repository.ProfileRepository,
	portfolioRepo *repository.PortfolioRepository,
	startingCash decimal.Decimal,
) *ProfileService {
	if !startingCash.IsPositive() {
		startingCash = DefaultStartingCash
	}
	return &ProfileService{
		db:            db,
		profileRepo:   profileRepo,
		portfolioRepo: portfolioRepo,
		startingCash:  startingCash,
	}
}

// GetProfile returns the profile of the session user.
func (s *ProfileService) GetProfile(ctx context.Context, session model.Session) (model.Profile, error) {
	return s.profileRepo.GetProfile(ctx, session.UserID)
}

// EnsureProfile returns the session user's profile, creating it on first use together
// with the default portfolio. Calling it again for the same user changes nothing.
func (s *ProfileService) EnsureProfile(ctx context.Context, session model.Session) (model.Profile, error) {
	profile, err := s.profileRepo.GetProfile(ctx, session.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperrors.ErrProfileNotFound) {
		return model.Profile{}, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	if err := s.provision(ctx, session); err != nil {
		return model.Profile{}, fmt.Errorf("%w: failed to provision profile: %w", apperrors.ErrStoreUnavailable, err)
	}

	return s.profileRepo.GetProfile(ctx, session.UserID)
}

func (s *ProfileService) provision(ctx context.Context, session model.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error().Err(err).Msg("failed to roll back profile provisioning")
		}
	}()

	now := time.Now().UTC()
	profiles := s.profileRepo.WithTx(tx)
	portfolios := s.portfolioRepo.WithTx(tx)

	if err := profiles.InsertProfile(ctx, model.Profile{
		UserID:      session.UserID,
		Email:       session.Email,
		CashBalance: s.startingCash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return err
	}

	count, err := portfolios.CountPortfolios(ctx, session.UserID)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := portfolios.InsertPortfolio(ctx, &model.Portfolio{
			ID:          uuid.New().String(),
			UserID:      session.UserID,
			Name:        model.DefaultPortfolioName,
			Description: model.DefaultPortfolioDescription,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Str("user_id", session.UserID).Msg("provisioned new profile")
	return nil
}
