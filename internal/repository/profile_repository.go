package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// ProfileRepository provides data access methods for the profile table.
type ProfileRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewProfileRepository creates a new ProfileRepository with the provided database connection.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx returns a new ProfileRepository scoped to the provided transaction.
func (r *ProfileRepository) WithTx(tx *sql.Tx) *ProfileRepository {
	return &ProfileRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *ProfileRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetProfile retrieves the profile of a user.
// Returns ErrProfileNotFound if the user has never signed in.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	query := `
		SELECT user_id, email, cash_balance, created_at, updated_at
		FROM profile
		WHERE user_id = ?
	`

	var p model.Profile
	var createdAtStr, updatedAtStr string
	err := r.getQuerier().QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.Email,
		&p.CashBalance,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, apperrors.ErrProfileNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to query profile table: %w", err)
	}

	if p.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Profile{}, fmt.Errorf("failed to parse profile created_at: %w", err)
	}
	if p.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Profile{}, fmt.Errorf("failed to parse profile updated_at: %w", err)
	}

	return p, nil
}

// InsertProfile creates a profile. It is a no-op when the user already has one.
func (r *ProfileRepository) InsertProfile(ctx context.Context, p model.Profile) error {
	query := `
		INSERT INTO profile (user_id, email, cash_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.UserID,
		p.Email,
		p.CashBalance,
		FormatTime(p.CreatedAt),
		FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateCashBalance sets the cash balance of a user.
// Returns ErrProfileNotFound if no row was updated.
func (r *ProfileRepository) UpdateCashBalance(ctx context.Context, userID string, balance decimal.Decimal, now time.Time) error {
	query := `UPDATE profile SET cash_balance = ?, updated_at = ? WHERE user_id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, balance, FormatTime(now), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile cash balance: %w", err)
	}

	return requireRow(result, apperrors.ErrProfileNotFound)
}
