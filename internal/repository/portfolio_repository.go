package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// PortfolioRepository provides data access methods for the portfolio table.
// Every query is scoped to the owning user.
type PortfolioRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPortfolioRepository creates a new PortfolioRepository with the provided database connection.
func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

// WithTx returns a new PortfolioRepository scoped to the provided transaction.
func (r *PortfolioRepository) WithTx(tx *sql.Tx) *PortfolioRepository {
	return &PortfolioRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *PortfolioRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// GetPortfoliosByUser retrieves all portfolios owned by a user, oldest first.
// Returns an empty slice if the user owns none.
func (r *PortfolioRepository) GetPortfoliosByUser(ctx context.Context, userID string) ([]model.Portfolio, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM portfolio
		WHERE user_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio table: %w", err)
	}
	defer rows.Close()

	portfolios := []model.Portfolio{}

	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio table: %w", err)
	}

	return portfolios, nil
}

// GetPortfolioForUser retrieves a portfolio by ID, provided the user owns it.
// Returns ErrPortfolioNotFound otherwise.
func (r *PortfolioRepository) GetPortfolioForUser(ctx context.Context, portfolioID, userID string) (model.Portfolio, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM portfolio
		WHERE id = ? AND user_id = ?
	`

	p, err := scanPortfolio(r.getQuerier().QueryRowContext(ctx, query, portfolioID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, apperrors.ErrPortfolioNotFound
	}
	if err != nil {
		return model.Portfolio{}, err
	}

	return p, nil
}

// CountPortfolios returns how many portfolios a user owns.
func (r *PortfolioRepository) CountPortfolios(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolio WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count portfolios: %w", err)
	}
	return count, nil
}

// InsertPortfolio creates a new portfolio.
func (r *PortfolioRepository) InsertPortfolio(ctx context.Context, p *model.Portfolio) error {
	query := `
		INSERT INTO portfolio (id, user_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.Description,
		FormatTime(p.CreatedAt),
		FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	return nil
}

// UpdatePortfolio updates the name and description of a portfolio.
// Returns ErrPortfolioNotFound if the portfolio does not exist or belongs to another user.
func (r *PortfolioRepository) UpdatePortfolio(ctx context.Context, p *model.Portfolio) error {
	query := `
		UPDATE portfolio
		SET name = ?, description = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := r.getQuerier().ExecContext(ctx, query,
		p.Name,
		p.Description,
		FormatTime(p.UpdatedAt),
		p.ID,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	return requireRow(result, apperrors.ErrPortfolioNotFound)
}

// DeletePortfolio removes a portfolio. Holdings, transactions and realized gain/loss
// records are removed by the foreign key cascade.
// Returns ErrPortfolioNotFound if the portfolio does not exist or belongs to another user.
func (r *PortfolioRepository) DeletePortfolio(ctx context.Context, portfolioID, userID string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM portfolio WHERE id = ? AND user_id = ?`, portfolioID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	return requireRow(result, apperrors.ErrPortfolioNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (model.Portfolio, error) {
	var p model.Portfolio
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Portfolio{}, err
	}
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to scan portfolio table results: %w", err)
	}

	if p.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to parse portfolio created_at: %w", err)
	}
	if p.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Portfolio{}, fmt.Errorf("failed to parse portfolio updated_at: %w", err)
	}

	return p, nil
}

// requireRow maps "no rows affected" to notFound.
func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
