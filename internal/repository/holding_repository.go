package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// WithTx returns a new HoldingRepository scoped to the provided transaction.
func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *HoldingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const holdingColumns = `id, portfolio_id, user_id, symbol, name, market, shares, average_cost, created_at, updated_at`

// GetHolding retrieves the open position for a symbol in a portfolio.
// Returns ErrHoldingNotFound when the portfolio holds no position in the symbol.
func (r *HoldingRepository) GetHolding(ctx context.Context, portfolioID, symbol string, market model.Market) (model.Holding, error) {
	query := `SELECT ` + holdingColumns + `
		FROM holding
		WHERE portfolio_id = ? AND symbol = ? AND market = ?
	`

	h, err := scanHolding(r.getQuerier().QueryRowContext(ctx, query, portfolioID, symbol, string(market)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, err
	}
	return h, nil
}

// GetHoldingsByPortfolios retrieves the holdings of the given portfolios, grouped by portfolio ID.
// Portfolios without holdings are absent from the map.
func (r *HoldingRepository) GetHoldingsByPortfolios(ctx context.Context, portfolioIDs []string) (map[string][]model.Holding, error) {
	result := make(map[string][]model.Holding)
	if len(portfolioIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + holdingColumns + `
		FROM holding
		WHERE portfolio_id IN (` + placeholders(len(portfolioIDs)) + `)
		ORDER BY symbol ASC, market ASC
	`

	args := make([]any, len(portfolioIDs))
	for i, id := range portfolioIDs {
		args[i] = id
	}

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		result[h.PortfolioID] = append(result[h.PortfolioID], h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return result, nil
}

// GetHeldSymbols returns every distinct (symbol, market) pair with an open position
// across all portfolios.
func (r *HoldingRepository) GetHeldSymbols(ctx context.Context) ([]model.QuoteKey, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT DISTINCT symbol, market FROM holding ORDER BY market, symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query held symbols: %w", err)
	}
	defer rows.Close()

	keys := []model.QuoteKey{}
	for rows.Next() {
		var k model.QuoteKey
		var market string
		if err := rows.Scan(&k.Symbol, &market); err != nil {
			return nil, fmt.Errorf("failed to scan held symbols: %w", err)
		}
		k.Market = model.Market(market)
		keys = append(keys, k)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating held symbols: %w", err)
	}
	return keys, nil
}

// UpsertHolding inserts a holding or, when the portfolio already holds the symbol,
// overwrites its share count, cost basis and name.
func (r *HoldingRepository) UpsertHolding(ctx context.Context, h *model.Holding) error {
	query := `
		INSERT INTO holding (` + holdingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (portfolio_id, symbol, market) DO UPDATE SET
			name = excluded.name,
			shares = excluded.shares,
			average_cost = excluded.average_cost,
			updated_at = excluded.updated_at
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		h.ID,
		h.PortfolioID,
		h.UserID,
		h.Symbol,
		h.Name,
		string(h.Market),
		h.Shares,
		h.AverageCost,
		FormatTime(h.CreatedAt),
		FormatTime(h.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// DeleteHolding removes a holding by its ID.
// Returns ErrHoldingNotFound if no record with the given ID exists.
func (r *HoldingRepository) DeleteHolding(ctx context.Context, holdingID string) error {
	result, err := r.getQuerier().ExecContext(ctx, `DELETE FROM holding WHERE id = ?`, holdingID)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return requireRow(result, apperrors.ErrHoldingNotFound)
}

func scanHolding(row rowScanner) (model.Holding, error) {
	var h model.Holding
	var market, createdAtStr, updatedAtStr string

	err := row.Scan(
		&h.ID,
		&h.PortfolioID,
		&h.UserID,
		&h.Symbol,
		&h.Name,
		&market,
		&h.Shares,
		&h.AverageCost,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Holding{}, err
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding table results: %w", err)
	}
	h.Market = model.Market(market)

	if h.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Holding{}, fmt.Errorf("failed to parse holding created_at: %w", err)
	}
	if h.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Holding{}, fmt.Errorf("failed to parse holding updated_at: %w", err)
	}
	return h, nil
}
