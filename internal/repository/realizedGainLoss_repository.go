package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// RealizedGainLossRepository provides data access methods for the realized_gain_loss table.
type RealizedGainLossRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewRealizedGainLossRepository creates a new RealizedGainLossRepository with the provided database connection.
func NewRealizedGainLossRepository(db *sql.DB) *RealizedGainLossRepository {
	return &RealizedGainLossRepository{db: db}
}

// WithTx returns a new RealizedGainLossRepository scoped to the provided transaction.
func (r *RealizedGainLossRepository) WithTx(tx *sql.Tx) *RealizedGainLossRepository {
	return &RealizedGainLossRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *RealizedGainLossRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// InsertRealizedGainLoss records the gain or loss realized by a closing trade.
func (r *RealizedGainLossRepository) InsertRealizedGainLoss(ctx context.Context, rgl *model.RealizedGainLoss) error {
	query := `
		INSERT INTO realized_gain_loss (id, portfolio_id, transaction_id, symbol, market, transaction_date,
			shares_closed, cost_basis, proceeds, realized_gain_loss, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		rgl.ID,
		rgl.PortfolioID,
		rgl.TransactionID,
		rgl.Symbol,
		string(rgl.Market),
		FormatTime(rgl.TransactionDate),
		rgl.SharesClosed,
		rgl.CostBasis,
		rgl.Proceeds,
		rgl.RealizedGainLoss,
		FormatTime(rgl.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert realized gain/loss: %w", err)
	}
	return nil
}

// GetRealizedGainLossByPortfolios retrieves realized gain/loss records for the given
// portfolios, grouped by portfolio ID and ordered by transaction date.
func (r *RealizedGainLossRepository) GetRealizedGainLossByPortfolios(ctx context.Context, portfolioIDs []string) (map[string][]model.RealizedGainLoss, error) {
	result := make(map[string][]model.RealizedGainLoss)
	if len(portfolioIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, portfolio_id, transaction_id, symbol, market, transaction_date,
			shares_closed, cost_basis, proceeds, realized_gain_loss, created_at
		FROM realized_gain_loss
		WHERE portfolio_id IN (` + placeholders(len(portfolioIDs)) + `)
		ORDER BY transaction_date ASC
	`

	args := make([]any, len(portfolioIDs))
	for i, id := range portfolioIDs {
		args[i] = id
	}

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_gain_loss table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rgl model.RealizedGainLoss
		var market, transactionDateStr, createdAtStr string

		err := rows.Scan(
			&rgl.ID,
			&rgl.PortfolioID,
			&rgl.TransactionID,
			&rgl.Symbol,
			&market,
			&transactionDateStr,
			&rgl.SharesClosed,
			&rgl.CostBasis,
			&rgl.Proceeds,
			&rgl.RealizedGainLoss,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized_gain_loss table results: %w", err)
		}
		rgl.Market = model.Market(market)

		if rgl.TransactionDate, err = ParseTime(transactionDateStr); err != nil {
			return nil, fmt.Errorf("failed to parse realized_gain_loss transaction_date: %w", err)
		}
		if rgl.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse realized_gain_loss created_at: %w", err)
		}

		result[rgl.PortfolioID] = append(result[rgl.PortfolioID], rgl)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_gain_loss table: %w", err)
	}

	return result, nil
}
