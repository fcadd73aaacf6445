package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// TransactionRepository provides data access methods for the append-only transaction table.
// There are deliberately no update or delete methods.
type TransactionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewTransactionRepository creates a new TransactionRepository with the provided database connection.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a new TransactionRepository scoped to the provided transaction.
func (r *TransactionRepository) WithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{
		db: r.db,
		tx: tx,
	}
}

// getQuerier returns the active transaction if one is set, otherwise the database connection.
func (r *TransactionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const transactionColumns = `id, portfolio_id, user_id, symbol, name, market, type, shares, price,
	currency, total_amount, transaction_date, created_at`

// InsertTransaction appends a transaction record.
func (r *TransactionRepository) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	query := `
		INSERT INTO "transaction" (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		t.ID,
		t.PortfolioID,
		t.UserID,
		t.Symbol,
		t.Name,
		string(t.Market),
		string(t.Type),
		t.Shares,
		t.Price,
		t.Currency,
		t.TotalAmount,
		FormatTime(t.TransactionDate),
		FormatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransactions retrieves a user's transactions matching the filters, newest first.
// A zero Limit returns every match.
func (r *TransactionRepository) GetTransactions(ctx context.Context, userID string, filters model.TransactionFilters) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE user_id = ?
	`
	args := []any{userID}

	if filters.PortfolioID != "" {
		query += " AND portfolio_id = ?"
		args = append(args, filters.PortfolioID)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filters.Type))
	}
	if filters.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filters.Symbol)
	}
	if filters.Market != "" {
		query += " AND market = ?"
		args = append(args, string(filters.Market))
	}
	if filters.StartDate != nil {
		query += " AND transaction_date >= ?"
		args = append(args, FormatTime(*filters.StartDate))
	}
	if filters.EndDate != nil {
		query += " AND transaction_date <= ?"
		args = append(args, FormatTime(*filters.EndDate))
	}

	query += " ORDER BY transaction_date DESC, created_at DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction table: %w", err)
	}

	return transactions, nil
}

// GetTransaction retrieves a single transaction owned by the user.
// Returns ErrTransactionNotFound otherwise.
func (r *TransactionRepository) GetTransaction(ctx context.Context, transactionID, userID string) (model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM "transaction"
		WHERE id = ? AND user_id = ?
	`

	t, err := scanTransaction(r.getQuerier().QueryRowContext(ctx, query, transactionID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, apperrors.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	var market, side, transactionDateStr, createdAtStr string

	err := row.Scan(
		&t.ID,
		&t.PortfolioID,
		&t.UserID,
		&t.Symbol,
		&t.Name,
		&market,
		&side,
		&t.Shares,
		&t.Price,
		&t.Currency,
		&t.TotalAmount,
		&transactionDateStr,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, err
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction table results: %w", err)
	}
	t.Market = model.Market(market)
	t.Type = model.TradeSide(side)

	if t.TransactionDate, err = ParseTime(transactionDateStr); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to parse transaction_date: %w", err)
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to parse transaction created_at: %w", err)
	}
	return t, nil
}
