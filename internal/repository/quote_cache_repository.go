package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// QuoteCacheRepository stores the latest quote per (symbol, market) in the quote_cache table.
// Entries are overwritten in place and never deleted.
type QuoteCacheRepository struct {
	db *sql.DB
}

// NewQuoteCacheRepository creates a new QuoteCacheRepository with the provided database connection.
func NewQuoteCacheRepository(db *sql.DB) *QuoteCacheRepository {
	return &QuoteCacheRepository{db: db}
}

// GetQuote returns the cached quote for a key, fresh or not.
// Returns ErrQuoteNotCached when the key has never been fetched.
func (r *QuoteCacheRepository) GetQuote(ctx context.Context, key model.QuoteKey) (model.Quote, error) {
	query := `
		SELECT symbol, market, name, price, open, high, low, close, volume,
			change, change_percent, as_of_date, last_updated
		FROM quote_cache
		WHERE symbol = ? AND market = ?
	`

	var q model.Quote
	var market, lastUpdatedStr string
	err := r.db.QueryRowContext(ctx, query, key.Symbol, string(key.Market)).Scan(
		&q.Symbol,
		&market,
		&q.Name,
		&q.Price,
		&q.Open,
		&q.High,
		&q.Low,
		&q.Close,
		&q.Volume,
		&q.Change,
		&q.ChangePercent,
		&q.Date,
		&lastUpdatedStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Quote{}, apperrors.ErrQuoteNotCached
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("failed to query quote_cache table: %w", err)
	}
	q.Market = model.Market(market)

	if q.CachedAt, err = ParseTime(lastUpdatedStr); err != nil {
		return model.Quote{}, fmt.Errorf("failed to parse quote_cache last_updated: %w", err)
	}
	return q, nil
}

// PutQuote inserts or overwrites the cache entry for the quote's key.
func (r *QuoteCacheRepository) PutQuote(ctx context.Context, q model.Quote) error {
	query := `
		INSERT INTO quote_cache (symbol, market, name, price, open, high, low, close, volume,
			change, change_percent, as_of_date, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, market) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume,
			change = excluded.change,
			change_percent = excluded.change_percent,
			as_of_date = excluded.as_of_date,
			last_updated = excluded.last_updated
	`

	_, err := r.db.ExecContext(ctx, query,
		q.Symbol,
		string(q.Market),
		q.Name,
		q.Price,
		q.Open,
		q.High,
		q.Low,
		q.Close,
		q.Volume,
		q.Change,
		q.ChangePercent,
		q.Date,
		FormatTime(q.CachedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quote_cache: %w", err)
	}
	return nil
}
