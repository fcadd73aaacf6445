package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/repository"
)

// Dec parses a decimal literal and panics on malformed input.
//
// Example usage:
//
//	price := testutil.Dec("183.25")
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ProfileBuilder provides a fluent interface for creating test profiles.
//
// Example usage:
//
//	// Default profile with 1,000,000 cash
//	profile := testutil.NewProfile().Build(t, db)
//
//	// Customized profile
//	profile := testutil.NewProfile().
//	    WithEmail("trader@example.com").
//	    WithCash("1000").
//	    Build(t, db)
type ProfileBuilder struct {
	UserID      string
	Email       string
	CashBalance decimal.Decimal
}

// NewProfile creates a ProfileBuilder with sensible defaults.
func NewProfile() *ProfileBuilder {
	return &ProfileBuilder{
		UserID:      MakeID(),
		Email:       MakeEmail(),
		CashBalance: decimal.NewFromInt(1_000_000),
	}
}

// WithUserID sets a custom user ID.
func (b *ProfileBuilder) WithUserID(id string) *ProfileBuilder {
	b.UserID = id
	return b
}

// WithEmail sets a custom email.
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.Email = email
	return b
}

// WithCash sets the cash balance from a decimal literal.
func (b *ProfileBuilder) WithCash(amount string) *ProfileBuilder {
	b.CashBalance = Dec(amount)
	return b
}

// Build creates the profile in the database and returns it.
func (b *ProfileBuilder) Build(t *testing.T, db *sql.DB) model.Profile {
	t.Helper()

	now := time.Now().UTC()
	query := `
		INSERT INTO profile (user_id, email, cash_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.UserID, b.Email, b.CashBalance, repository.FormatTime(now), repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return model.Profile{
		UserID:      b.UserID,
		Email:       b.Email,
		CashBalance: b.CashBalance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SessionFor returns the session of a profile's user.
func SessionFor(p model.Profile) model.Session {
	return model.Session{UserID: p.UserID, Email: p.Email}
}

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults (creates an owning profile as well)
//	portfolio := testutil.NewPortfolio().Build(t, db)
//
//	// Portfolio for an existing user
//	portfolio := testutil.NewPortfolio().
//	    WithUserID(profile.UserID).
//	    WithName("Custom Portfolio").
//	    Build(t, db)
type PortfolioBuilder struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		ID:          MakeID(),
		UserID:      MakeID(),
		Name:        MakePortfolioName("Test Portfolio"),
		Description: "Test description",
		CreatedAt:   time.Now().UTC(),
	}
}

// WithID sets a custom ID.
func (b *PortfolioBuilder) WithID(id string) *PortfolioBuilder {
	b.ID = id
	return b
}

// WithUserID sets the owning user.
func (b *PortfolioBuilder) WithUserID(userID string) *PortfolioBuilder {
	b.UserID = userID
	return b
}

// WithName sets a custom name.
func (b *PortfolioBuilder) WithName(name string) *PortfolioBuilder {
	b.Name = name
	return b
}

// WithDescription sets a custom description.
func (b *PortfolioBuilder) WithDescription(desc string) *PortfolioBuilder {
	b.Description = desc
	return b
}

// WithCreatedAt sets the creation timestamp, which determines list order.
func (b *PortfolioBuilder) WithCreatedAt(ts time.Time) *PortfolioBuilder {
	b.CreatedAt = ts.UTC()
	return b
}

// Build creates the portfolio in the database and returns it. A profile is created
// for the owning user when none exists.
func (b *PortfolioBuilder) Build(t *testing.T, db *sql.DB) model.Portfolio {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO profile (user_id, email, cash_balance, created_at, updated_at)
		VALUES (?, ?, '1000000', ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, b.UserID, MakeEmail(), repository.FormatTime(b.CreatedAt), repository.FormatTime(b.CreatedAt))
	if err != nil {
		t.Fatalf("Failed to create owning profile: %v", err)
	}

	query := `
		INSERT INTO portfolio (id, user_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = db.Exec(query, b.ID, b.UserID, b.Name, b.Description,
		repository.FormatTime(b.CreatedAt), repository.FormatTime(b.CreatedAt))
	if err != nil {
		t.Fatalf("Failed to create test portfolio: %v", err)
	}

	return model.Portfolio{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.CreatedAt,
	}
}

// Convenience functions

// CreatePortfolio creates a portfolio with the given name for a user.
//
// Example usage:
//
//	portfolio := testutil.CreatePortfolio(t, db, profile.UserID, "My Portfolio")
func CreatePortfolio(t *testing.T, db *sql.DB, userID, name string) model.Portfolio {
	t.Helper()
	return NewPortfolio().WithUserID(userID).WithName(name).Build(t, db)
}

// HoldingBuilder provides a fluent interface for creating test holdings.
//
// Example usage:
//
//	holding := testutil.NewHolding(portfolio).
//	    WithSymbol("AAPL").
//	    WithShares(100).
//	    WithAverageCost("180").
//	    Build(t, db)
type HoldingBuilder struct {
	ID          string
	PortfolioID string
	UserID      string
	Symbol      string
	Name        string
	Market      model.Market
	Shares      int64
	AverageCost decimal.Decimal
}

// NewHolding creates a HoldingBuilder for a portfolio: 100 shares long at 100 on the US market.
func NewHolding(portfolio model.Portfolio) *HoldingBuilder {
	symbol := MakeSymbol("T")
	return &HoldingBuilder{
		ID:          MakeID(),
		PortfolioID: portfolio.ID,
		UserID:      portfolio.UserID,
		Symbol:      symbol,
		Name:        symbol,
		Market:      model.MarketUS,
		Shares:      100,
		AverageCost: decimal.NewFromInt(100),
	}
}

// WithSymbol sets the symbol and display name.
func (b *HoldingBuilder) WithSymbol(symbol string) *HoldingBuilder {
	b.Symbol = symbol
	b.Name = symbol
	return b
}

// WithMarket sets the market.
func (b *HoldingBuilder) WithMarket(market model.Market) *HoldingBuilder {
	b.Market = market
	return b
}

// WithShares sets the signed share count. Negative values create a short.
func (b *HoldingBuilder) WithShares(shares int64) *HoldingBuilder {
	b.Shares = shares
	return b
}

// WithAverageCost sets the native-currency cost basis from a decimal literal.
func (b *HoldingBuilder) WithAverageCost(cost string) *HoldingBuilder {
	b.AverageCost = Dec(cost)
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	now := time.Now().UTC()
	query := `
		INSERT INTO holding (id, portfolio_id, user_id, symbol, name, market, shares, average_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.PortfolioID, b.UserID, b.Symbol, b.Name, string(b.Market),
		b.Shares, b.AverageCost, repository.FormatTime(now), repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	return model.Holding{
		ID:          b.ID,
		PortfolioID: b.PortfolioID,
		UserID:      b.UserID,
		Symbol:      b.Symbol,
		Name:        b.Name,
		Market:      b.Market,
		Shares:      b.Shares,
		AverageCost: b.AverageCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TransactionBuilder provides a fluent interface for creating test transactions.
//
// Example usage:
//
//	tx := testutil.NewTransaction(portfolio).
//	    WithType(model.SideSell).
//	    WithDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)).
//	    Build(t, db)
type TransactionBuilder struct {
	ID              string
	PortfolioID     string
	UserID          string
	Symbol          string
	Market          model.Market
	Type            model.TradeSide
	Shares          int64
	Price           decimal.Decimal
	TransactionDate time.Time
}

// NewTransaction creates a TransactionBuilder for a portfolio: buy 10 AAPL at 100, now.
func NewTransaction(portfolio model.Portfolio) *TransactionBuilder {
	return &TransactionBuilder{
		ID:              MakeID(),
		PortfolioID:     portfolio.ID,
		UserID:          portfolio.UserID,
		Symbol:          "AAPL",
		Market:          model.MarketUS,
		Type:            model.SideBuy,
		Shares:          10,
		Price:           decimal.NewFromInt(100),
		TransactionDate: time.Now().UTC(),
	}
}

// WithSymbol sets the symbol and market.
func (b *TransactionBuilder) WithSymbol(symbol string, market model.Market) *TransactionBuilder {
	b.Symbol = symbol
	b.Market = market
	return b
}

// WithType sets buy or sell.
func (b *TransactionBuilder) WithType(side model.TradeSide) *TransactionBuilder {
	b.Type = side
	return b
}

// WithShares sets the share count.
func (b *TransactionBuilder) WithShares(shares int64) *TransactionBuilder {
	b.Shares = shares
	return b
}

// WithPrice sets the native price from a decimal literal.
func (b *TransactionBuilder) WithPrice(price string) *TransactionBuilder {
	b.Price = Dec(price)
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	b.TransactionDate = date.UTC()
	return b
}

// Build creates the transaction in the database and returns it.
func (b *TransactionBuilder) Build(t *testing.T, db *sql.DB) model.Transaction {
	t.Helper()

	tx := model.Transaction{
		ID:              b.ID,
		PortfolioID:     b.PortfolioID,
		UserID:          b.UserID,
		Symbol:          b.Symbol,
		Name:            b.Symbol,
		Market:          b.Market,
		Type:            b.Type,
		Shares:          b.Shares,
		Price:           b.Price,
		Currency:        b.Market.Currency(),
		TotalAmount:     b.Price.Mul(decimal.NewFromInt(b.Shares)),
		TransactionDate: b.TransactionDate,
		CreatedAt:       b.TransactionDate,
	}

	if err := repository.NewTransactionRepository(db).InsertTransaction(t.Context(), &tx); err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// RealizedGainLossBuilder provides a fluent interface for creating realized gain/loss records.
//
// Example usage:
//
//	rgl := testutil.NewRealizedGainLoss(tx).WithGainLoss("350").Build(t, db)
type RealizedGainLossBuilder struct {
	rgl model.RealizedGainLoss
}

// NewRealizedGainLoss creates a builder linked to a sell transaction, closing all of its
// shares at zero gain.
func NewRealizedGainLoss(tx model.Transaction) *RealizedGainLossBuilder {
	return &RealizedGainLossBuilder{rgl: model.RealizedGainLoss{
		ID:               MakeID(),
		PortfolioID:      tx.PortfolioID,
		TransactionID:    tx.ID,
		Symbol:           tx.Symbol,
		Market:           tx.Market,
		TransactionDate:  tx.TransactionDate,
		SharesClosed:     tx.Shares,
		CostBasis:        tx.TotalAmount,
		Proceeds:         tx.TotalAmount,
		RealizedGainLoss: decimal.Zero,
		CreatedAt:        tx.CreatedAt,
	}}
}

// WithGainLoss sets the realized amount (native currency) from a decimal literal.
func (b *RealizedGainLossBuilder) WithGainLoss(amount string) *RealizedGainLossBuilder {
	b.rgl.RealizedGainLoss = Dec(amount)
	b.rgl.Proceeds = b.rgl.CostBasis.Add(b.rgl.RealizedGainLoss)
	return b
}

// Build creates the record in the database and returns it.
func (b *RealizedGainLossBuilder) Build(t *testing.T, db *sql.DB) model.RealizedGainLoss {
	t.Helper()

	rgl := b.rgl
	if err := repository.NewRealizedGainLossRepository(db).InsertRealizedGainLoss(t.Context(), &rgl); err != nil {
		t.Fatalf("Failed to create test realized gain/loss: %v", err)
	}
	return rgl
}

// QuoteBuilder provides a fluent interface for seeding the quote cache.
//
// Example usage:
//
//	// Fresh quote
//	testutil.NewQuote("AAPL", model.MarketUS).WithPrice("190").Build(t, db)
//
//	// Stale quote, two hours old
//	testutil.NewQuote("AAPL", model.MarketUS).CachedAgo(2 * time.Hour).Build(t, db)
type QuoteBuilder struct {
	quote model.Quote
}

// NewQuote creates a fresh quote at price 100 with open 100.
func NewQuote(symbol string, market model.Market) *QuoteBuilder {
	price := decimal.NewFromInt(100)
	return &QuoteBuilder{quote: model.Quote{
		Symbol:        symbol,
		Market:        market,
		Name:          symbol,
		Price:         price,
		Open:          price,
		High:          price,
		Low:           price,
		Close:         price,
		Volume:        1000,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		Date:          time.Now().UTC().Format("2006-01-02"),
		CachedAt:      time.Now().UTC(),
	}}
}

// WithPrice sets price and close from a decimal literal.
func (b *QuoteBuilder) WithPrice(price string) *QuoteBuilder {
	b.quote.Price = Dec(price)
	b.quote.Close = b.quote.Price
	b.quote.Change = b.quote.Close.Sub(b.quote.Open)
	return b
}

// WithName sets the display name.
func (b *QuoteBuilder) WithName(name string) *QuoteBuilder {
	b.quote.Name = name
	return b
}

// CachedAgo backdates the cache timestamp.
func (b *QuoteBuilder) CachedAgo(age time.Duration) *QuoteBuilder {
	b.quote.CachedAt = time.Now().UTC().Add(-age)
	return b
}

// Quote returns the quote without storing it.
func (b *QuoteBuilder) Quote() model.Quote {
	return b.quote
}

// Build stores the quote in the SQLite quote cache and returns it.
func (b *QuoteBuilder) Build(t *testing.T, db *sql.DB) model.Quote {
	t.Helper()

	if err := repository.NewQuoteCacheRepository(db).PutQuote(t.Context(), b.quote); err != nil {
		t.Fatalf("Failed to seed quote cache: %v", err)
	}
	return b.quote
}
