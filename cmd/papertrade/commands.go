package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/app"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/logging"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/service"
)

var commands = []subcommands.Command{
	&migrateCmd{},
	&quoteCmd{},
	&refreshCmd{},
	&keygenCmd{},
}

// loadApp reads the configuration and builds the application, reporting failures on stderr.
func loadApp(ctx context.Context) (*app.App, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, false
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, false
	}
	return a, true
}

// migrateCmd implements the "migrate" command.
type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "applies pending database migrations" }
func (*migrateCmd) Usage() string {
	return `migrate

Applies every pending schema migration to DATABASE_URL and prints the resulting version.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	db, err := database.Open(cfg.Database.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	version, err := database.Migrate(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("schema version %d\n", version)
	return subcommands.ExitSuccess
}

// quoteCmd implements the "quote" command.
type quoteCmd struct {
	market  string
	refresh bool
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "prints quotes through the quote cache" }
func (*quoteCmd) Usage() string {
	return `quote [-m market] [-refresh] symbol...

Resolves each symbol through the quote cache, fetching from Marketstack when the
cached entry is missing or stale. -refresh always fetches.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.market, "m", "US", "market code: US, HK or CN")
	f.BoolVar(&c.refresh, "refresh", false, "bypass the freshness check")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one symbol is required")
		return subcommands.ExitUsageError
	}
	market, ok := model.ParseMarket(c.market)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported market %q\n", c.market)
		return subcommands.ExitUsageError
	}

	a, ok := loadApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	status := subcommands.ExitSuccess
	for _, symbol := range f.Args() {
		var (
			q   model.Quote
			err error
		)
		if c.refresh {
			q, err = a.Services.Quote.RefreshQuote(ctx, model.QuoteKey{Symbol: symbol, Market: market})
		} else {
			q, err = a.Services.Quote.GetQuote(ctx, symbol, market)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", symbol, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Println(formatQuote(q))
	}
	return status
}

func formatQuote(q model.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s %-2s %12s %8s%%", q.Symbol, q.Market, currency.Format(q.Price, q.Market.Currency()), q.ChangePercent.StringFixed(2))
	if q.Name != "" && q.Name != q.Symbol {
		fmt.Fprintf(&b, "  %s", q.Name)
	}
	if q.Stale {
		b.WriteString("  (stale)")
	}
	return b.String()
}

// refreshCmd implements the "refresh" command.
type refreshCmd struct {
	timeout time.Duration
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refreshes the quote of every held symbol" }
func (*refreshCmd) Usage() string {
	return `refresh [-timeout d]

Runs one pass of the scheduled quote refresher immediately.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 5*time.Minute, "maximum duration of the refresh")
}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	a, ok := loadApp(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	refreshed, err := a.Refresher.RefreshAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("refreshed %d quotes\n", refreshed)
	return subcommands.ExitSuccess
}

// keygenCmd implements the "keygen" command.
type keygenCmd struct{}

func (*keygenCmd) Name() string     { return "keygen" }
func (*keygenCmd) Synopsis() string { return "prints a new SESSION_KEY" }
func (*keygenCmd) Usage() string {
	return `keygen

Generates a random key suitable for SESSION_KEY. Rotating the key invalidates every issued session.
`
}

func (*keygenCmd) SetFlags(*flag.FlagSet) {}

func (*keygenCmd) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	key, err := service.GenerateSessionKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(key)
	return subcommands.ExitSuccess
}
