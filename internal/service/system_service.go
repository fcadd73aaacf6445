package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/currency"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/version"
)

// SystemService handles system-related operations
type SystemService struct {
	db        *sql.DB
	converter *currency.Converter
	features  map[string]bool
}

// NewSystemService creates a new SystemService. features lists optional capabilities
// reported by the version endpoint (for example the Redis cache or the refresher).
func NewSystemService(db *sql.DB, converter *currency.Converter, features map[string]bool) *SystemService {
	if features == nil {
		features = map[string]bool{}
	}
	return &SystemService{
		db:        db,
		converter: converter,
		features:  features,
	}
}

// CheckHealth checks the health of the system
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// CheckVersion reports the application version and the schema migration state.
func (s *SystemService) CheckVersion(ctx context.Context) (model.VersionInfo, error) {
	dbVersion, pending, err := database.MigrationStatus(ctx, s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read migration status: %w", err)
	}

	info := model.VersionInfo{
		AppVersion:      version.Version,
		DbVersion:       strconv.FormatInt(dbVersion, 10),
		Features:        s.features,
		MigrationNeeded: pending,
	}
	if pending {
		msg := "Database schema is behind the application. Run 'papertrade migrate' or restart the server."
		info.MigrationMessage = &msg
	}
	return info, nil
}

// HomeCurrency returns the currency every valuation is reported in.
func (s *SystemService) HomeCurrency() string {
	return s.converter.Home()
}

// ExchangeRates returns the fixed conversion table.
func (s *SystemService) ExchangeRates() []model.ExchangeRate {
	return s.converter.Table()
}
