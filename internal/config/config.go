package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// requestMargin is the part of the write timeout left for the database work and
// the response after quotes are resolved.
const requestMargin = 5 * time.Second

// ErrMissingConfig is returned by Load when a required setting has no value.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	CORS        CORSConfig        `toml:"cors"`
	Marketstack MarketstackConfig `toml:"marketstack"`
	Quotes      QuoteConfig       `toml:"quotes"`
	Session     SessionConfig     `toml:"session"`
	Trading     TradingConfig     `toml:"trading"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string   `toml:"port"`
	Host         string   `toml:"host"`
	Addr         string   `toml:"-"` // Combined host:port for convenience
	WriteTimeout Duration `toml:"write_timeout"`
}

// DatabaseConfig holds the backend location. URL is a SQLite file path or DSN.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// MarketstackConfig holds market-data provider settings.
type MarketstackConfig struct {
	APIKey  string   `toml:"api_key"`
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
	Budget  Duration `toml:"budget"` // total time for one quote fetch, retries included
	Retries int      `toml:"retries"`
}

// QuoteConfig controls the quote cache and the background refresher.
type QuoteConfig struct {
	Freshness       Duration `toml:"freshness"`
	RefreshSchedule string   `toml:"refresh_schedule"` // cron expression, empty disables
	CacheBackend    string   `toml:"cache_backend"`    // "sqlite" or "redis"
	RedisAddr       string   `toml:"redis_addr"`
	RedisPassword   string   `toml:"redis_password"`
	RedisDB         int      `toml:"redis_db"`
}

// SessionConfig holds the fernet key used to sign session tokens.
type SessionConfig struct {
	Key string   `toml:"key"`
	TTL Duration `toml:"ttl"`
}

// TradingConfig holds simulation parameters.
type TradingConfig struct {
	StartingCash float64 `toml:"starting_cash"`
	USDToHKD     float64 `toml:"usd_to_hkd"`
	HKDToCNY     float64 `toml:"hkd_to_cny"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// Duration is a time.Duration that decodes from strings such as "90s" or "1h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// NewDefaultConfig returns the configuration used when nothing is overridden.
// Required settings are left empty.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "5001",
			Host:         "localhost",
			WriteTimeout: Duration{30 * time.Second},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://localhost",
			},
		},
		Marketstack: MarketstackConfig{
			BaseURL: "http://api.marketstack.com/v1",
			Timeout: Duration{10 * time.Second},
			Budget:  Duration{12 * time.Second},
			Retries: 2,
		},
		Quotes: QuoteConfig{
			Freshness:       Duration{time.Hour},
			RefreshSchedule: "@every 1h",
			CacheBackend:    "sqlite",
		},
		Session: SessionConfig{
			TTL: Duration{24 * time.Hour},
		},
		Trading: TradingConfig{
			StartingCash: 1000000,
			USDToHKD:     7.75,
			HKDToCNY:     0.89,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration with priority: defaults -> CONFIG_FILE (TOML) -> .env / environment.
// It fails with ErrMissingConfig when DATABASE_URL, SESSION_KEY or MARKETSTACK_API_KEY
// is not set anywhere.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := NewDefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(c *Config) error {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}

	c.Marketstack.APIKey = getEnv("MARKETSTACK_API_KEY", c.Marketstack.APIKey)
	c.Marketstack.BaseURL = getEnv("MARKETSTACK_BASE_URL", c.Marketstack.BaseURL)
	c.Quotes.RefreshSchedule = getEnv("QUOTE_REFRESH_SCHEDULE", c.Quotes.RefreshSchedule)
	c.Quotes.CacheBackend = strings.ToLower(getEnv("QUOTE_CACHE_BACKEND", c.Quotes.CacheBackend))
	c.Quotes.RedisAddr = getEnv("REDIS_ADDR", c.Quotes.RedisAddr)
	c.Quotes.RedisPassword = getEnv("REDIS_PASSWORD", c.Quotes.RedisPassword)
	c.Session.Key = getEnv("SESSION_KEY", c.Session.Key)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	durations := map[string]*Duration{
		"MARKETSTACK_TIMEOUT":  &c.Marketstack.Timeout,
		"MARKETSTACK_BUDGET":   &c.Marketstack.Budget,
		"SERVER_WRITE_TIMEOUT": &c.Server.WriteTimeout,
		"QUOTE_FRESHNESS":      &c.Quotes.Freshness,
		"SESSION_TTL":          &c.Session.TTL,
	}
	for key, target := range durations {
		if value := os.Getenv(key); value != "" {
			if err := target.UnmarshalText([]byte(value)); err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}

	ints := map[string]*int{
		"MARKETSTACK_RETRIES": &c.Marketstack.Retries,
		"REDIS_DB":            &c.Quotes.RedisDB,
	}
	for key, target := range ints {
		if value := os.Getenv(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: must be a number", key)
			}
			*target = n
		}
	}

	floats := map[string]*float64{
		"STARTING_CASH": &c.Trading.StartingCash,
		"FX_USD_HKD":    &c.Trading.USDToHKD,
		"FX_HKD_CNY":    &c.Trading.HKDToCNY,
	}
	for key, target := range floats {
		if value := os.Getenv(key); value != "" {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: must be a number", key)
			}
			*target = f
		}
	}

	return nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Session.Key == "" {
		missing = append(missing, "SESSION_KEY")
	}
	if c.Marketstack.APIKey == "" {
		missing = append(missing, "MARKETSTACK_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.Marketstack.Retries < 0 {
		return fmt.Errorf("invalid MARKETSTACK_RETRIES: must not be negative")
	}
	// Quote resolution must finish while the client can still receive the answer.
	if c.Marketstack.Budget.Duration <= 0 || c.Marketstack.Budget.Duration+requestMargin > c.Server.WriteTimeout.Duration {
		return fmt.Errorf("invalid MARKETSTACK_BUDGET %s: must be positive and at least %s below SERVER_WRITE_TIMEOUT %s",
			c.Marketstack.Budget, requestMargin, c.Server.WriteTimeout)
	}
	if c.Trading.USDToHKD <= 0 || c.Trading.HKDToCNY <= 0 {
		return fmt.Errorf("invalid exchange rates: must be positive")
	}
	if c.Trading.StartingCash < 0 {
		return fmt.Errorf("invalid STARTING_CASH: must not be negative")
	}
	switch c.Quotes.CacheBackend {
	case "sqlite":
	case "redis":
		if c.Quotes.RedisAddr == "" {
			return fmt.Errorf("%w: REDIS_ADDR (required when QUOTE_CACHE_BACKEND=redis)", ErrMissingConfig)
		}
	default:
		return fmt.Errorf("invalid QUOTE_CACHE_BACKEND %q: must be sqlite or redis", c.Quotes.CacheBackend)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
