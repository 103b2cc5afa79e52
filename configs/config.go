package configs

import (
	"log"
	"os"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ledger   LedgerConfig
	Quotes   QuoteFeedConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// LedgerConfig holds portfolio ledger configuration
type LedgerConfig struct {
	// StartingCash is the fixed balance every new portfolio opens with.
	StartingCash decimal.Decimal
	// ValuationSchedule is the cron spec for the mark-to-market job.
	ValuationSchedule string
}

// QuoteFeedConfig holds the mark price feed configuration
type QuoteFeedConfig struct {
	URL string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Ledger: LedgerConfig{
			StartingCash:      getEnvDecimal("STARTING_CASH", "100000"),
			ValuationSchedule: getEnv("VALUATION_SCHEDULE", "*/1 * * * *"),
		},
		Quotes: QuoteFeedConfig{
			URL: getEnv("QUOTE_FEED_URL", "http://localhost:8090"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDecimal parses a decimal environment variable, falling back to the
// default on parse failure.
func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	raw := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using default %s", key, raw, defaultValue)
		value, _ = decimal.NewFromString(defaultValue)
	}
	return value
}
