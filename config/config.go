package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"car-deal-finder/normalize"
	"car-deal-finder/services"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	StorageNone     = "none"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SourcesManifest string `envconfig:"SOURCES_MANIFEST" default:""`
	CleanedCSVPath  string `envconfig:"CLEANED_CSV_PATH" default:"./data/volvo_xc60_cleaned.csv"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"./output"`
	DedupPolicy     string `envconfig:"DEDUP_POLICY" default:"priority"`
	// ReferenceYear is the year ages are computed against; 0 means the
	// current year.
	ReferenceYear     int    `envconfig:"REFERENCE_YEAR" default:"0"`
	EngineMidBandCode string `envconfig:"ENGINE_MID_BAND_CODE" default:"B5"`

	MaxConcurrency int `envconfig:"MAX_CONCURRENCY" default:"3"`
	MaxRetries     int `envconfig:"MAX_RETRIES" default:"3"`

	StorageBackend   string `envconfig:"STORAGE_BACKEND" default:"none"`
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"cars"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD" default:""`
	PostgresDB       string `envconfig:"POSTGRES_DB" default:"car_deals"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"./output/listings.db"`

	HTTPHost string `envconfig:"HTTP_HOST" default:"127.0.0.1"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	TopDeals       int `envconfig:"TOP_DEALS" default:"10"`
	TopComparables int `envconfig:"TOP_COMPARABLES" default:"20"`
}

// Load reads the .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := services.ParseDedupPolicy(c.DedupPolicy); err != nil {
		return fmt.Errorf("DEDUP_POLICY: %w", err)
	}
	if c.ReferenceYear < 0 {
		return fmt.Errorf("REFERENCE_YEAR must be >= 0")
	}
	switch c.EngineMidBandCode {
	case "B5", "T5":
	default:
		return fmt.Errorf("ENGINE_MID_BAND_CODE must be B5 or T5, got %q", c.EngineMidBandCode)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be >= 1")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be >= 1")
	}
	switch c.Backend() {
	case StorageNone, StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresHost) == "" || strings.TrimSpace(c.PostgresDB) == "" {
			return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be none, postgres or sqlite, got %q", c.StorageBackend)
	}
	if c.Backend() == StorageSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.TopDeals < 1 {
		return fmt.Errorf("TOP_DEALS must be >= 1")
	}
	if c.TopComparables < 1 || c.TopComparables > MaxComparables {
		return fmt.Errorf("TOP_COMPARABLES must be between 1 and %d", MaxComparables)
	}
	return nil
}

// MaxComparables caps the size of a comparable search.
const MaxComparables = 100

// Backend returns the normalized STORAGE_BACKEND value.
func (c *Config) Backend() string {
	b := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if b == "" {
		return StorageNone
	}
	return b
}

// Policy returns the parsed DEDUP_POLICY. Validate has already rejected
// unknown values.
func (c *Config) Policy() services.DedupPolicy {
	p, err := services.ParseDedupPolicy(c.DedupPolicy)
	if err != nil {
		return services.PreferPriority
	}
	return p
}

// AgeReferenceYear resolves REFERENCE_YEAR, defaulting to the current year.
func (c *Config) AgeReferenceYear() int {
	if c.ReferenceYear > 0 {
		return c.ReferenceYear
	}
	return time.Now().Year()
}

// EngineBands returns the horsepower bands with the configured mid-band code.
func (c *Config) EngineBands() normalize.EngineBands {
	b := normalize.DefaultEngineBands()
	if c.EngineMidBandCode != "" {
		b.MidBandCode = c.EngineMidBandCode
	}
	return b
}

// HTTPAddr is the listen address of the API server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
