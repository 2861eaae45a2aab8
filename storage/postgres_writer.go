package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"car-deal-finder/utils"
)

var postgresDialect = sqlDialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	now:         "NOW()",
	boolValue:   func(b bool) any { return b },
}

// PostgresWriter persists scored listings to PostgreSQL.
type PostgresWriter struct {
	listingStore
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter. The connection check is retried
// with back-off while the database starts up.
func NewPostgresWriter(ctx context.Context, dsn string, maxRetries int, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: maxRetries, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{listingStore{db: db, dialect: postgresDialect}}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	logger.Info("[storage] Connected to PostgreSQL")
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			registration        VARCHAR(16)      PRIMARY KEY,
			price               DOUBLE PRECISION,
			model_year          INTEGER,
			mileage             INTEGER,
			horsepower          INTEGER,
			age                 INTEGER,
			engine_code         VARCHAR(8)       NOT NULL DEFAULT '',
			fuel_type           VARCHAR(32)      NOT NULL DEFAULT '',
			transmission        VARCHAR(16)      NOT NULL DEFAULT '',
			driving_type        VARCHAR(16)      NOT NULL DEFAULT '',
			color               TEXT             NOT NULL DEFAULT '',
			location            TEXT             NOT NULL DEFAULT '',
			franchise_approved  BOOLEAN          NOT NULL DEFAULT FALSE,
			source              VARCHAR(32)      NOT NULL,
			model_variant       TEXT             NOT NULL DEFAULT '',
			url                 TEXT             NOT NULL DEFAULT '',
			predicted_linear    DOUBLE PRECISION,
			residual_linear     DOUBLE PRECISION,
			predicted_log       DOUBLE PRECISION,
			predicted_price_log DOUBLE PRECISION,
			residual_log        DOUBLE PRECISION,
			discount_sek        DOUBLE PRECISION,
			discount_pct        DOUBLE PRECISION,
			table_row           INTEGER          NOT NULL DEFAULT 0,
			updated_at          TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_discount_pct ON listings(discount_pct);
		CREATE INDEX IF NOT EXISTS idx_listings_engine_code  ON listings(engine_code);
		CREATE INDEX IF NOT EXISTS idx_listings_location     ON listings(location);
		CREATE INDEX IF NOT EXISTS idx_listings_source       ON listings(source);
	`)
	return err
}
