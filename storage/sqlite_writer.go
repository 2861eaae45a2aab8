package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"car-deal-finder/utils"
)

var sqliteDialect = sqlDialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	now:         "CURRENT_TIMESTAMP",
	boolValue: func(b bool) any {
		if b {
			return 1
		}
		return 0
	},
}

// SQLiteWriter persists scored listings to a single SQLite file. It shares
// the schema of PostgresWriter.
type SQLiteWriter struct {
	listingStore
}

// NewSQLiteWriter opens (or creates) the database at path and migrates it.
// ":memory:" keeps the table in memory.
func NewSQLiteWriter(path string, logger *utils.Logger) (*SQLiteWriter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{listingStore{db: db, dialect: sqliteDialect}}
	if err := sw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	logger.Info("[storage] Opened SQLite database %s", path)
	return sw, nil
}

func (sw *SQLiteWriter) migrate() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS listings (
			registration        TEXT    PRIMARY KEY,
			price               REAL,
			model_year          INTEGER,
			mileage             INTEGER,
			horsepower          INTEGER,
			age                 INTEGER,
			engine_code         TEXT    NOT NULL DEFAULT '',
			fuel_type           TEXT    NOT NULL DEFAULT '',
			transmission        TEXT    NOT NULL DEFAULT '',
			driving_type        TEXT    NOT NULL DEFAULT '',
			color               TEXT    NOT NULL DEFAULT '',
			location            TEXT    NOT NULL DEFAULT '',
			franchise_approved  INTEGER NOT NULL DEFAULT 0,
			source              TEXT    NOT NULL,
			model_variant       TEXT    NOT NULL DEFAULT '',
			url                 TEXT    NOT NULL DEFAULT '',
			predicted_linear    REAL,
			residual_linear     REAL,
			predicted_log       REAL,
			predicted_price_log REAL,
			residual_log        REAL,
			discount_sek        REAL,
			discount_pct        REAL,
			table_row           INTEGER NOT NULL DEFAULT 0,
			updated_at          TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_discount_pct ON listings(discount_pct)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_engine_code ON listings(engine_code)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_location ON listings(location)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_source ON listings(source)`,
	} {
		if _, err := sw.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
