package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

const batchSize = 50

// listingColumns is the column order of the listings table, shared by every
// SQL backend.
var listingColumns = []string{
	"registration", "price", "model_year", "mileage", "horsepower", "age",
	"engine_code", "fuel_type", "transmission", "driving_type", "color", "location",
	"franchise_approved", "source", "model_variant", "url",
	"predicted_linear", "residual_linear", "predicted_log", "predicted_price_log", "residual_log",
	"discount_sek", "discount_pct", "table_row",
}

// sqlDialect captures what differs between the SQL backends.
type sqlDialect struct {
	name        string
	placeholder func(n int) string
	now         string
	boolValue   func(bool) any
}

// listingStore implements ListingWriter over database/sql.
type listingStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// Clear deletes all existing listings from the table.
func (s *listingStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM listings"); err != nil {
		return fmt.Errorf("%s: clear: %w", s.dialect.name, err)
	}
	return nil
}

// Write replaces the stored table with listings in one transaction,
// upserting in batches. Registrations are unique in a scored table; a
// repeated one keeps its first row.
func (s *listingStore) Write(listings []*models.ScoredListing) error {
	if len(listings) == 0 {
		return nil
	}

	seen := utils.NewKeySet()
	unique := make([]*models.ScoredListing, 0, len(listings))
	for _, l := range listings {
		if seen.Add(l.Registration) {
			unique = append(unique, l)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM listings"); err != nil {
		return fmt.Errorf("%s: clear: %w", s.dialect.name, err)
	}
	for i := 0; i < len(unique); i += batchSize {
		end := i + batchSize
		if end > len(unique) {
			end = len(unique)
		}
		if err := s.upsertBatch(tx, unique[i:end]); err != nil {
			return fmt.Errorf("%s: upsert rows %d-%d: %w", s.dialect.name, i, end-1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	return nil
}

func (s *listingStore) upsertBatch(tx *sql.Tx, batch []*models.ScoredListing) error {
	width := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*width)

	for idx, l := range batch {
		base := idx * width
		ph := make([]string, width)
		for j := range ph {
			ph[j] = s.dialect.placeholder(base + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.Registration, nullFloat(l.Price), nullInt(l.ModelYear), nullInt(l.Mileage),
			nullInt(l.Horsepower), nullInt(l.Age),
			l.EngineCode, l.FuelType, l.Transmission, l.DrivingType, l.Color, l.Location,
			s.dialect.boolValue(l.FranchiseApproved), string(l.Source), l.ModelVariantOriginal, l.URL,
			nullFloat(l.PredictedLinear), nullFloat(l.ResidualLinear), nullFloat(l.PredictedLog),
			nullFloat(l.PredictedPriceLog), nullFloat(l.ResidualLog),
			nullFloat(l.DiscountSEK), nullFloat(l.DiscountPct), l.Row)
	}

	updates := make([]string, 0, width)
	for _, c := range listingColumns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	updates = append(updates, "updated_at = "+s.dialect.now)

	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES %s
		ON CONFLICT (registration) DO UPDATE SET %s
	`, strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	_, err := tx.Exec(query, valueArgs...)
	return err
}

// FetchAll retrieves all stored listings in table order.
func (s *listingStore) FetchAll() ([]*models.ScoredListing, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT %s
		FROM listings
		ORDER BY table_row, registration
	`, strings.Join(listingColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var listings []*models.ScoredListing
	for rows.Next() {
		l := &models.ScoredListing{}
		var price, predLinear, residLinear, predLog, predPriceLog, residLog, discSEK, discPct sql.NullFloat64
		var year, mileage, hp, age sql.NullInt64
		var source string
		if err := rows.Scan(
			&l.Registration, &price, &year, &mileage, &hp, &age,
			&l.EngineCode, &l.FuelType, &l.Transmission, &l.DrivingType, &l.Color, &l.Location,
			&l.FranchiseApproved, &source, &l.ModelVariantOriginal, &l.URL,
			&predLinear, &residLinear, &predLog, &predPriceLog, &residLog,
			&discSEK, &discPct, &l.Row,
		); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		l.Source = models.Source(source)
		l.Price = fromNullFloat(price)
		l.ModelYear, l.Mileage, l.Horsepower, l.Age = fromNullInt(year), fromNullInt(mileage), fromNullInt(hp), fromNullInt(age)
		l.PredictedLinear = fromNullFloat(predLinear)
		l.ResidualLinear = fromNullFloat(residLinear)
		l.PredictedLog = fromNullFloat(predLog)
		l.PredictedPriceLog = fromNullFloat(predPriceLog)
		l.ResidualLog = fromNullFloat(residLog)
		l.DiscountSEK = fromNullFloat(discSEK)
		l.DiscountPct = fromNullFloat(discPct)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *listingStore) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return models.Int(int(v.Int64))
}
