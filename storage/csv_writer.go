package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"car-deal-finder/models"
)

// CanonicalColumns is the header of the cleaned table.
var CanonicalColumns = []string{
	"registration_number", "price", "model_year", "mileage", "horsepower", "age",
	"engine_code", "fuel_type", "transmission", "driving_type", "color", "location",
	"source", "franchise_approved", "standard_equipment", "extras",
	"model_variant_original", "url",
}

// DealColumns is the header of the ranked deal table.
var DealColumns = []string{
	"Reg. Nr", "Actual Price", "Predicted Price", "Discount %", "Discount SEK",
	"Year", "Mileage (km)", "HP", "Engine", "Fuel", "Drive", "Model Variant",
}

// CSVWriter writes one table to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Path returns the file being written.
func (c *CSVWriter) Path() string { return c.path }

// WriteCanonical writes the header and every canonical listing.
func (c *CSVWriter) WriteCanonical(listings []*models.CanonicalListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(CanonicalColumns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, l := range listings {
		row := []string{
			l.Registration,
			formatFloat(l.Price),
			formatInt(l.ModelYear),
			formatInt(l.Mileage),
			formatInt(l.Horsepower),
			formatInt(l.Age),
			l.EngineCode,
			l.FuelType,
			l.Transmission,
			l.DrivingType,
			l.Color,
			l.Location,
			string(l.Source),
			strconv.FormatBool(l.FranchiseApproved),
			l.StandardEquipment,
			l.Extras,
			l.ModelVariantOriginal,
			l.URL,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// WriteDeals writes the header and the ranked deal rows.
func (c *CSVWriter) WriteDeals(rows []models.DealRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(DealColumns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range rows {
		row := []string{
			r.Registration,
			strconv.FormatFloat(r.ActualPrice, 'f', -1, 64),
			strconv.FormatInt(r.PredictedPrice, 10),
			strconv.FormatFloat(r.DiscountPct, 'f', 1, 64),
			strconv.FormatInt(r.DiscountSEK, 10),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Mileage),
			strconv.Itoa(r.Horsepower),
			r.Engine,
			r.Fuel,
			r.Drive,
			r.Variant,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
