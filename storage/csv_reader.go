package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"car-deal-finder/models"
	"car-deal-finder/services"
	"car-deal-finder/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceFile names one scraped CSV file.
type SourceFile struct {
	Source models.Source
	Path   string
}

// ReadSourceCSV loads a scraped file as a header plus one map per record.
// Short records are padded with empty strings; an empty file yields a table
// without header, which the reconciler rejects.
func ReadSourceCSV(path string, source models.Source) (*models.SourceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	table := &models.SourceTable{Source: source}
	r := newCSVReader(f)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	table.Header = header

	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %q line %d: %w", path, line, err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		table.Records = append(table.Records, row)
	}
	return table, nil
}

// ReadSources loads every file through a worker pool. Tables come back in
// the order of files; the first failure aborts the load.
func ReadSources(files []SourceFile, workers int, logger *utils.Logger) ([]*models.SourceTable, error) {
	tables := make([]*models.SourceTable, len(files))

	pool := utils.NewWorkerPool(workers)
	for i, sf := range files {
		pool.Submit(i, func() error {
			t, err := ReadSourceCSV(sf.Path, sf.Source)
			tables[i] = t
			return err
		})
	}
	if i, err := pool.Wait(); err != nil {
		return nil, fmt.Errorf("load source %s: %w", files[i].Source, err)
	}

	for i, t := range tables {
		logger.Info("[loader] Loaded %d rows from %s (%s)", len(t.Records), files[i].Source, files[i].Path)
	}
	return tables, nil
}

// ReadCanonicalCSV loads a table written by CSVWriter.WriteCanonical.
// Columns are matched by name; unknown columns are ignored.
func ReadCanonicalCSV(path string) ([]*models.CanonicalListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := newCSVReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header of %q: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col["registration_number"]; !ok {
		return nil, fmt.Errorf("csv: %q has no registration_number column", path)
	}

	var listings []*models.CanonicalListing
	seen := utils.NewKeySet()
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %q line %d: %w", path, line, err)
		}
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		l := &models.CanonicalListing{
			Registration:         services.RegistrationKey(get("registration_number")),
			EngineCode:           get("engine_code"),
			FuelType:             get("fuel_type"),
			Transmission:         get("transmission"),
			DrivingType:          get("driving_type"),
			Color:                get("color"),
			Location:             get("location"),
			Source:               models.Source(get("source")),
			StandardEquipment:    get("standard_equipment"),
			Extras:               get("extras"),
			ModelVariantOriginal: get("model_variant_original"),
			URL:                  get("url"),
		}
		if l.Registration == "" {
			return nil, fmt.Errorf("csv: %q line %d: empty registration_number", path, line)
		}
		if !seen.Add(l.Registration) {
			return nil, fmt.Errorf("csv: %q line %d: duplicate registration_number %s", path, line, l.Registration)
		}
		if l.Price, err = parseFloatField(get("price")); err != nil {
			return nil, fmt.Errorf("csv: %q line %d: price: %w", path, line, err)
		}
		ints := []struct {
			name string
			dst  **int
		}{
			{"model_year", &l.ModelYear},
			{"mileage", &l.Mileage},
			{"horsepower", &l.Horsepower},
			{"age", &l.Age},
		}
		for _, field := range ints {
			if *field.dst, err = parseIntField(get(field.name)); err != nil {
				return nil, fmt.Errorf("csv: %q line %d: %s: %w", path, line, field.name, err)
			}
		}
		if v := get("franchise_approved"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("csv: %q line %d: franchise_approved: %w", path, line, err)
			}
			l.FranchiseApproved = b
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func parseFloatField(s string) (*float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseIntField also accepts integral floats ("2021.0") as written by tools
// that store nullable integers as floats.
func parseIntField(s string) (*int, error) {
	v, err := parseFloatField(s)
	if err != nil || v == nil {
		return nil, err
	}
	if *v != math.Trunc(*v) {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	return models.Int(int(*v)), nil
}
