package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"car-deal-finder/models"
	"car-deal-finder/normalize"
	"car-deal-finder/utils"
)

// ErrInvalidSchema is returned when a source table cannot be mapped onto the
// common field set.
var ErrInvalidSchema = errors.New("reconciler: invalid source schema")

// maxReportedGroups caps the cross-source groups kept for diagnostics.
const maxReportedGroups = 10

// Common field names every source is mapped onto.
const (
	FieldRegistration      = "registration_number"
	FieldPrice             = "price"
	FieldModelYear         = "model_year"
	FieldMileage           = "mileage"
	FieldModelVariant      = "model_variant"
	FieldFuelType          = "fuel_type"
	FieldElectricType      = "electric_type"
	FieldEnginePower       = "engine_power"
	FieldTransmission      = "transmission"
	FieldDrivingType       = "driving_type"
	FieldColor             = "color"
	FieldLocation          = "location"
	FieldBodyType          = "body_type"
	FieldFranchiseApproved = "franchise_approved"
	FieldStandardEquipment = "standard_equipment"
	FieldExtras            = "extras"
	FieldDetailURL         = "detail_url"
	FieldScrapeDate        = "scrape_date"
)

// SourceProfile describes how one source's columns and values map onto the
// common field set.
type SourceProfile struct {
	Source models.Source
	Path   string
	// Columns renames source columns to common field names.
	Columns map[string]string
	// Values rewrites exact values of a common field, keyed by field name.
	Values map[string]map[string]string
}

// DefaultSourceProfiles returns the mappings for the three known sources.
func DefaultSourceProfiles() []SourceProfile {
	dealerColumns := map[string]string{
		"version":      FieldModelVariant,
		"drive_wheels": FieldDrivingType,
		"registration": FieldRegistration,
		"url":          FieldDetailURL,
	}
	return []SourceProfile{
		{Source: models.SourceVolvoSelekt},
		{Source: models.SourceBilia, Columns: dealerColumns},
		{
			Source:  models.SourceRejmes,
			Columns: dealerColumns,
			Values: map[string]map[string]string{
				FieldFuelType: {"Hybrid el/bensin": "Laddhybrid"},
			},
		},
	}
}

// DedupPolicy selects which row survives when a registration repeats.
type DedupPolicy string

const (
	// KeepFirst keeps the first occurrence in concatenation order.
	KeepFirst DedupPolicy = "first"
	// PreferPriority keeps the row from the highest-priority source.
	PreferPriority DedupPolicy = "priority"
)

// ParseDedupPolicy validates a policy name.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case KeepFirst, PreferPriority:
		return p, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q (want %q or %q)", s, KeepFirst, PreferPriority)
}

// DuplicateEntry is one row of a cross-source duplicate group.
type DuplicateEntry struct {
	Source    models.Source `json:"source"`
	Price     *float64      `json:"price"`
	ModelYear *int          `json:"model_year"`
}

// DuplicateGroup lists every row sharing one registration across sources.
type DuplicateGroup struct {
	Key     string           `json:"registration"`
	Entries []DuplicateEntry `json:"entries"`
}

// DedupReport carries the observable counters of a deduplication run.
type DedupReport struct {
	Policy          DedupPolicy      `json:"policy"`
	Input           int              `json:"input"`
	Output          int              `json:"output"`
	Removed         int              `json:"removed"`
	MissingKey      int              `json:"missing_key"`
	DuplicateKeys   int              `json:"duplicate_keys"`
	CrossSourceKeys int              `json:"cross_source_keys"`
	Groups          []DuplicateGroup `json:"groups,omitempty"`
}

// ReconcileResult is the canonical table plus the counters that produced it.
type ReconcileResult struct {
	Listings []*models.CanonicalListing
	Report   DedupReport
	Clean    CleanStats
}

// Reconciler merges per-source tables into one canonical table.
type Reconciler struct {
	logger   *utils.Logger
	profiles map[models.Source]SourceProfile
	cleaner  *Cleaner
}

// NewReconciler creates a Reconciler. Sources without a profile are mapped
// by their own column names.
func NewReconciler(logger *utils.Logger, profiles []SourceProfile, cleaner *Cleaner) *Reconciler {
	byName := make(map[models.Source]SourceProfile, len(profiles))
	for _, p := range profiles {
		byName[p.Source] = p
	}
	return &Reconciler{logger: logger, profiles: byName, cleaner: cleaner}
}

// Reconcile runs Combine, Deduplicate and Canonicalize in order.
func (r *Reconciler) Reconcile(tables []*models.SourceTable, policy DedupPolicy) (*ReconcileResult, error) {
	combined, err := r.Combine(tables)
	if err != nil {
		return nil, err
	}
	deduped, report := r.Deduplicate(combined, policy)
	listings, stats := r.cleaner.Canonicalize(deduped)
	return &ReconcileResult{Listings: listings, Report: report, Clean: stats}, nil
}

// Combine maps every table onto the common field set and concatenates them
// in the given order. Fields a source lacks stay empty.
func (r *Reconciler) Combine(tables []*models.SourceTable) ([]*models.RawListing, error) {
	total := 0
	for _, t := range tables {
		total += len(t.Records)
	}
	result := make([]*models.RawListing, 0, total)

	for _, t := range tables {
		if !t.Source.Known() {
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidSchema, t.Source)
		}
		if len(t.Header) == 0 {
			return nil, fmt.Errorf("%w: %s table has no header", ErrInvalidSchema, t.Source)
		}

		profile := r.profiles[t.Source]
		mapped := make(map[string]string, len(t.Header))
		hasKey := false
		for _, col := range t.Header {
			field := strings.TrimSpace(col)
			if alias, ok := profile.Columns[field]; ok {
				field = alias
			}
			mapped[col] = field
			if field == FieldRegistration {
				hasKey = true
			}
		}
		if !hasKey {
			return nil, fmt.Errorf("%w: %s table has no registration column", ErrInvalidSchema, t.Source)
		}

		for _, rec := range t.Records {
			raw := &models.RawListing{Source: t.Source}
			for col, value := range rec {
				field, ok := mapped[col]
				if !ok {
					continue
				}
				if rewrite, ok := profile.Values[field][value]; ok {
					value = rewrite
				}
				assignField(raw, field, value)
			}
			result = append(result, raw)
		}
		r.logger.Info("[reconciler] %s: %d rows", t.Source, len(t.Records))
	}

	r.logger.Info("[reconciler] Combined %d rows from %d sources", len(result), len(tables))
	return result, nil
}

func assignField(raw *models.RawListing, field, value string) {
	switch field {
	case FieldRegistration:
		raw.RegistrationNumber = value
	case FieldPrice:
		raw.Price = parseNumber(value)
	case FieldModelYear:
		raw.ModelYear = parseInt(value)
	case FieldMileage:
		raw.Mileage = parseInt(value)
	case FieldModelVariant:
		raw.ModelVariant = value
	case FieldFuelType:
		raw.FuelType = value
	case FieldElectricType:
		raw.ElectricType = value
	case FieldEnginePower:
		raw.EnginePower = value
	case FieldTransmission:
		raw.Transmission = value
	case FieldDrivingType:
		raw.DrivingType = value
	case FieldColor:
		raw.Color = value
	case FieldLocation:
		raw.Location = value
	case FieldBodyType:
		raw.BodyType = value
	case FieldFranchiseApproved:
		raw.FranchiseApproved = normalize.FranchiseApproved(value)
	case FieldStandardEquipment:
		raw.StandardEquipment = value
	case FieldExtras:
		raw.Extras = value
	case FieldDetailURL:
		raw.DetailURL = value
	case FieldScrapeDate:
		raw.ScrapeDate = value
	}
}

// RegistrationKey normalizes a registration number for comparison:
// upper-cased with all whitespace removed.
func RegistrationKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Deduplicate keeps one row per registration key according to policy.
// Survivors keep their concatenation order. Rows without a key are dropped
// and counted.
func (r *Reconciler) Deduplicate(raw []*models.RawListing, policy DedupPolicy) ([]*models.RawListing, DedupReport) {
	report := DedupReport{Policy: policy, Input: len(raw)}

	keys := make([]string, len(raw))
	order := make([]int, 0, len(raw))
	rowsByKey := make(map[string][]int)
	seen := utils.NewKeySet()
	for i, l := range raw {
		keys[i] = RegistrationKey(l.RegistrationNumber)
		if keys[i] == "" {
			report.MissingKey++
			continue
		}
		seen.Add(keys[i])
		rowsByKey[keys[i]] = append(rowsByKey[keys[i]], i)
		order = append(order, i)
	}

	if policy == PreferPriority {
		sort.SliceStable(order, func(a, b int) bool {
			ia, ib := order[a], order[b]
			if keys[ia] != keys[ib] {
				return keys[ia] < keys[ib]
			}
			return raw[ia].Source.Priority() < raw[ib].Source.Priority()
		})
	}

	keep := make([]bool, len(raw))
	chosen := utils.NewKeySet()
	for _, i := range order {
		if chosen.Add(keys[i]) {
			keep[i] = true
		}
	}

	result := make([]*models.RawListing, 0, chosen.Size())
	for i, l := range raw {
		if keep[i] {
			result = append(result, l)
		}
	}

	repeated := seen.Repeated()
	report.DuplicateKeys = len(repeated)
	for _, key := range repeated {
		rows := rowsByKey[key]
		sources := make(map[models.Source]struct{})
		for _, i := range rows {
			sources[raw[i].Source] = struct{}{}
		}
		if len(sources) < 2 {
			continue
		}
		report.CrossSourceKeys++
		if len(report.Groups) < maxReportedGroups {
			group := DuplicateGroup{Key: key}
			for _, i := range rows {
				group.Entries = append(group.Entries, DuplicateEntry{
					Source:    raw[i].Source,
					Price:     raw[i].Price,
					ModelYear: raw[i].ModelYear,
				})
			}
			report.Groups = append(report.Groups, group)
		}
	}

	report.Output = len(result)
	report.Removed = report.Input - report.MissingKey - report.Output

	if report.MissingKey > 0 {
		r.logger.Warn("[reconciler] Dropped %d rows without a registration number", report.MissingKey)
	}
	r.logger.Info("[reconciler] Found %d registration numbers appearing multiple times (%d across sources)",
		report.DuplicateKeys, report.CrossSourceKeys)
	r.logger.Info("[reconciler] Removed %d duplicate records (policy=%s), %d unique cars",
		report.Removed, policy, report.Output)
	return result, report
}
