package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"car-deal-finder/models"
	"car-deal-finder/normalize"
	"car-deal-finder/utils"
)

var (
	// numberRegexp captures the first numeric value once separators are gone
	numberRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	// numberNoise covers thousands separators, NBSP and narrow NBSP
	numberNoise = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")
)

// Cleaner transforms reconciled RawListings into CanonicalListings.
type Cleaner struct {
	logger        *utils.Logger
	referenceYear int
	bands         normalize.EngineBands
	resolver      *normalize.LocationResolver
}

// CleanStats counts what the cleaner did to a batch.
type CleanStats struct {
	Input           int
	Output          int
	InferredEngines int
}

// NewCleaner creates a Cleaner. Age is computed against referenceYear.
func NewCleaner(logger *utils.Logger, referenceYear int, bands normalize.EngineBands) *Cleaner {
	return &Cleaner{
		logger:        logger,
		referenceYear: referenceYear,
		bands:         bands,
		resolver:      normalize.NewLocationResolver(normalize.SwedishCities()),
	}
}

// Canonicalize normalizes every raw listing into the canonical field set.
// The input must already be deduplicated; rows without a registration are
// dropped with a warning.
func (c *Cleaner) Canonicalize(raw []*models.RawListing) ([]*models.CanonicalListing, CleanStats) {
	stats := CleanStats{Input: len(raw)}
	result := make([]*models.CanonicalListing, 0, len(raw))

	for _, r := range raw {
		reg := RegistrationKey(r.RegistrationNumber)
		if reg == "" {
			c.logger.Warn("[cleaner] Dropping listing without registration: %s", r.DetailURL)
			continue
		}

		hp := normalize.ExtractHorsepower(r.EnginePower)
		engine, inferred := normalize.EngineCode(r.ModelVariant, hp, c.bands)
		if inferred {
			stats.InferredEngines++
		}

		listing := &models.CanonicalListing{
			Registration:         reg,
			Price:                r.Price,
			ModelYear:            r.ModelYear,
			Mileage:              r.Mileage,
			Horsepower:           hp,
			EngineCode:           engine,
			FuelType:             normalize.FuelType(r.FuelType, r.ElectricType),
			Transmission:         normalize.Transmission(r.Transmission),
			DrivingType:          normalize.DrivingType(r.DrivingType),
			Color:                normaliseText(r.Color),
			Location:             c.resolver.Resolve(r.Location),
			FranchiseApproved:    r.FranchiseApproved != nil && *r.FranchiseApproved,
			Source:               r.Source,
			ModelVariantOriginal: normaliseText(r.ModelVariant),
			URL:                  strings.TrimSpace(r.DetailURL),
			StandardEquipment:    normaliseText(r.StandardEquipment),
			Extras:               normaliseText(r.Extras),
		}
		if r.ModelYear != nil {
			listing.Age = models.Int(c.referenceYear - *r.ModelYear)
		}

		result = append(result, listing)
	}

	stats.Output = len(result)
	if stats.InferredEngines > 0 {
		c.logger.Info("[cleaner] Inferred %d engine codes from horsepower", stats.InferredEngines)
	}
	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		stats.Input, stats.Output, stats.Input-stats.Output)
	return result, stats
}

// parseNumber decodes a scraped numeric field such as "349 900 kr",
// "4 500 mil" or "349900.0". Unparseable text yields nil.
func parseNumber(raw string) *float64 {
	cleaned := numberNoise.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if cleaned == "" {
		return nil
	}
	match := numberRegexp.FindString(cleaned)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt decodes an integral field, rounding values written with a
// trailing ".0".
func parseInt(raw string) *int {
	v := parseNumber(raw)
	if v == nil {
		return nil
	}
	return models.Int(int(math.Round(*v)))
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
