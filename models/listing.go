package models

// Source identifies the dealer website a listing was scraped from.
type Source string

const (
	// SourceVolvoSelekt is the manufacturer's certified used-car site.
	SourceVolvoSelekt Source = "volvo_selekt"
	// SourceBilia is the secondary dealer chain.
	SourceBilia Source = "bilia"
	// SourceRejmes is the tertiary dealer chain.
	SourceRejmes Source = "rejmes"
)

// KnownSources lists the sources in priority order, highest first.
var KnownSources = []Source{SourceVolvoSelekt, SourceBilia, SourceRejmes}

// Priority returns the rank used when the same vehicle is listed on several
// sites. Lower wins. Unknown sources rank after every known one.
func (s Source) Priority() int {
	for i, known := range KnownSources {
		if s == known {
			return i
		}
	}
	return len(KnownSources)
}

// Known reports whether s is one of the supported sources.
func (s Source) Known() bool {
	return s.Priority() < len(KnownSources)
}

// SourceTable is one scraped file: source specific column names, one map per
// CSV record.
type SourceTable struct {
	Source  Source
	Header  []string
	Records []map[string]string
}

// RawListing holds one scraped record mapped onto the common field set.
// Text fields are as scraped; numeric fields are decoded but unvalidated.
type RawListing struct {
	RegistrationNumber string
	Price              *float64
	ModelYear          *int
	Mileage            *int
	ModelVariant       string
	FuelType           string
	ElectricType       string
	EnginePower        string
	Transmission       string
	DrivingType        string
	Color              string
	Location           string
	BodyType           string
	FranchiseApproved  *bool
	StandardEquipment  string
	Extras             string
	DetailURL          string
	Source             Source
	ScrapeDate         string
}

// CanonicalListing is the reconciled, normalized record for one vehicle.
// Empty strings mean "unknown" for the text enums.
type CanonicalListing struct {
	Registration         string
	Price                *float64
	ModelYear            *int
	Mileage              *int
	Horsepower           *int
	Age                  *int
	EngineCode           string
	FuelType             string
	Transmission         string
	DrivingType          string
	Color                string
	Location             string
	FranchiseApproved    bool
	Source               Source
	ModelVariantOriginal string
	URL                  string
	StandardEquipment    string
	Extras               string
}

// Prediction holds the fair-value model output for one listing. All fields
// are nil when the listing could not be scored.
type Prediction struct {
	PredictedLinear   *float64
	ResidualLinear    *float64
	PredictedLog      *float64
	PredictedPriceLog *float64
	ResidualLog       *float64
}

// ScoredListing is a canonical listing with model output and discounts.
type ScoredListing struct {
	CanonicalListing
	Prediction

	// Row is the listing's position in the canonical table.
	Row         int
	DiscountSEK *float64
	DiscountPct *float64
}

// Scored reports whether the listing carries a usable prediction.
func (s *ScoredListing) Scored() bool {
	return s.DiscountPct != nil && s.PredictedPriceLog != nil
}

// Comparable is one result of a similarity search.
type Comparable struct {
	*ScoredListing
	Distance        float64
	SimilarityScore float64
}

// DealRow is the ranked-table projection of a scored listing.
type DealRow struct {
	Registration   string  `json:"registration"`
	ActualPrice    float64 `json:"actual_price"`
	PredictedPrice int64   `json:"predicted_price"`
	DiscountPct    float64 `json:"discount_pct"`
	DiscountSEK    int64   `json:"discount_sek"`
	Year           int     `json:"year"`
	Mileage        int     `json:"mileage"`
	Horsepower     int     `json:"horsepower"`
	Engine         string  `json:"engine"`
	Fuel           string  `json:"fuel"`
	Drive          string  `json:"drive"`
	Variant        string  `json:"variant"`
}

// DatasetSummary holds descriptive statistics over a canonical table.
type DatasetSummary struct {
	TotalListings   int            `json:"total_listings"`
	AveragePrice    float64        `json:"average_price"`
	MinPrice        float64        `json:"min_price"`
	MaxPrice        float64        `json:"max_price"`
	MinYear         int            `json:"min_year"`
	MaxYear         int            `json:"max_year"`
	MinMileage      int            `json:"min_mileage"`
	MaxMileage      int            `json:"max_mileage"`
	InferredEngines int            `json:"inferred_engines"`
	BySource        map[string]int `json:"by_source"`
	ByEngine        map[string]int `json:"by_engine"`
	ByFuel          map[string]int `json:"by_fuel"`
	ByDrive         map[string]int `json:"by_drive"`
	ByLocation      map[string]int `json:"by_location"`
	Missing         map[string]int `json:"missing"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
