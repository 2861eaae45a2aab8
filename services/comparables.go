package services

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"car-deal-finder/models"
)

// ErrListingNotFound is returned when the target registration is not among
// the scored listings.
var ErrListingNotFound = errors.New("comparables: listing not found")

// ComparableWeights weight the standardized continuous features and the
// categorical match bonuses.
type ComparableWeights struct {
	Year       float64
	Mileage    float64
	Horsepower float64
	Engine     float64
	Fuel       float64
}

// DefaultComparableWeights favours mileage over year and horsepower.
func DefaultComparableWeights() ComparableWeights {
	return ComparableWeights{Year: 0.2, Mileage: 0.4, Horsepower: 0.2, Engine: 0.1, Fuel: 0.1}
}

// ComparableFinder ranks listings by similarity to a target listing.
type ComparableFinder struct {
	Weights ComparableWeights
}

// NewComparableFinder creates a finder with the given weights.
func NewComparableFinder(w ComparableWeights) *ComparableFinder {
	return &ComparableFinder{Weights: w}
}

// ComparableDelta compares one comparable against the target.
type ComparableDelta struct {
	PriceDiff    float64 `json:"price_diff"`
	PriceDiffPct float64 `json:"price_diff_pct"`
	MileageDiff  int     `json:"mileage_diff"`
	DiscountDiff float64 `json:"discount_diff"`
}

// Find returns up to n listings most similar to the one with the given
// registration. Only scored listings take part; the target is never part of
// its own result. Fewer than n rows come back when the pool is smaller.
func (f *ComparableFinder) Find(scored []*models.ScoredListing, registration string, n int) ([]models.Comparable, error) {
	if n < 0 {
		return nil, fmt.Errorf("comparables: n must be non-negative, got %d", n)
	}
	key := RegistrationKey(registration)

	var pool []*models.ScoredListing
	var target *models.ScoredListing
	for _, s := range scored {
		if !s.Scored() || s.ModelYear == nil || s.Mileage == nil || s.Horsepower == nil {
			continue
		}
		if s.Registration == key && target == nil {
			target = s
		}
		pool = append(pool, s)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, registration)
	}

	// Standardize over the whole pool, target included.
	year := make([]float64, len(pool))
	mileage := make([]float64, len(pool))
	hp := make([]float64, len(pool))
	for i, s := range pool {
		year[i] = float64(*s.ModelYear)
		mileage[i] = float64(*s.Mileage)
		hp[i] = float64(*s.Horsepower)
	}
	zYear := newStandardizer(year)
	zMileage := newStandardizer(mileage)
	zHP := newStandardizer(hp)

	ty := zYear.z(float64(*target.ModelYear))
	tm := zMileage.z(float64(*target.Mileage))
	th := zHP.z(float64(*target.Horsepower))

	w := f.Weights
	results := make([]models.Comparable, 0, len(pool))
	for i, s := range pool {
		if s.Registration == key {
			continue
		}
		dy := zYear.z(year[i]) - ty
		dm := zMileage.z(mileage[i]) - tm
		dh := zHP.z(hp[i]) - th
		d := math.Sqrt(w.Year*dy*dy + w.Mileage*dm*dm + w.Horsepower*dh*dh)
		if s.EngineCode == target.EngineCode {
			d -= w.Engine
		}
		if s.FuelType == target.FuelType {
			d -= w.Fuel
		}
		results = append(results, models.Comparable{
			ScoredListing:   s,
			Distance:        d,
			SimilarityScore: similarity(d),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Delta compares a comparable listing against the target.
func Delta(target *models.ScoredListing, c models.Comparable) ComparableDelta {
	var d ComparableDelta
	tp, cp := deref(target.Price), deref(c.Price)
	d.PriceDiff = cp - tp
	if tp != 0 {
		d.PriceDiffPct = d.PriceDiff / tp * 100
	}
	if target.Mileage != nil && c.Mileage != nil {
		d.MileageDiff = *c.Mileage - *target.Mileage
	}
	d.DiscountDiff = deref(c.DiscountPct) - deref(target.DiscountPct)
	return d
}

// similarity rescales a distance onto 0-100 for display.
func similarity(distance float64) float64 {
	return math.Max(0, math.Min(100, 100-distance*50))
}

type standardizer struct {
	mean  float64
	scale float64
}

// newStandardizer uses the population standard deviation. A constant
// feature gets scale 1 so it contributes zero distance.
func newStandardizer(values []float64) standardizer {
	mean, variance := stat.PopMeanVariance(values, nil)
	scale := math.Sqrt(variance)
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
	}
	return standardizer{mean: mean, scale: scale}
}

func (s standardizer) z(v float64) float64 {
	return (v - s.mean) / s.scale
}
