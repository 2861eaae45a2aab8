package services

import (
	"math"
	"sort"

	"car-deal-finder/models"
)

// Deal labels by discount percentage.
const (
	DealExcellent  = "excellent"
	DealGood       = "good"
	DealFair       = "fair"
	DealOverpriced = "overpriced"
)

// ScoreListings attaches model predictions and discounts to a copy of every
// listing. Rows the model cannot score keep nil predictions and discounts.
func ScoreListings(model *FairValueModel, listings []*models.CanonicalListing) []*models.ScoredListing {
	scored := make([]*models.ScoredListing, len(listings))
	for i, l := range listings {
		s := &models.ScoredListing{CanonicalListing: *l, Row: i}
		if p, ok := model.Predict(l); ok {
			s.Prediction = p
			if p.ResidualLinear != nil {
				// Positive when the asking price is below the prediction.
				s.DiscountSEK = models.Float(-*p.ResidualLinear)
			}
			if p.ResidualLog != nil {
				s.DiscountPct = models.Float((1 - math.Exp(*p.ResidualLog)) * 100)
			}
		}
		scored[i] = s
	}
	return scored
}

// RankDeals returns the scored rows sorted by discount percentage, best
// first. Equal discounts keep table order.
func RankDeals(scored []*models.ScoredListing) []*models.ScoredListing {
	ranked := make([]*models.ScoredListing, 0, len(scored))
	for _, s := range scored {
		if s.Scored() {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if *ranked[i].DiscountPct != *ranked[j].DiscountPct {
			return *ranked[i].DiscountPct > *ranked[j].DiscountPct
		}
		return ranked[i].Row < ranked[j].Row
	})
	return ranked
}

// DealTable projects ranked listings onto the published deal columns.
func DealTable(ranked []*models.ScoredListing) []models.DealRow {
	rows := make([]models.DealRow, 0, len(ranked))
	for _, s := range ranked {
		row := models.DealRow{
			Registration:   s.Registration,
			ActualPrice:    deref(s.Price),
			PredictedPrice: int64(math.Round(deref(s.PredictedPriceLog))),
			DiscountPct:    math.Round(deref(s.DiscountPct)*10) / 10,
			DiscountSEK:    int64(math.Round(deref(s.DiscountSEK))),
			Engine:         s.EngineCode,
			Fuel:           s.FuelType,
			Drive:          s.DrivingType,
			Variant:        s.ModelVariantOriginal,
		}
		if s.ModelYear != nil {
			row.Year = *s.ModelYear
		}
		if s.Mileage != nil {
			row.Mileage = *s.Mileage
		}
		if s.Horsepower != nil {
			row.Horsepower = *s.Horsepower
		}
		rows = append(rows, row)
	}
	return rows
}

// DealLabel buckets a discount percentage.
func DealLabel(pct float64) string {
	switch {
	case pct > 10:
		return DealExcellent
	case pct > 5:
		return DealGood
	case pct > 0:
		return DealFair
	default:
		return DealOverpriced
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
