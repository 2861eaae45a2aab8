package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
)

func TestScoreListingsDiscountIdentity(t *testing.T) {
	listings := canonicalFixture(60)
	listings[5].EngineCode = ""
	m, err := FitFairValue(testLogger(), listings)
	require.NoError(t, err)

	scored := ScoreListings(m, listings)
	require.Len(t, scored, 60)

	for i, s := range scored {
		assert.Equal(t, i, s.Row)
		if i == 5 {
			assert.False(t, s.Scored())
			assert.Nil(t, s.DiscountSEK)
			continue
		}
		require.True(t, s.Scored(), "row %d", i)
		price := *s.Price
		want := (1 - price / *s.PredictedPriceLog) * 100
		assert.InDelta(t, want, *s.DiscountPct, 1e-9, "row %d", i)
		assert.InDelta(t, *s.PredictedLinear-price, *s.DiscountSEK, 1e-6, "row %d", i)
	}

	// Scoring copies rows; the canonical table is left alone.
	scored[0].Registration = "CHANGED"
	assert.Equal(t, "CAR000", listings[0].Registration)
}

func TestDiscountZeroAtPrediction(t *testing.T) {
	listings := canonicalFixture(60)
	m, err := FitFairValue(testLogger(), listings)
	require.NoError(t, err)

	l := *listings[10]
	p, ok := m.Predict(&l)
	require.True(t, ok)
	l.Price = p.PredictedPriceLog

	scored := ScoreListings(m, []*models.CanonicalListing{&l})
	require.True(t, scored[0].Scored())
	assert.InDelta(t, 0, *scored[0].DiscountPct, 1e-9)
}

func scoredWith(row int, reg string, pct float64) *models.ScoredListing {
	s := &models.ScoredListing{Row: row, DiscountPct: models.Float(pct)}
	s.Registration = reg
	s.Price = models.Float(300000)
	s.PredictedPriceLog = models.Float(300000 / (1 - pct/100))
	s.DiscountSEK = models.Float(1234.4)
	return s
}

func TestRankDeals(t *testing.T) {
	unscored := &models.ScoredListing{Row: 2}
	unscored.Registration = "NONE"
	scored := []*models.ScoredListing{
		scoredWith(0, "A", 3.5),
		scoredWith(1, "B", 12),
		unscored,
		scoredWith(3, "C", -4),
		scoredWith(4, "D", 12),
		scoredWith(5, "E", 3.5),
	}

	ranked := RankDeals(scored)
	regs := make([]string, len(ranked))
	for i, s := range ranked {
		regs[i] = s.Registration
	}
	assert.Equal(t, []string{"B", "D", "A", "E", "C"}, regs)
	for _, s := range ranked[1:] {
		assert.GreaterOrEqual(t, *ranked[0].DiscountPct, *s.DiscountPct)
	}

	// Ties fall back to table row even when the input is shuffled.
	shuffled := []*models.ScoredListing{scored[4], scored[1], scored[5], scored[0]}
	ranked = RankDeals(shuffled)
	assert.Equal(t, "B", ranked[0].Registration)
	assert.Equal(t, "D", ranked[1].Registration)
	assert.Equal(t, "A", ranked[2].Registration)
	assert.Equal(t, "E", ranked[3].Registration)
}

func TestDealTableRounding(t *testing.T) {
	s := scoredWith(0, "ABC123", 7.26)
	s.ModelYear = models.Int(2021)
	s.Mileage = models.Int(45000)
	s.Horsepower = models.Int(350)
	s.EngineCode = "T6"
	s.FuelType = "Plugin Hybrid"
	s.DrivingType = "AWD"
	s.ModelVariantOriginal = "XC60 T6 AWD Plus"
	s.PredictedPriceLog = models.Float(323499.6)

	rows := DealTable([]*models.ScoredListing{s})
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "ABC123", r.Registration)
	assert.Equal(t, 300000.0, r.ActualPrice)
	assert.Equal(t, int64(323500), r.PredictedPrice)
	assert.Equal(t, 7.3, r.DiscountPct)
	assert.Equal(t, int64(1234), r.DiscountSEK)
	assert.Equal(t, 2021, r.Year)
	assert.Equal(t, 45000, r.Mileage)
	assert.Equal(t, 350, r.Horsepower)
	assert.Equal(t, "T6", r.Engine)
	assert.Equal(t, "XC60 T6 AWD Plus", r.Variant)
}

func TestDealLabel(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{15, DealExcellent},
		{10.01, DealExcellent},
		{10, DealGood},
		{5.5, DealGood},
		{5, DealFair},
		{0.1, DealFair},
		{0, DealOverpriced},
		{-3, DealOverpriced},
	}
	for _, tt := range tests {
		if got := DealLabel(tt.pct); got != tt.want {
			t.Errorf("DealLabel(%v) = %q; want %q", tt.pct, got, tt.want)
		}
	}
}
