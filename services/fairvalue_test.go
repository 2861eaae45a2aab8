package services

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/regression"
)

func TestFitFairValueFranchiseMissing(t *testing.T) {
	listings := canonicalFixture(60)
	for _, l := range listings {
		require.False(t, l.FranchiseApproved)
	}

	m, err := FitFairValue(testLogger(), listings)
	require.NoError(t, err)

	c := m.Comparison()
	assert.Equal(t, 60, c.Observations)
	assert.Equal(t, 0, c.DroppedRows)
	assert.Equal(t, 60, m.TableSize())
	assert.Greater(t, c.Linear.RSquared, 0.9)
	assert.Greater(t, c.Log.RSquaredLog, 0.9)
	assert.Greater(t, c.Log.RSquaredPrice, 0.9)
	assert.LessOrEqual(t, c.Log.RSquaredPrice, 1.0)
	assert.Less(t, c.Linear.AdjRSquared, c.Linear.RSquared)

	// The all-zero certification column costs one rank and gets a zero
	// coefficient.
	assert.Equal(t, len(m.Linear().Names)-1, m.Linear().Rank)
	b, ok := m.LogLinear().Coefficient(FeatureFranchise)
	require.True(t, ok)
	assert.InDelta(t, 0, b, 1e-9)
}

func TestFitFairValueReferenceLevels(t *testing.T) {
	m, err := FitFairValue(testLogger(), canonicalFixture(60))
	require.NoError(t, err)

	refs := make(map[string]string)
	for _, f := range m.References() {
		refs[f.Name] = f.Reference
	}
	assert.Equal(t, map[string]string{
		FactorModelYear:   "2018", // six years tie at ten rows each
		FactorEngineCode:  "T6",
		FactorFuelType:    "Plugin Hybrid",
		FactorDrivingType: "AWD",
	}, refs)

	for _, name := range m.Linear().Names {
		assert.NotEqual(t, "C(engine_code)[T.T6]", name, "reference level must not get a column")
	}
}

func TestFitFairValueDropsIncompleteRows(t *testing.T) {
	listings := canonicalFixture(60)
	listings[3].Horsepower = nil
	listings[9].EngineCode = ""
	listings[12].Price = nil

	m, err := FitFairValue(testLogger(), listings)
	require.NoError(t, err)
	assert.Equal(t, 3, m.DroppedRows())
	assert.Equal(t, 57, m.Comparison().Observations)

	_, ok := m.Predict(listings[3])
	assert.False(t, ok)

	// A missing price still gets a prediction, but no residual.
	p, ok := m.Predict(listings[12])
	require.True(t, ok)
	assert.NotNil(t, p.PredictedLinear)
	assert.Nil(t, p.ResidualLinear)
	assert.Nil(t, p.ResidualLog)
}

func TestPredictUnseenLevel(t *testing.T) {
	m, err := FitFairValue(testLogger(), canonicalFixture(60))
	require.NoError(t, err)

	l := *canonicalFixture(1)[0]
	l.EngineCode = "D5"
	_, ok := m.Predict(&l)
	assert.False(t, ok)

	l.EngineCode = "T6"
	l.ModelYear = models.Int(2012)
	_, ok = m.Predict(&l)
	assert.False(t, ok)
}

func TestPredictMatchesFittedValues(t *testing.T) {
	listings := canonicalFixture(60)
	m, err := FitFairValue(testLogger(), listings)
	require.NoError(t, err)

	for i, l := range listings {
		p, ok := m.Predict(l)
		require.True(t, ok)
		assert.InDelta(t, m.Linear().Fitted[i], *p.PredictedLinear, 1e-6)
		assert.InDelta(t, m.LogLinear().Fitted[i], *p.PredictedLog, 1e-9)
		assert.InDelta(t, math.Exp(*p.PredictedLog), *p.PredictedPriceLog, 1e-6)
		assert.InDelta(t, *l.Price-*p.PredictedLinear, *p.ResidualLinear, 1e-6)
	}
}

func TestFitFairValueErrors(t *testing.T) {
	_, err := FitFairValue(testLogger(), nil)
	assert.True(t, errors.Is(err, ErrEmptyTable), "got %v", err)

	noHP := canonicalFixture(10)
	for _, l := range noHP {
		l.Horsepower = nil
	}
	_, err = FitFairValue(testLogger(), noHP)
	assert.True(t, errors.Is(err, ErrEmptyTable), "got %v", err)

	oneDrive := canonicalFixture(60)
	for _, l := range oneDrive {
		l.DrivingType = "AWD"
	}
	_, err = FitFairValue(testLogger(), oneDrive)
	assert.True(t, errors.Is(err, ErrDegenerateDesign), "got %v", err)

	flat := canonicalFixture(60)
	for _, l := range flat {
		l.Price = models.Float(400000)
	}
	_, err = FitFairValue(testLogger(), flat)
	assert.True(t, errors.Is(err, ErrDegenerateDesign), "got %v", err)

	_, err = FitFairValue(testLogger(), canonicalFixture(4))
	assert.True(t, errors.Is(err, ErrUnderdetermined), "got %v", err)
	assert.True(t, errors.Is(err, regression.ErrUnderdetermined))
}

func TestPercentEffects(t *testing.T) {
	m, err := FitFairValue(testLogger(), canonicalFixture(60))
	require.NoError(t, err)

	base, effects := m.PercentEffects()
	intercept, ok := m.LogLinear().Coefficient(regression.InterceptName)
	require.True(t, ok)
	assert.InDelta(t, math.Exp(intercept), base, 1e-6)
	require.Len(t, effects, len(m.LogLinear().Names)-1)

	for _, e := range effects {
		assert.NotEqual(t, regression.InterceptName, e.Name)
		assert.InDelta(t, (math.Exp(e.Beta)-1)*100, e.Percent, 1e-9)
	}
}
