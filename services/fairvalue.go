package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"car-deal-finder/models"
	"car-deal-finder/regression"
	"car-deal-finder/utils"
)

var (
	// ErrEmptyTable is returned when no row has every model feature.
	ErrEmptyTable = errors.New("fairvalue: no rows eligible for fitting")
	// ErrDegenerateDesign is returned when a categorical feature has a single
	// level or prices do not vary.
	ErrDegenerateDesign = errors.New("fairvalue: degenerate design")
	// ErrUnderdetermined is returned when the design leaves no residual
	// degrees of freedom.
	ErrUnderdetermined = regression.ErrUnderdetermined
)

// Model feature names as they appear in coefficient tables.
const (
	FeatureMileage    = "mileage_10k"
	FeatureMileageSq  = "mileage_10k_sq"
	FeatureMileageCu  = "mileage_10k_cu"
	FeatureHorsepower = "horsepower"
	FeatureFranchise  = "franchise_approved"
	FactorModelYear   = "model_year"
	FactorEngineCode  = "engine_code"
	FactorFuelType    = "fuel_type"
	FactorDrivingType = "driving_type"
)

// mileageUnit rescales mileage to 10 000 km steps.
const mileageUnit = 10000.0

var (
	numericFeatures = []string{FeatureMileage, FeatureMileageSq, FeatureMileageCu, FeatureHorsepower, FeatureFranchise}
	factorNames     = []string{FactorModelYear, FactorEngineCode, FactorFuelType, FactorDrivingType}
)

// LinearStats are the fit statistics of the price-scale model.
type LinearStats struct {
	RSquared    float64 `json:"r_squared"`
	AdjRSquared float64 `json:"adj_r_squared"`
	AIC         float64 `json:"aic"`
	BIC         float64 `json:"bic"`
	RMSE        float64 `json:"rmse"`
}

// LogStats are the fit statistics of the log-price model. RSquaredPrice
// compares exponentiated fitted values with actual prices so it can be read
// against the linear model's R².
type LogStats struct {
	RSquaredLog    float64 `json:"r_squared_log"`
	AdjRSquaredLog float64 `json:"adj_r_squared_log"`
	RSquaredPrice  float64 `json:"r_squared_price"`
	AIC            float64 `json:"aic"`
	BIC            float64 `json:"bic"`
	RMSELog        float64 `json:"rmse_log"`
}

// ModelComparison summarizes both fits.
type ModelComparison struct {
	Observations int         `json:"observations"`
	DroppedRows  int         `json:"dropped_rows"`
	Linear       LinearStats `json:"linear"`
	Log          LogStats    `json:"log_linear"`
}

// PercentEffect is a log-model coefficient read as a price change.
type PercentEffect struct {
	Name    string  `json:"name"`
	Beta    float64 `json:"beta"`
	Percent float64 `json:"percent"`
}

// FairValueModel holds the linear and log-linear OLS fits over one canonical
// table. It is immutable once fitted.
type FairValueModel struct {
	encoder    *regression.Encoder
	linear     *regression.Fit
	log        *regression.Fit
	references []regression.Factor
	comparison ModelComparison
	tableSize  int
}

// modelInputs extracts the numeric features and categorical levels of a
// listing. ok is false when any of them is missing.
func modelInputs(l *models.CanonicalListing) (numeric []float64, levels []string, ok bool) {
	if l.Mileage == nil || l.Horsepower == nil || l.ModelYear == nil {
		return nil, nil, false
	}
	if l.EngineCode == "" || l.FuelType == "" || l.DrivingType == "" {
		return nil, nil, false
	}

	m := float64(*l.Mileage) / mileageUnit
	franchise := 0.0
	if l.FranchiseApproved {
		franchise = 1
	}
	numeric = []float64{m, m * m, m * m * m, float64(*l.Horsepower), franchise}
	levels = []string{strconv.Itoa(*l.ModelYear), l.EngineCode, l.FuelType, l.DrivingType}
	return numeric, levels, true
}

// FitFairValue fits both models over the rows that carry a positive
// price and every model feature. Other rows stay in the table and are counted
// as dropped.
func FitFairValue(logger *utils.Logger, listings []*models.CanonicalListing) (*FairValueModel, error) {
	type sample struct {
		numeric []float64
		levels  []string
		price   float64
	}

	samples := make([]sample, 0, len(listings))
	for _, l := range listings {
		if l.Price == nil || *l.Price <= 0 {
			continue
		}
		numeric, levels, ok := modelInputs(l)
		if !ok {
			continue
		}
		samples = append(samples, sample{numeric: numeric, levels: levels, price: *l.Price})
	}
	dropped := len(listings) - len(samples)
	if len(samples) == 0 {
		return nil, ErrEmptyTable
	}

	factors := make([]regression.Factor, len(factorNames))
	for f, name := range factorNames {
		values := make([]string, len(samples))
		for i, s := range samples {
			values[i] = s.levels[f]
		}
		factors[f] = regression.NewFactor(name, values)
		if len(factors[f].Levels) < 2 {
			return nil, fmt.Errorf("%w: %s has a single level %q", ErrDegenerateDesign, name, factors[f].Reference)
		}
	}

	encoder := regression.NewEncoder(numericFeatures, factors)
	x := mat.NewDense(len(samples), encoder.Width(), nil)
	prices := make([]float64, len(samples))
	logPrices := make([]float64, len(samples))
	for i, s := range samples {
		row, err := encoder.Encode(s.numeric, s.levels)
		if err != nil {
			return nil, fmt.Errorf("fairvalue: encode row %d: %w", i, err)
		}
		x.SetRow(i, row)
		prices[i] = s.price
		logPrices[i] = math.Log(s.price)
	}

	linear, err := regression.OLS(x, prices, encoder.Columns())
	if err != nil {
		return nil, wrapFitError("linear", err)
	}
	logFit, err := regression.OLS(x, logPrices, encoder.Columns())
	if err != nil {
		return nil, wrapFitError("log-linear", err)
	}

	m := &FairValueModel{
		encoder:    encoder,
		linear:     linear,
		log:        logFit,
		references: factors,
		tableSize:  len(listings),
	}
	m.comparison = ModelComparison{
		Observations: len(samples),
		DroppedRows:  dropped,
		Linear: LinearStats{
			RSquared:    linear.RSquared,
			AdjRSquared: linear.AdjRSquared,
			AIC:         linear.AIC,
			BIC:         linear.BIC,
			RMSE:        linear.RMSE,
		},
		Log: LogStats{
			RSquaredLog:    logFit.RSquared,
			AdjRSquaredLog: logFit.AdjRSquared,
			RSquaredPrice:  priceScaleRSquared(prices, logFit.Fitted),
			AIC:            logFit.AIC,
			BIC:            logFit.BIC,
			RMSELog:        logFit.RMSE,
		},
	}

	if dropped > 0 {
		logger.Warn("[fairvalue] %d of %d rows lack a model feature and get no prediction", dropped, len(listings))
	}
	logger.Info("[fairvalue] Fitted %d rows, %d columns: linear R²=%.4f, log R²=%.4f (price scale %.4f)",
		len(samples), encoder.Width(), linear.RSquared, logFit.RSquared, m.comparison.Log.RSquaredPrice)
	return m, nil
}

func wrapFitError(model string, err error) error {
	if errors.Is(err, regression.ErrNoVariance) {
		return fmt.Errorf("%w: %s fit: %v", ErrDegenerateDesign, model, err)
	}
	return fmt.Errorf("fairvalue: %s fit: %w", model, err)
}

// priceScaleRSquared is 1 - Σ(price - e^fitted)² / Σ(price - mean)².
func priceScaleRSquared(prices, logFitted []float64) float64 {
	var mean float64
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))

	var ssr, sst float64
	for i, p := range prices {
		r := p - math.Exp(logFitted[i])
		ssr += r * r
		d := p - mean
		sst += d * d
	}
	return 1 - ssr/sst
}

// Predict scores one listing with both models. ok is false when a feature
// is missing or a categorical level was not seen at fit time.
func (m *FairValueModel) Predict(l *models.CanonicalListing) (models.Prediction, bool) {
	numeric, levels, ok := modelInputs(l)
	if !ok {
		return models.Prediction{}, false
	}
	row, err := m.encoder.Encode(numeric, levels)
	if err != nil {
		return models.Prediction{}, false
	}

	linear := m.linear.Predict(row)
	logPred := m.log.Predict(row)
	p := models.Prediction{
		PredictedLinear:   models.Float(linear),
		PredictedLog:      models.Float(logPred),
		PredictedPriceLog: models.Float(math.Exp(logPred)),
	}
	if l.Price != nil && *l.Price > 0 {
		p.ResidualLinear = models.Float(*l.Price - linear)
		p.ResidualLog = models.Float(math.Log(*l.Price) - logPred)
	}
	return p, true
}

// Comparison returns the fit statistics of both models.
func (m *FairValueModel) Comparison() ModelComparison {
	return m.comparison
}

// References returns the categorical factors with their reference levels,
// fixed at fit time.
func (m *FairValueModel) References() []regression.Factor {
	return m.references
}

// Linear returns the price-scale fit.
func (m *FairValueModel) Linear() *regression.Fit {
	return m.linear
}

// LogLinear returns the log-price fit.
func (m *FairValueModel) LogLinear() *regression.Fit {
	return m.log
}

// DroppedRows is the number of table rows excluded from the fit.
func (m *FairValueModel) DroppedRows() int {
	return m.comparison.DroppedRows
}

// TableSize is the number of rows in the table the model was fitted on.
func (m *FairValueModel) TableSize() int {
	return m.tableSize
}

// PercentEffects converts log-model coefficients into percentage price
// changes, (e^β - 1)·100. The intercept is returned separately as the base
// price e^β of a listing at every reference level with zero mileage.
func (m *FairValueModel) PercentEffects() (basePrice float64, effects []PercentEffect) {
	for j, name := range m.log.Names {
		beta := m.log.Params[j]
		if name == regression.InterceptName {
			basePrice = math.Exp(beta)
			continue
		}
		effects = append(effects, PercentEffect{Name: name, Beta: beta, Percent: (math.Exp(beta) - 1) * 100})
	}
	return basePrice, effects
}
