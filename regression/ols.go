package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrEmptyDesign is returned when there are no observations.
	ErrEmptyDesign = errors.New("regression: no observations")
	// ErrUnderdetermined is returned when the design leaves no residual
	// degrees of freedom.
	ErrUnderdetermined = errors.New("regression: design is underdetermined")
	// ErrNoVariance is returned when the response is constant.
	ErrNoVariance = errors.New("regression: response has zero variance")
)

const machineEpsilon = 2.220446049250313e-16

// supportTolerance is the squared norm below which a column's row of the
// retained right singular vectors counts as zero.
const supportTolerance = 1e-12

// Coefficient is one estimated parameter with its inference statistics.
type Coefficient struct {
	Name     string
	Estimate float64
	StdError float64
	TStat    float64
	PValue   float64
}

// Fit is the result of an ordinary least squares regression.
type Fit struct {
	Names     []string
	Params    []float64
	StdErrors []float64
	Fitted    []float64
	Residuals []float64
	// Aliased marks columns outside the retained singular subspace, such
	// as an all-zero column. Their estimate and standard error are 0.
	Aliased []bool

	NObs    int
	Rank    int
	DFResid int

	SSR           float64
	SST           float64
	RSquared      float64
	AdjRSquared   float64
	LogLikelihood float64
	AIC           float64
	BIC           float64
	RMSE          float64
}

// OLS regresses y on the columns of x. The first column of x is expected to
// be the intercept. The solution uses the SVD pseudo-inverse, so collinear
// or all-zero columns reduce the rank instead of failing; their
// coefficients come out as the minimum-norm solution.
func OLS(x *mat.Dense, y []float64, names []string) (*Fit, error) {
	n, p := x.Dims()
	if n == 0 {
		return nil, ErrEmptyDesign
	}
	if len(y) != n {
		return nil, fmt.Errorf("regression: %d responses for %d rows", len(y), n)
	}
	if len(names) != p {
		return nil, fmt.Errorf("regression: %d names for %d columns", len(names), p)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("regression: SVD factorization failed")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := values[0] * float64(max(n, p)) * machineEpsilon
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	dfResid := n - rank
	if rank == 0 || dfResid <= 0 {
		return nil, fmt.Errorf("%w: %d observations, rank %d", ErrUnderdetermined, n, rank)
	}

	// beta = V_r * diag(1/s_r) * U_r' * y
	uty := make([]float64, rank)
	for k := 0; k < rank; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += u.At(i, k) * y[i]
		}
		uty[k] = sum / values[k]
	}
	aliased := make([]bool, p)
	for j := 0; j < p; j++ {
		var support float64
		for k := 0; k < rank; k++ {
			support += v.At(j, k) * v.At(j, k)
		}
		aliased[j] = support < supportTolerance || mat.Norm(x.ColView(j), 2) == 0
	}

	params := make([]float64, p)
	for j := 0; j < p; j++ {
		if aliased[j] {
			continue
		}
		var sum float64
		for k := 0; k < rank; k++ {
			sum += v.At(j, k) * uty[k]
		}
		params[j] = sum
	}

	fit := &Fit{
		Names:     names,
		Params:    params,
		Fitted:    make([]float64, n),
		Residuals: make([]float64, n),
		Aliased:   aliased,
		NObs:      n,
		Rank:      rank,
		DFResid:   dfResid,
	}

	var mean float64
	for _, yi := range y {
		mean += yi
	}
	mean /= float64(n)

	for i := 0; i < n; i++ {
		var yhat float64
		for j := 0; j < p; j++ {
			yhat += x.At(i, j) * params[j]
		}
		fit.Fitted[i] = yhat
		fit.Residuals[i] = y[i] - yhat
		fit.SSR += fit.Residuals[i] * fit.Residuals[i]
		d := y[i] - mean
		fit.SST += d * d
	}
	if fit.SST == 0 {
		return nil, ErrNoVariance
	}

	nf := float64(n)
	fit.RSquared = 1 - fit.SSR/fit.SST
	fit.AdjRSquared = 1 - (nf-1)/float64(dfResid)*(1-fit.RSquared)
	fit.LogLikelihood = -nf / 2 * (math.Log(2*math.Pi) + math.Log(fit.SSR/nf) + 1)
	fit.AIC = -2*fit.LogLikelihood + 2*float64(rank)
	fit.BIC = -2*fit.LogLikelihood + math.Log(nf)*float64(rank)

	sigma2 := fit.SSR / float64(dfResid)
	fit.RMSE = math.Sqrt(sigma2)

	// diag((X'X)^+) = sum_k V[j,k]^2 / s_k^2 over the retained components.
	fit.StdErrors = make([]float64, p)
	for j := 0; j < p; j++ {
		if aliased[j] {
			continue
		}
		var sum float64
		for k := 0; k < rank; k++ {
			vjk := v.At(j, k)
			sum += vjk * vjk / (values[k] * values[k])
		}
		fit.StdErrors[j] = math.Sqrt(sigma2 * sum)
	}

	return fit, nil
}

// Predict evaluates the fitted linear predictor for one design row.
func (f *Fit) Predict(row []float64) float64 {
	var yhat float64
	for j, b := range f.Params {
		yhat += row[j] * b
	}
	return yhat
}

// Coefficients returns the parameters with standard errors, t statistics
// and two-sided p-values from the Student t distribution. Parameters with a
// zero standard error (aliased by the rank cut) report NaN t and p.
func (f *Fit) Coefficients() []Coefficient {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(f.DFResid)}
	out := make([]Coefficient, len(f.Params))
	for j, b := range f.Params {
		c := Coefficient{Name: f.Names[j], Estimate: b, StdError: f.StdErrors[j], TStat: math.NaN(), PValue: math.NaN()}
		if f.StdErrors[j] > 0 {
			c.TStat = b / f.StdErrors[j]
			c.PValue = 2 * dist.CDF(-math.Abs(c.TStat))
		}
		out[j] = c
	}
	return out
}

// IsAliased reports whether the named column was cut from the fit.
func (f *Fit) IsAliased(name string) bool {
	for j, n := range f.Names {
		if n == name {
			return f.Aliased[j]
		}
	}
	return false
}

// Coefficient looks up a parameter by column name.
func (f *Fit) Coefficient(name string) (float64, bool) {
	for j, n := range f.Names {
		if n == name {
			return f.Params[j], true
		}
	}
	return 0, false
}
