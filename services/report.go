package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"car-deal-finder/regression"
)

// ModelReportFile is the file name WriteModelReport writes into the output
// directory.
const ModelReportFile = "model_comparison.txt"

// DedupReportFile is the file name WriteDedupReport writes next to the
// cleaned table.
const DedupReportFile = "dedup_report.json"

// WriteDedupReport stores the counters of a reconciliation run as
// dir/dedup_report.json so later runs on the cleaned table can report them.
func WriteDedupReport(dir string, r DedupReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: encode dedup report: %w", err)
	}
	path := filepath.Join(dir, DedupReportFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// ReadDedupReport loads dir/dedup_report.json. A missing file yields
// (nil, nil).
func ReadDedupReport(dir string) (*DedupReport, error) {
	path := filepath.Join(dir, DedupReportFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r DedupReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}

// WriteModelReport writes the fit comparison, both coefficient tables and
// the log-model percentage effects to dir/model_comparison.txt.
func WriteModelReport(dir string, m *FairValueModel) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, ModelReportFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := RenderModelReport(w, m); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// RenderModelReport writes the plain-text model report to w.
func RenderModelReport(w io.Writer, m *FairValueModel) error {
	rule := strings.Repeat("=", 80)
	c := m.Comparison()
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nUSED CAR PRICE MODEL COMPARISON\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Observations: %d (table rows: %d, without prediction: %d)\n\n",
		c.Observations, m.TableSize(), c.DroppedRows)

	b.WriteString("MODEL FIT STATISTICS\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString("\nLinear Model:\n")
	writeStat(&b, "R²", c.Linear.RSquared)
	writeStat(&b, "Adj. R²", c.Linear.AdjRSquared)
	writeStat(&b, "AIC", c.Linear.AIC)
	writeStat(&b, "BIC", c.Linear.BIC)
	writeStat(&b, "RMSE", c.Linear.RMSE)
	b.WriteString("\nLog-Linear Model:\n")
	writeStat(&b, "R² (log scale)", c.Log.RSquaredLog)
	writeStat(&b, "Adj. R² (log scale)", c.Log.AdjRSquaredLog)
	writeStat(&b, "R² (price scale)", c.Log.RSquaredPrice)
	writeStat(&b, "AIC", c.Log.AIC)
	writeStat(&b, "BIC", c.Log.BIC)
	writeStat(&b, "RMSE (log scale)", c.Log.RMSELog)

	b.WriteString("\nReference levels:\n")
	for _, f := range m.References() {
		fmt.Fprintf(&b, "  %s: %s (%d levels)\n", f.Name, f.Reference, len(f.Levels))
	}

	fmt.Fprintf(&b, "\n%s\nLINEAR MODEL RESULTS (price in SEK)\n%s\n", rule, rule)
	writeCoefficients(&b, m.Linear())

	fmt.Fprintf(&b, "\n%s\nLOG-LINEAR MODEL RESULTS (log price)\n%s\n", rule, rule)
	writeCoefficients(&b, m.LogLinear())

	fmt.Fprintf(&b, "\n%s\nLOG-LINEAR COEFFICIENT INTERPRETATION (%% change in price)\n%s\n", rule, rule)
	base, effects := m.PercentEffects()
	refs := make([]string, 0, len(m.References()))
	for _, f := range m.References() {
		refs = append(refs, f.Reference)
	}
	fmt.Fprintf(&b, "  Base price (%s, mileage=0): %s SEK\n", strings.Join(refs, ", "), formatSEK(base))
	for _, e := range effects {
		switch e.Name {
		case FeatureMileage:
			fmt.Fprintf(&b, "  %s: %+.1f%% per 10k km (linear effect)\n", e.Name, e.Percent)
		case FeatureMileageSq:
			fmt.Fprintf(&b, "  %s: %+.2f%% (quadratic term)\n", e.Name, e.Percent)
		case FeatureMileageCu:
			fmt.Fprintf(&b, "  %s: %+.3f%% (cubic term)\n", e.Name, e.Percent)
		case FeatureFranchise:
			if m.LogLinear().IsAliased(e.Name) {
				fmt.Fprintf(&b, "  %s: not estimated (certified car premium, no variation)\n", e.Name)
				continue
			}
			fmt.Fprintf(&b, "  %s: %+.1f%% (certified car premium)\n", e.Name, e.Percent)
		default:
			fmt.Fprintf(&b, "  %s: %+.1f%%\n", e.Name, e.Percent)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func writeStat(b *strings.Builder, name string, v float64) {
	fmt.Fprintf(b, "  %s: %.4f\n", name, v)
}

func writeCoefficients(b *strings.Builder, fit *regression.Fit) {
	fmt.Fprintf(b, "No. Observations: %d   Df Residuals: %d   Rank: %d\n", fit.NObs, fit.DFResid, fit.Rank)
	fmt.Fprintf(b, "R-squared: %.4f   Adj. R-squared: %.4f   Log-Likelihood: %.2f\n\n",
		fit.RSquared, fit.AdjRSquared, fit.LogLikelihood)
	fmt.Fprintf(b, "%-42s %14s %12s %9s %8s\n", "", "coef", "std err", "t", "P>|t|")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	for _, c := range fit.Coefficients() {
		fmt.Fprintf(b, "%-42s %14.4f %12.4f %9s %8s %s\n",
			c.Name, c.Estimate, c.StdError, formatStat(c.TStat, "%.3f"), formatStat(c.PValue, "%.3f"), stars(c.PValue))
	}
	b.WriteString(strings.Repeat("-", 90) + "\n")
	b.WriteString("Signif. codes: *** p<0.001, ** p<0.01, * p<0.05\n")
}

func formatStat(v float64, format string) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf(format, v)
}

func stars(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	}
	return ""
}
