// Package regression fits ordinary least squares models over a design of
// numeric columns and treatment-coded categorical factors.
package regression

import (
	"errors"
	"fmt"
	"sort"
)

// InterceptName is the column name of the constant term.
const InterceptName = "Intercept"

// ErrUnseenLevel is returned when a row carries a categorical level the
// encoder was not built with.
var ErrUnseenLevel = errors.New("regression: unseen categorical level")

// Factor is a categorical feature with treatment coding. The Reference
// level is omitted from the design; every other level gets a dummy column
// whose coefficient is the differential against the reference.
type Factor struct {
	Name      string
	Levels    []string
	Reference string
}

// ReferenceLevel returns the most frequent non-empty value. Ties go to the
// lexically smallest level so the choice is deterministic.
func ReferenceLevel(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for level, n := range counts {
		if n > bestCount || (n == bestCount && level < best) {
			best, bestCount = level, n
		}
	}
	return best
}

// NewFactor builds a factor from the observed values of one feature.
func NewFactor(name string, values []string) Factor {
	seen := make(map[string]struct{})
	levels := make([]string, 0)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return Factor{Name: name, Levels: levels, Reference: ReferenceLevel(values)}
}

// Dummies returns the non-reference levels in column order.
func (f Factor) Dummies() []string {
	out := make([]string, 0, len(f.Levels))
	for _, l := range f.Levels {
		if l != f.Reference {
			out = append(out, l)
		}
	}
	return out
}

// ColumnName formats a dummy column the way model summaries print it.
func (f Factor) ColumnName(level string) string {
	return fmt.Sprintf("C(%s)[T.%s]", f.Name, level)
}

// Encoder turns numeric values and categorical levels into design rows:
// intercept, numeric columns in order, then one dummy per non-reference
// level of each factor.
type Encoder struct {
	Numeric []string
	Factors []Factor

	columns []string
	offsets []map[string]int
}

// NewEncoder fixes the column layout for the given numeric names and
// factors.
func NewEncoder(numeric []string, factors []Factor) *Encoder {
	e := &Encoder{Numeric: numeric, Factors: factors}
	e.columns = append(e.columns, InterceptName)
	e.columns = append(e.columns, numeric...)
	e.offsets = make([]map[string]int, len(factors))
	for i, f := range factors {
		e.offsets[i] = make(map[string]int)
		for _, level := range f.Dummies() {
			e.offsets[i][level] = len(e.columns)
			e.columns = append(e.columns, f.ColumnName(level))
		}
	}
	return e
}

// Columns returns the design column names.
func (e *Encoder) Columns() []string {
	return e.columns
}

// Width returns the number of design columns.
func (e *Encoder) Width() int {
	return len(e.columns)
}

// Encode builds one design row. levels must be given in factor order.
func (e *Encoder) Encode(numeric []float64, levels []string) ([]float64, error) {
	if len(numeric) != len(e.Numeric) {
		return nil, fmt.Errorf("regression: got %d numeric values, want %d", len(numeric), len(e.Numeric))
	}
	if len(levels) != len(e.Factors) {
		return nil, fmt.Errorf("regression: got %d levels, want %d", len(levels), len(e.Factors))
	}

	row := make([]float64, len(e.columns))
	row[0] = 1
	copy(row[1:], numeric)
	for i, f := range e.Factors {
		level := levels[i]
		if level == f.Reference {
			continue
		}
		col, ok := e.offsets[i][level]
		if !ok {
			return nil, fmt.Errorf("%w: %s=%q", ErrUnseenLevel, f.Name, level)
		}
		row[col] = 1
	}
	return row, nil
}
