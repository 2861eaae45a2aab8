package services

import (
	"fmt"

	"car-deal-finder/models"
	"car-deal-finder/utils"
)

// Analysis is the scored view of one canonical table handed to readers such
// as the HTTP API. It is built once and never modified.
type Analysis struct {
	Listings []*models.CanonicalListing
	Model    *FairValueModel
	Scored   []*models.ScoredListing
	Ranked   []*models.ScoredListing
	Dataset  *models.DatasetSummary
	// Dedup carries the counters of the reconciliation run that produced
	// the table, when they are known.
	Dedup *DedupReport

	finder *ComparableFinder
	byReg  map[string]*models.ScoredListing
}

// ReferenceLevel names the omitted level of one categorical feature.
type ReferenceLevel struct {
	Feature string   `json:"feature"`
	Level   string   `json:"level"`
	Levels  []string `json:"levels"`
}

// AnalysisSummary is the fit and data overview of an Analysis.
type AnalysisSummary struct {
	Comparison ModelComparison        `json:"comparison"`
	References []ReferenceLevel       `json:"references"`
	BasePrice  float64                `json:"base_price"`
	Effects    []PercentEffect        `json:"percent_effects"`
	TableSize  int                    `json:"table_size"`
	Scored     int                    `json:"scored"`
	Dataset    *models.DatasetSummary `json:"dataset"`
	Dedup      *DedupReport           `json:"dedup,omitempty"`
}

// NewAnalysis fits the fair-value model over listings and scores every row.
func NewAnalysis(logger *utils.Logger, listings []*models.CanonicalListing, weights ComparableWeights) (*Analysis, error) {
	model, err := FitFairValue(logger, listings)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	scored := ScoreListings(model, listings)
	a := &Analysis{
		Listings: listings,
		Model:    model,
		Scored:   scored,
		Ranked:   RankDeals(scored),
		Dataset:  NewInsightService(logger, nil).Summarize(listings),
		finder:   NewComparableFinder(weights),
		byReg:    make(map[string]*models.ScoredListing, len(scored)),
	}
	for _, s := range scored {
		a.byReg[s.Registration] = s
	}

	logger.Info("[analysis] Scored %d of %d listings", len(a.Ranked), len(listings))
	return a, nil
}

// Listing looks up a scored listing by registration.
func (a *Analysis) Listing(registration string) (*models.ScoredListing, bool) {
	s, ok := a.byReg[RegistrationKey(registration)]
	return s, ok
}

// Deals returns the ranked deal table, capped at limit when limit > 0.
func (a *Analysis) Deals(limit int) []models.DealRow {
	ranked := a.Ranked
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return DealTable(ranked)
}

// Comparables runs a similarity search around registration.
func (a *Analysis) Comparables(registration string, n int) ([]models.Comparable, error) {
	return a.finder.Find(a.Scored, registration, n)
}

// Summary bundles the fit comparison, reference levels and counters.
func (a *Analysis) Summary() AnalysisSummary {
	refs := make([]ReferenceLevel, 0, len(a.Model.References()))
	for _, f := range a.Model.References() {
		refs = append(refs, ReferenceLevel{Feature: f.Name, Level: f.Reference, Levels: f.Levels})
	}
	base, effects := a.Model.PercentEffects()
	return AnalysisSummary{
		Comparison: a.Model.Comparison(),
		References: refs,
		BasePrice:  base,
		Effects:    effects,
		TableSize:  a.Model.TableSize(),
		Scored:     len(a.Ranked),
		Dataset:    a.Dataset,
		Dedup:      a.Dedup,
	}
}
