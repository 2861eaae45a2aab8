package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-deal-finder/models"
	"car-deal-finder/normalize"
)

func newTestReconciler() *Reconciler {
	cleaner := NewCleaner(testLogger(), 2026, normalize.DefaultEngineBands())
	return NewReconciler(testLogger(), DefaultSourceProfiles(), cleaner)
}

func TestRegistrationKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ABC123", "ABC123"},
		{" abc 123 ", "ABC123"},
		{"abc\t12 3\n", "ABC123"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := RegistrationKey(tt.in); got != tt.want {
			t.Errorf("RegistrationKey(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"349900", 349900, true},
		{"349 900 kr", 349900, true},
		{"349\u00a0900 kr", 349900, true},
		{"349,900", 349900, true},
		{"349900.0", 349900, true},
		{"4 500 mil", 4500, true},
		{"", 0, false},
		{"pris saknas", 0, false},
	}
	for _, tt := range tests {
		got := parseNumber(tt.in)
		if !tt.ok {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.Equal(t, tt.want, *got, tt.in)
	}

	year := parseInt("2021.0")
	require.NotNil(t, year)
	assert.Equal(t, 2021, *year)
}

func TestParseDedupPolicy(t *testing.T) {
	p, err := ParseDedupPolicy("Priority")
	require.NoError(t, err)
	assert.Equal(t, PreferPriority, p)

	p, err = ParseDedupPolicy("first")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	_, err = ParseDedupPolicy("newest")
	assert.Error(t, err)
}

func TestCombineMapsSourceColumns(t *testing.T) {
	r := newTestReconciler()
	raw, err := r.Combine(sourceFixture())
	require.NoError(t, err)
	require.Len(t, raw, 90)

	// Concatenation keeps source order.
	assert.Equal(t, models.SourceVolvoSelekt, raw[0].Source)
	assert.Equal(t, models.SourceBilia, raw[40].Source)
	assert.Equal(t, models.SourceRejmes, raw[70].Source)

	bilia := raw[40]
	assert.Equal(t, "BI000", bilia.RegistrationNumber)
	assert.NotEmpty(t, bilia.ModelVariant, "version column maps onto model_variant")
	assert.NotEmpty(t, bilia.DrivingType, "drive_wheels column maps onto driving_type")
	assert.NotEmpty(t, bilia.DetailURL)
	assert.Nil(t, bilia.FranchiseApproved, "dealer sources carry no certification flag")

	for _, l := range raw[70:] {
		assert.NotEqual(t, "Hybrid el/bensin", l.FuelType)
	}

	selekt := raw[7]
	require.NotNil(t, selekt.Price)
	assert.Equal(t, 444000.0, *selekt.Price)
	require.NotNil(t, selekt.FranchiseApproved)
}

func TestCombineInvalidSchema(t *testing.T) {
	r := newTestReconciler()

	_, err := r.Combine([]*models.SourceTable{{Source: "blocket", Header: []string{"registration_number"}}})
	assert.True(t, errors.Is(err, ErrInvalidSchema), "unknown source: %v", err)

	_, err = r.Combine([]*models.SourceTable{{Source: models.SourceBilia}})
	assert.True(t, errors.Is(err, ErrInvalidSchema), "missing header: %v", err)

	_, err = r.Combine([]*models.SourceTable{{Source: models.SourceBilia, Header: []string{"price", "version"}}})
	assert.True(t, errors.Is(err, ErrInvalidSchema), "missing registration: %v", err)
}

func TestReconcileEndToEnd(t *testing.T) {
	r := newTestReconciler()
	res, err := r.Reconcile(sourceFixture(), PreferPriority)
	require.NoError(t, err)

	require.Len(t, res.Listings, 88)
	seen := make(map[string]bool)
	for _, l := range res.Listings {
		assert.False(t, seen[l.Registration], "duplicate registration %s", l.Registration)
		seen[l.Registration] = true
	}

	var abc *models.CanonicalListing
	for _, l := range res.Listings {
		if l.Registration == "ABC123" {
			abc = l
		}
	}
	require.NotNil(t, abc)
	assert.Equal(t, models.SourceVolvoSelekt, abc.Source)
	require.NotNil(t, abc.Price)
	assert.Equal(t, 444000.0, *abc.Price)

	rep := res.Report
	assert.Equal(t, 90, rep.Input)
	assert.Equal(t, 88, rep.Output)
	assert.Equal(t, 2, rep.Removed)
	assert.Equal(t, 0, rep.MissingKey)
	assert.Equal(t, 1, rep.DuplicateKeys)
	assert.Equal(t, 1, rep.CrossSourceKeys)
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, "ABC123", rep.Groups[0].Key)
	assert.Len(t, rep.Groups[0].Entries, 3)

	assert.Equal(t, 88, res.Clean.Output)
}

func TestDeduplicatePolicies(t *testing.T) {
	r := newTestReconciler()
	raw := []*models.RawListing{
		{RegistrationNumber: "AAA111", Source: models.SourceRejmes, Price: models.Float(1)},
		{RegistrationNumber: "BBB222", Source: models.SourceBilia, Price: models.Float(2)},
		{RegistrationNumber: "aaa 111", Source: models.SourceBilia, Price: models.Float(3)},
		{RegistrationNumber: "", Source: models.SourceBilia},
		{RegistrationNumber: "AAA111", Source: models.SourceVolvoSelekt, Price: models.Float(4)},
		{RegistrationNumber: "BBB222", Source: models.SourceBilia, Price: models.Float(5)},
	}

	first, rep := r.Deduplicate(raw, KeepFirst)
	require.Len(t, first, 2)
	assert.Equal(t, 1.0, *first[0].Price)
	assert.Equal(t, 2.0, *first[1].Price)
	assert.Equal(t, 1, rep.MissingKey)
	assert.Equal(t, 3, rep.Removed)
	assert.Equal(t, 2, rep.DuplicateKeys)
	assert.Equal(t, 1, rep.CrossSourceKeys, "BBB222 repeats within one source only")
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, "AAA111", rep.Groups[0].Key)
	require.Len(t, rep.Groups[0].Entries, 3)
	assert.Equal(t, models.SourceRejmes, rep.Groups[0].Entries[0].Source)
	assert.Equal(t, models.SourceVolvoSelekt, rep.Groups[0].Entries[2].Source)

	prio, rep := r.Deduplicate(raw, PreferPriority)
	require.Len(t, prio, 2)
	// Survivors come back in concatenation order: BBB222 (row 1) before AAA111 (row 4).
	assert.Equal(t, 2.0, *prio[0].Price)
	assert.Equal(t, models.SourceVolvoSelekt, prio[1].Source)
	assert.Equal(t, 4.0, *prio[1].Price)
	assert.Equal(t, 3, rep.Removed)
}

func TestDeduplicatePriorityIgnoresTableOrder(t *testing.T) {
	r := newTestReconciler()
	tables := sourceFixture()
	reversed := []*models.SourceTable{tables[2], tables[1], tables[0]}

	raw, err := r.Combine(reversed)
	require.NoError(t, err)

	first, _ := r.Deduplicate(raw, KeepFirst)
	prio, _ := r.Deduplicate(raw, PreferPriority)
	require.Len(t, first, 88)
	require.Len(t, prio, 88)

	find := func(rows []*models.RawListing) *models.RawListing {
		for _, l := range rows {
			if RegistrationKey(l.RegistrationNumber) == "ABC123" {
				return l
			}
		}
		return nil
	}
	assert.Equal(t, models.SourceRejmes, find(first).Source)
	assert.Equal(t, models.SourceVolvoSelekt, find(prio).Source)
}
