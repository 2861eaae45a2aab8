package normalize

import "strings"

// Canonical fuel types.
const (
	FuelPetrol       = "Petrol"
	FuelDiesel       = "Diesel"
	FuelElectric     = "Electric"
	FuelHybrid       = "Hybrid"
	FuelMildHybrid   = "Mild Hybrid"
	FuelPluginHybrid = "Plugin Hybrid"
)

type fuelRule struct {
	match func(s string) bool
	fuel  string
}

func contains(tokens ...string) func(string) bool {
	return func(s string) bool {
		for _, t := range tokens {
			if strings.Contains(s, t) {
				return true
			}
		}
		return false
	}
}

// electricSubtypeRules apply to the richer "typ av elbil" field some sources
// expose separately from the fuel string.
var electricSubtypeRules = []fuelRule{
	{contains("laddhybrid"), FuelPluginHybrid},
	{contains("elbil"), FuelElectric},
	{contains("mildhybrid"), FuelMildHybrid},
}

// fuelRules are checked in order. Narrow markers come first because the
// generic ones ("hybrid", "el") are substrings of them.
var fuelRules = []fuelRule{
	{contains("laddhybrid", "plug"), FuelPluginHybrid},
	{contains("bensin+el", "bensin + el"), FuelPluginHybrid},
	{contains("mildhybrid"), FuelMildHybrid},
	{contains("hybrid"), FuelHybrid},
	{func(s string) bool {
		return strings.Contains(s, "el") && !strings.Contains(s, "diesel") && !strings.Contains(s, "bensin")
	}, FuelElectric},
	{contains("diesel"), FuelDiesel},
	{contains("bensin"), FuelPetrol},
}

// FuelType normalizes a scraped fuel string. A non-empty electric subtype
// overrides the generic fuel string when it is recognised. Unrecognised
// values pass through unchanged.
func FuelType(fuel, electricType string) string {
	fuel = strings.TrimSpace(fuel)
	if fuel == "" {
		return ""
	}

	if e := strings.ToLower(strings.TrimSpace(electricType)); e != "" {
		for _, r := range electricSubtypeRules {
			if r.match(e) {
				return r.fuel
			}
		}
	}

	lower := strings.ToLower(fuel)
	for _, r := range fuelRules {
		if r.match(lower) {
			return r.fuel
		}
	}
	return fuel
}
