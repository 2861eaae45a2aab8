// Package normalize maps noisy scraped text onto canonical listing fields.
// Nothing in this package returns an error: malformed input yields the empty
// string or a nil pointer and is carried downstream as missing data.
package normalize

import (
	"regexp"
	"strconv"
)

var (
	// engineCodeRegexp matches Volvo powertrain tokens such as T6 or B5.
	engineCodeRegexp = regexp.MustCompile(`\b([TBD]\d)\b`)
	// horsepowerRegexp captures "455 Hk" or "350 hk / 261 kW".
	horsepowerRegexp = regexp.MustCompile(`(\d+)\s*[Hh][Kk]`)
)

// EngineBands are the horsepower thresholds used to infer an engine code
// when the variant text does not name one.
type EngineBands struct {
	// T8From is the lowest horsepower labelled T8.
	T8From int
	// T6From is the lowest horsepower labelled T6.
	T6From int
	// MidFrom is the lowest horsepower labelled MidBandCode.
	MidFrom int
	// MidBandCode labels the band just below T6. B5 and T5 both live here;
	// B5 is the more frequent label in recent listings.
	MidBandCode string
}

// DefaultEngineBands returns the thresholds observed across the sources.
func DefaultEngineBands() EngineBands {
	return EngineBands{T8From: 380, T6From: 250, MidFrom: 230, MidBandCode: "B5"}
}

// Infer maps a horsepower figure onto an engine code. It is a step function
// with inclusive lower bounds.
func (b EngineBands) Infer(hp int) string {
	switch {
	case hp >= b.T8From:
		return "T8"
	case hp >= b.T6From:
		return "T6"
	case hp >= b.MidFrom:
		return b.MidBandCode
	default:
		return "B4"
	}
}

// ExtractEngineCode returns the first engine token found in a model variant
// string, or "" when there is none.
func ExtractEngineCode(variant string) string {
	m := engineCodeRegexp.FindStringSubmatch(variant)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// EngineCode prefers an explicit token in the variant text and falls back to
// horsepower inference. The second return value reports whether the code was
// inferred.
func EngineCode(variant string, hp *int, bands EngineBands) (string, bool) {
	if code := ExtractEngineCode(variant); code != "" {
		return code, false
	}
	if hp == nil {
		return "", false
	}
	return bands.Infer(*hp), true
}

// ExtractHorsepower returns the first integer followed by the "hk" unit.
func ExtractHorsepower(enginePower string) *int {
	m := horsepowerRegexp.FindStringSubmatch(enginePower)
	if len(m) < 2 {
		return nil
	}
	hp, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &hp
}
