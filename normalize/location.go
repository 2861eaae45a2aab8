package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// replacementChar marks a byte sequence the scraper could not decode. In
// these sources it almost always stands for Å, Ä or Ö.
const replacementChar = "�"

const segmentSeparator = " - "

var (
	bracketedDealerRegexp = regexp.MustCompile(`BILIA\s+([A-ZÅÄÖ\s]+?)\s+VOLVO`)

	dashVariants = strings.NewReplacer(" – ", segmentSeparator, " — ", segmentSeparator)

	// markerFallback is applied once no substitution validated.
	markerFallback = strings.NewReplacer(replacementChar, "Ö", "Ø", "Ö")

	// accentCandidates are tried in order when repairing a marker.
	accentCandidates = []string{"Ö", "Ä", "Å"}
)

// defaultDealerPrefixes are dealer names that prefix a city in free text.
// Longer names precede their own prefixes.
var defaultDealerPrefixes = []string{
	"BILBOLAGET PERSONBILAR", "VOLVO CAR", "BRANDT PERSONBILAR",
	"FINNVEDENS BIL", "SKOBES BIL", "HELMIA BIL", "BILMÅNSSON I SKÅNE",
	"REJMES PERSONVAGNAR", "BILKOMPANIET DALARNA", "JOHAN AHLBERG BIL",
	"BILBOLAGET NORD", "BILIA PERSONBILAR AB", "BILIA",
}

// Strategy tries to resolve a city from prepared (upper-case, trimmed) text.
type Strategy func(text string) (city string, ok bool)

// LocationResolver turns dealer location text into a city name by running an
// ordered list of strategies; the first success wins.
type LocationResolver struct {
	gazetteer      *Gazetteer
	dealerPrefixes []string
	strategies     []Strategy
}

// NewLocationResolver builds a resolver over g with the default dealer
// prefixes.
func NewLocationResolver(g *Gazetteer) *LocationResolver {
	r := &LocationResolver{
		gazetteer:      g,
		dealerPrefixes: defaultDealerPrefixes,
	}
	r.strategies = []Strategy{
		r.repairEncoding,
		r.splitDealerCity,
		r.bracketedDealer,
		r.scanKnownCities,
		r.exactCity,
		r.stripDealerPrefix,
	}
	return r
}

// Resolve returns the city for raw location text. When nothing validates the
// upper-cased text is returned as-is; an empty input yields "".
func (r *LocationResolver) Resolve(raw string) string {
	text := prepareLocation(raw)
	if text == "" {
		return ""
	}
	for _, s := range r.strategies {
		if city, ok := s(text); ok {
			return city
		}
	}
	return markerFallback.Replace(text)
}

func prepareLocation(raw string) string {
	s := norm.NFC.String(raw)
	s = cases.Upper(language.Swedish).String(s)
	s = strings.Join(strings.Fields(s), " ")
	return dashVariants.Replace(s)
}

// repairEncoding substitutes each candidate letter for the replacement
// character and accepts the first variant that contains a known city as the
// whole string, a dash segment, or a single token.
func (r *LocationResolver) repairEncoding(text string) (string, bool) {
	if !strings.Contains(text, replacementChar) {
		return "", false
	}
	for _, letter := range accentCandidates {
		candidate := strings.ReplaceAll(text, replacementChar, letter)
		if r.gazetteer.Contains(candidate) {
			return candidate, true
		}
		if strings.Contains(candidate, segmentSeparator) {
			if city, ok := r.validSegment(splitSegments(candidate)); ok {
				return city, true
			}
		}
		for _, word := range strings.Fields(candidate) {
			word = strings.Trim(word, ",-")
			if r.gazetteer.Contains(word) {
				return word, true
			}
		}
	}
	return "", false
}

// splitDealerCity handles "DEALER - CITY" and "CITY - STREET". It always
// succeeds when a separator is present, falling back to the unvalidated
// second segment so towns missing from the gazetteer are kept.
func (r *LocationResolver) splitDealerCity(text string) (string, bool) {
	text = markerFallback.Replace(text)
	if !strings.Contains(text, segmentSeparator) {
		return "", false
	}
	parts := splitSegments(text)
	if city, ok := r.validSegment(parts); ok {
		return city, true
	}
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1], true
	}
	if parts[0] != "" {
		return parts[0], true
	}
	return "", false
}

// validSegment prefers the second segment, then the first, then any other.
func (r *LocationResolver) validSegment(parts []string) (string, bool) {
	if len(parts) >= 2 && r.gazetteer.Contains(parts[1]) {
		return parts[1], true
	}
	if len(parts) >= 1 && r.gazetteer.Contains(parts[0]) {
		return parts[0], true
	}
	for i := 2; i < len(parts); i++ {
		if r.gazetteer.Contains(parts[i]) {
			return parts[i], true
		}
	}
	return "", false
}

func splitSegments(text string) []string {
	parts := strings.Split(text, segmentSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// bracketedDealer handles "BILIA <CITY> VOLVO" dealer names.
func (r *LocationResolver) bracketedDealer(text string) (string, bool) {
	text = markerFallback.Replace(text)
	if !strings.Contains(text, "BILIA") || !strings.Contains(text, "VOLVO") {
		return "", false
	}
	m := bracketedDealerRegexp.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	city := strings.TrimSpace(m[1])
	if !r.gazetteer.Contains(city) {
		return "", false
	}
	return city, true
}

// scanKnownCities finds a city anywhere in the text. Multi-word names are
// checked first so "UPPLANDS VÄSBY" is not shadowed by a shorter token.
func (r *LocationResolver) scanKnownCities(text string) (string, bool) {
	text = markerFallback.Replace(text)
	for _, city := range r.gazetteer.MultiWord() {
		if strings.Contains(text, city) {
			return city, true
		}
	}
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ",-()")
		if r.gazetteer.Contains(word) {
			return word, true
		}
	}
	return "", false
}

func (r *LocationResolver) exactCity(text string) (string, bool) {
	text = markerFallback.Replace(text)
	if r.gazetteer.Contains(text) {
		return text, true
	}
	return "", false
}

// stripDealerPrefix removes a known dealer name and validates the rest.
func (r *LocationResolver) stripDealerPrefix(text string) (string, bool) {
	text = markerFallback.Replace(text)
	for _, prefix := range r.dealerPrefixes {
		if !strings.HasPrefix(text, prefix) {
			continue
		}
		remainder := strings.TrimLeft(strings.TrimSpace(text[len(prefix):]), "- ")
		if remainder != "" && r.gazetteer.Contains(remainder) {
			return remainder, true
		}
	}
	return "", false
}
