package normalize

import (
	"sort"
	"strings"
)

// swedishCities are the towns dealers list under. Upper-case, NFC.
var swedishCities = []string{
	// Major cities
	"STOCKHOLM", "GÖTEBORG", "MALMÖ", "UPPSALA", "VÄSTERÅS", "ÖREBRO",
	"LINKÖPING", "HELSINGBORG", "NORRKÖPING", "JÖNKÖPING", "UMEÅ",
	"LUND", "BORÅS", "ESKILSTUNA", "GÄVLE", "SÖDERTÄLJE", "KARLSTAD",
	"HALMSTAD", "VÄXJÖ", "SUNDSVALL", "TROLLHÄTTAN", "ÖSTERSUND",
	"FALUN", "SKELLEFTEÅ", "KRISTIANSTAD", "KALMAR", "KUNGÄLV",
	// Medium cities
	"LIDKÖPING", "SKÖVDE", "UDDEVALLA", "MOTALA", "TRELLEBORG",
	"KARLSKRONA", "VARBERG", "ÄNGELHOLM", "NYKÖPING", "SANDVIKEN",
	"LIDINGÖ", "BOLLNÄS", "ÖRNSKÖLDSVIK", "LANDSKRONA", "YSTAD",
	// Dealership towns seen in listings
	"LINDESBERG", "FINSPÅNG", "MJÖLBY", "HALLSBERG", "ÅTVIDABERG",
	"UPPLANDS VÄSBY", "TÄBY", "SOLLENTUNA", "SOLNA", "NACKA",
	"JÄGERSRO", "KUNGSÄNGEN", "HANINGE", "SISJÖN", "KISTA",
	"SEGELTORP", "HUDDINGE", "MÄRSTA", "UPPLANDS BRO", "TIMRÅ",
	"ARÖD", "ÖSTHAMMAR", "ARVIKA", "SALA", "VARA",
	"LAHOLM", "ENKÖPING", "HAMMARBY SJÖSTAD", "VIMMERBY", "LJUSDAL",
	"HUDIKSVALL", "VALLENTUNA", "ESLÖV", "KRISTINEHAMN",
	"ALINGSÅS", "ÅMÅL", "DINGLE", "FALKÖPING", "LYSEKIL",
	"MARIESTAD", "MELLERUD", "STRÖMSTAD", "VÄNERSBORG",
	"HÄRNÖSAND", "KALIX", "STRÖMSUND", "NORRTÄLJE",
	"SÖDERHAMN", "VISBY", "KÖPING", "STRÄNGNÄS",
	"KUNGSBACKA", "STENUNGSUND", "BRO", "VÄRNHEM", "KUNGENS KURVA",
	"SÄVEDALEN",
}

// Gazetteer is a fixed set of valid city names.
type Gazetteer struct {
	names     map[string]struct{}
	multiWord []string
}

// NewGazetteer builds a gazetteer from upper-case city names.
func NewGazetteer(names ...string) *Gazetteer {
	g := &Gazetteer{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := g.names[n]; dup {
			continue
		}
		g.names[n] = struct{}{}
		if strings.Contains(n, " ") {
			g.multiWord = append(g.multiWord, n)
		}
	}
	// Longest first so "UPPLANDS VÄSBY" wins over any shorter entry it contains.
	sort.Slice(g.multiWord, func(i, j int) bool {
		if len(g.multiWord[i]) != len(g.multiWord[j]) {
			return len(g.multiWord[i]) > len(g.multiWord[j])
		}
		return g.multiWord[i] < g.multiWord[j]
	})
	return g
}

// SwedishCities returns the default gazetteer.
func SwedishCities() *Gazetteer {
	return NewGazetteer(swedishCities...)
}

// Contains reports whether text, trimmed, is a known city. Callers pass
// upper-case text.
func (g *Gazetteer) Contains(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	_, ok := g.names[text]
	return ok
}

// MultiWord returns the multi-word entries, longest first.
func (g *Gazetteer) MultiWord() []string {
	return g.multiWord
}

// Len returns the number of cities.
func (g *Gazetteer) Len() int {
	return len(g.names)
}
