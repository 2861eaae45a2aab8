package services

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"car-deal-finder/models"
	"car-deal-finder/normalize"
	"car-deal-finder/utils"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	goodStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	badStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

// NewInsightService prints to out, or stdout when out is nil.
func NewInsightService(logger *utils.Logger, out io.Writer) *InsightService {
	if out == nil {
		out = os.Stdout
	}
	return &InsightService{logger: logger, out: out}
}

// Summarize computes descriptive statistics over a canonical table.
func (s *InsightService) Summarize(listings []*models.CanonicalListing) *models.DatasetSummary {
	sum := &models.DatasetSummary{
		BySource:   make(map[string]int),
		ByEngine:   make(map[string]int),
		ByFuel:     make(map[string]int),
		ByDrive:    make(map[string]int),
		ByLocation: make(map[string]int),
		Missing:    make(map[string]int),
	}
	if len(listings) == 0 {
		return sum
	}
	sum.TotalListings = len(listings)

	var total float64
	priced, dated, driven := 0, 0, 0
	for _, l := range listings {
		sum.BySource[string(l.Source)]++

		if l.Price != nil {
			p := *l.Price
			if priced == 0 || p < sum.MinPrice {
				sum.MinPrice = p
			}
			if priced == 0 || p > sum.MaxPrice {
				sum.MaxPrice = p
			}
			total += p
			priced++
		} else {
			sum.Missing[FieldPrice]++
		}

		if l.ModelYear != nil {
			y := *l.ModelYear
			if dated == 0 || y < sum.MinYear {
				sum.MinYear = y
			}
			if dated == 0 || y > sum.MaxYear {
				sum.MaxYear = y
			}
			dated++
		} else {
			sum.Missing[FieldModelYear]++
		}

		if l.Mileage != nil {
			m := *l.Mileage
			if driven == 0 || m < sum.MinMileage {
				sum.MinMileage = m
			}
			if driven == 0 || m > sum.MaxMileage {
				sum.MaxMileage = m
			}
			driven++
		} else {
			sum.Missing[FieldMileage]++
		}

		if l.Horsepower == nil {
			sum.Missing[FeatureHorsepower]++
		}
		if l.EngineCode != "" && normalize.ExtractEngineCode(l.ModelVariantOriginal) == "" {
			sum.InferredEngines++
		}

		countOrMissing(sum.ByEngine, sum.Missing, FactorEngineCode, l.EngineCode)
		countOrMissing(sum.ByFuel, sum.Missing, FieldFuelType, l.FuelType)
		countOrMissing(sum.ByDrive, sum.Missing, FieldDrivingType, l.DrivingType)
		countOrMissing(sum.ByLocation, sum.Missing, FieldLocation, l.Location)
		if l.Transmission == "" {
			sum.Missing[FieldTransmission]++
		}
		if l.Color == "" {
			sum.Missing[FieldColor]++
		}
	}

	if priced > 0 {
		sum.AveragePrice = math.Round(total / float64(priced))
	}
	s.logger.Debug("[insights] Summarized %d listings from %d sources", sum.TotalListings, len(sum.BySource))
	return sum
}

func countOrMissing(counts, missing map[string]int, field, value string) {
	if value == "" {
		missing[field]++
		return
	}
	counts[value]++
}

// PrintSummary renders a dataset summary.
func (s *InsightService) PrintSummary(title string, r *models.DatasetSummary) {
	s.banner(title)

	s.section("Overview")
	fmt.Fprintf(s.out, "  Total listings : %s\n", valueStyle.Render(fmt.Sprint(r.TotalListings)))
	if r.TotalListings > 0 {
		fmt.Fprintf(s.out, "  Price range    : %s - %s SEK\n", formatSEK(r.MinPrice), formatSEK(r.MaxPrice))
		fmt.Fprintf(s.out, "  Average price  : %s SEK\n", goodStyle.Render(formatSEK(r.AveragePrice)))
		fmt.Fprintf(s.out, "  Model years    : %d - %d\n", r.MinYear, r.MaxYear)
		fmt.Fprintf(s.out, "  Mileage range  : %s - %s km\n", formatInt(int64(r.MinMileage)), formatInt(int64(r.MaxMileage)))
		fmt.Fprintf(s.out, "  Inferred engine codes : %d\n", r.InferredEngines)
	}
	fmt.Fprintln(s.out)

	s.printCounts("By source", r.BySource, false)
	s.printCounts("Engine code distribution", r.ByEngine, false)
	s.printCounts("Fuel type distribution", r.ByFuel, false)
	s.printCounts("Driving type distribution", r.ByDrive, false)
	s.printCounts("Listings by location", r.ByLocation, true)

	s.section("Missing values")
	if len(r.Missing) == 0 {
		fmt.Fprintln(s.out, "  None")
	} else {
		for _, kv := range sortedCounts(r.Missing) {
			fmt.Fprintf(s.out, "  %-20s %d\n", kv.key, kv.count)
		}
	}
	fmt.Fprintln(s.out)
}

// PrintDedup renders the duplicate diagnostics of a reconciliation run.
func (s *InsightService) PrintDedup(r DedupReport) {
	s.section("Duplicate analysis")
	fmt.Fprintf(s.out, "  %d registration numbers appear more than once, %d on multiple sites\n",
		r.DuplicateKeys, r.CrossSourceKeys)
	for _, g := range r.Groups {
		sources := make([]string, len(g.Entries))
		for i, e := range g.Entries {
			sources[i] = string(e.Source)
		}
		fmt.Fprintf(s.out, "  %s (on %s):\n", valueStyle.Render(g.Key), strings.Join(sources, ", "))
		for _, e := range g.Entries {
			price, year := "N/A", "N/A"
			if e.Price != nil {
				price = formatSEK(*e.Price) + " SEK"
			}
			if e.ModelYear != nil {
				year = fmt.Sprint(*e.ModelYear)
			}
			fmt.Fprintf(s.out, "    [%-12s] Price: %s | Year: %s\n", e.Source, price, year)
		}
	}
	if more := r.CrossSourceKeys - len(r.Groups); more > 0 {
		fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("  ... and %d more", more)))
	}
	fmt.Fprintf(s.out, "  Removed %d duplicate records (policy %s), %d without registration\n\n",
		r.Removed, r.Policy, r.MissingKey)
}

// PrintComparison renders the fit statistics of both models.
func (s *InsightService) PrintComparison(c ModelComparison) {
	s.section("Model comparison")
	fmt.Fprintf(s.out, "  Observations        : %d (%d rows without prediction)\n", c.Observations, c.DroppedRows)
	fmt.Fprintf(s.out, "  Linear R²           : %s\n", valueStyle.Render(fmt.Sprintf("%.4f", c.Linear.RSquared)))
	fmt.Fprintf(s.out, "  Log-Linear R² (log) : %s\n", valueStyle.Render(fmt.Sprintf("%.4f", c.Log.RSquaredLog)))
	fmt.Fprintf(s.out, "  Log-Linear R² (SEK) : %s\n", valueStyle.Render(fmt.Sprintf("%.4f", c.Log.RSquaredPrice)))
	fmt.Fprintf(s.out, "  Linear RMSE         : %s SEK\n\n", formatSEK(c.Linear.RMSE))
}

// PrintTopDeals renders the first n ranked deals.
func (s *InsightService) PrintTopDeals(rows []models.DealRow, n int) {
	s.banner(fmt.Sprintf("TOP %d BEST DEALS", n))
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "  No scored listings")
		return
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	for i, r := range rows {
		fmt.Fprintf(s.out, "%s %s - %s (%d)\n", valueStyle.Render(fmt.Sprintf("%d.", i+1)), r.Registration, r.Engine, r.Year)
		fmt.Fprintf(s.out, "   Price: %s SEK\n", formatSEK(r.ActualPrice))
		fmt.Fprintf(s.out, "   Fair value: %s SEK\n", formatInt(r.PredictedPrice))
		fmt.Fprintf(s.out, "   Discount: %s (%s SEK) %s\n",
			discountStyle(r.DiscountPct).Render(fmt.Sprintf("%.1f%%", r.DiscountPct)),
			formatInt(r.DiscountSEK), mutedStyle.Render(DealLabel(r.DiscountPct)))
		fmt.Fprintf(s.out, "   Mileage: %s km\n\n", formatInt(int64(r.Mileage)))
	}
}

// PrintComparables renders a comparable search with deltas against the target.
func (s *InsightService) PrintComparables(target *models.ScoredListing, comps []models.Comparable) {
	s.banner("COMPARABLE CARS: " + target.Registration)
	fmt.Fprintf(s.out, "  %s | %s | %s km | %s SEK", yearText(target.ModelYear), target.EngineCode,
		formatInt(int64(derefInt(target.Mileage))), formatSEK(deref(target.Price)))
	if target.DiscountPct != nil {
		fmt.Fprintf(s.out, " | %s (%s)", discountStyle(*target.DiscountPct).Render(fmt.Sprintf("%.1f%%", *target.DiscountPct)),
			DealLabel(*target.DiscountPct))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out)

	if len(comps) == 0 {
		fmt.Fprintln(s.out, "  No comparable listings")
		return
	}
	header := fmt.Sprintf("  %-4s %-8s %-5s %-6s %-15s %10s %12s %9s %9s %10s",
		"#", "Reg", "Year", "Engine", "Fuel", "Mileage", "Price", "Discount", "Price Δ%", "Similarity")
	fmt.Fprintln(s.out, sectionStyle.Render(header))
	for i, c := range comps {
		d := Delta(target, c)
		fmt.Fprintf(s.out, "  %-4d %-8s %-5s %-6s %-15s %10s %12s %8.1f%% %+8.1f%% %10.0f\n",
			i+1, c.Registration, yearText(c.ModelYear), c.EngineCode, truncate(c.FuelType, 15),
			formatInt(int64(derefInt(c.Mileage))), formatSEK(deref(c.Price)),
			deref(c.DiscountPct), d.PriceDiffPct, c.SimilarityScore)
	}
	fmt.Fprintln(s.out)
}

func (s *InsightService) banner(title string) {
	sep := strings.Repeat("═", 60)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, titleStyle.Render(sep))
	fmt.Fprintln(s.out, titleStyle.Render("  "+title))
	fmt.Fprintln(s.out, titleStyle.Render(sep))
	fmt.Fprintln(s.out)
}

func (s *InsightService) section(title string) {
	fmt.Fprintln(s.out, sectionStyle.Render("  "+title))
	fmt.Fprintf(s.out, "  %s\n", strings.Repeat("─", 54))
}

func (s *InsightService) printCounts(title string, counts map[string]int, bars bool) {
	s.section(title)
	if len(counts) == 0 {
		fmt.Fprintln(s.out, "  No data")
	}
	for _, kv := range sortedCounts(counts) {
		if bars {
			fmt.Fprintf(s.out, "  %-30s %s (%d)\n", truncate(kv.key, 28), strings.Repeat("█", min(kv.count, 40)), kv.count)
			continue
		}
		fmt.Fprintf(s.out, "  %-30s %d\n", truncate(kv.key, 28), kv.count)
	}
	fmt.Fprintln(s.out)
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func discountStyle(pct float64) lipgloss.Style {
	if pct > 0 {
		return goodStyle
	}
	return badStyle
}

// formatSEK renders a whole-currency amount with space thousands separators.
func formatSEK(v float64) string {
	return formatInt(int64(math.Round(v)))
}

func formatInt(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := fmt.Sprint(v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

func yearText(y *int) string {
	if y == nil {
		return "N/A"
	}
	return fmt.Sprint(*y)
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
