package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"car-deal-finder/models"
	"car-deal-finder/services"
)

type listingView struct {
	Registration      string   `json:"registration"`
	Row               int      `json:"row"`
	Source            string   `json:"source"`
	Price             *float64 `json:"price"`
	ModelYear         *int     `json:"model_year"`
	Mileage           *int     `json:"mileage"`
	Horsepower        *int     `json:"horsepower"`
	Age               *int     `json:"age"`
	EngineCode        string   `json:"engine_code,omitempty"`
	FuelType          string   `json:"fuel_type,omitempty"`
	Transmission      string   `json:"transmission,omitempty"`
	DrivingType       string   `json:"driving_type,omitempty"`
	Color             string   `json:"color,omitempty"`
	Location          string   `json:"location,omitempty"`
	FranchiseApproved bool     `json:"franchise_approved"`
	ModelVariant      string   `json:"model_variant,omitempty"`
	URL               string   `json:"url,omitempty"`
	PredictedLinear   *float64 `json:"predicted_linear"`
	PredictedPriceLog *float64 `json:"predicted_price_log"`
	DiscountSEK       *float64 `json:"discount_sek"`
	DiscountPct       *float64 `json:"discount_pct"`
	DealLabel         string   `json:"deal_label,omitempty"`
}

type comparableView struct {
	Listing    listingView              `json:"listing"`
	Distance   float64                  `json:"distance"`
	Similarity float64                  `json:"similarity"`
	Delta      services.ComparableDelta `json:"delta"`
}

type comparablesResponse struct {
	Target      listingView      `json:"target"`
	Comparables []comparableView `json:"comparables"`
}

type listingsResponse struct {
	Total    int           `json:"total"`
	Listings []listingView `json:"listings"`
}

func newListingView(s *models.ScoredListing) listingView {
	v := listingView{
		Registration:      s.Registration,
		Row:               s.Row,
		Source:            string(s.Source),
		Price:             s.Price,
		ModelYear:         s.ModelYear,
		Mileage:           s.Mileage,
		Horsepower:        s.Horsepower,
		Age:               s.Age,
		EngineCode:        s.EngineCode,
		FuelType:          s.FuelType,
		Transmission:      s.Transmission,
		DrivingType:       s.DrivingType,
		Color:             s.Color,
		Location:          s.Location,
		FranchiseApproved: s.FranchiseApproved,
		ModelVariant:      s.ModelVariantOriginal,
		URL:               s.URL,
		PredictedLinear:   s.PredictedLinear,
		PredictedPriceLog: s.PredictedPriceLog,
		DiscountSEK:       s.DiscountSEK,
		DiscountPct:       s.DiscountPct,
	}
	if s.DiscountPct != nil {
		v.DealLabel = services.DealLabel(*s.DiscountPct)
	}
	return v
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"status":   "ok",
		"listings": len(s.analysis.Scored),
		"scored":   len(s.analysis.Ranked),
	})
}

func (s *Server) handleSummary(c echo.Context) error {
	return success(c, s.analysis.Summary())
}

// handleListings returns the scored table in table order. ?scored=true
// leaves out rows without a prediction.
func (s *Server) handleListings(c echo.Context) error {
	scoredOnly := false
	if raw := strings.TrimSpace(c.QueryParam("scored")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return failValidation(c, map[string]string{"scored": "must be true or false"})
		}
		scoredOnly = v
	}

	views := make([]listingView, 0, len(s.analysis.Scored))
	for _, l := range s.analysis.Scored {
		if scoredOnly && !l.Scored() {
			continue
		}
		views = append(views, newListingView(l))
	}
	return success(c, listingsResponse{Total: len(views), Listings: views})
}

func (s *Server) handleListing(c echo.Context) error {
	l, ok := s.analysis.Listing(c.Param("registration"))
	if !ok {
		return failNotFound(c, "Listing not found")
	}
	return success(c, newListingView(l))
}

func (s *Server) handleDeals(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), s.opts.DealLimit, 1, maxDealLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	return success(c, s.analysis.Deals(limit))
}

func (s *Server) handleComparables(c echo.Context) error {
	n, err := parsePositiveInt(c.QueryParam("n"), s.opts.ComparableLimit, 1, maxComparableLimit)
	if err != nil {
		return failValidation(c, map[string]string{"n": err.Error()})
	}

	registration := c.Param("registration")
	target, ok := s.analysis.Listing(registration)
	if !ok {
		return failNotFound(c, "Listing not found")
	}
	comps, err := s.analysis.Comparables(registration, n)
	if errors.Is(err, services.ErrListingNotFound) {
		return fail(c, http.StatusUnprocessableEntity, "Listing has no fair-value prediction", nil)
	}
	if err != nil {
		return err
	}

	resp := comparablesResponse{
		Target:      newListingView(target),
		Comparables: make([]comparableView, 0, len(comps)),
	}
	for _, cmp := range comps {
		resp.Comparables = append(resp.Comparables, comparableView{
			Listing:    newListingView(cmp.ScoredListing),
			Distance:   cmp.Distance,
			Similarity: cmp.SimilarityScore,
			Delta:      services.Delta(target, cmp),
		})
	}
	return success(c, resp)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
