// Package views derives chart-ready payloads from one normalized snapshot.
//
// Every generator is a pure function of Input. A generator that finds its
// signal missing or too sparse reports ok=false and is left out of the
// result mapping. A generator that panics, or whose payload cannot be encoded,
// is logged and left out the same way, so one failure never suppresses the
// others.
package views

import (
	"encoding/json"
	"fmt"
	"time"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/metrics"
	"palatlas-go/internal/types"
)

const (
	BrandPopularity        = "brand_popularity"
	BrandCategories        = "brand_categories"
	PlaceRatings           = "place_ratings"
	PlaceCategories        = "place_categories"
	BusinessDensity        = "business_density"
	BusinessHours          = "business_hours"
	PriceRange             = "price_range"
	KeywordWordCloud       = "keyword_word_cloud"
	BrandTrendAnalysis     = "brand_trend_analysis"
	GeographicDistribution = "geographic_distribution"
	CompetitionAnalysis    = "competition_analysis"
	SeasonalAnalysis       = "seasonal_analysis"
	TopRatedPlaces         = "top_rated_places"
	CityComparison         = "city_comparison"
)

// Input is the shared, read-only snapshot every generator observes.
type Input struct {
	Locality string
	Brands   []types.Entity
	Places   []types.Entity
}

type Generator struct {
	Name  string
	Build func(Input) (any, bool)
}

// Results maps generator name to payload. Absent views have no key.
type Results map[string]any

// Registry lists the per-locality generators in response order.
func Registry() []Generator {
	return []Generator{
		{BrandPopularity, BuildBrandPopularity},
		{BrandCategories, BuildBrandCategories},
		{PlaceRatings, BuildPlaceRatings},
		{PlaceCategories, BuildPlaceCategories},
		{BusinessDensity, BuildBusinessDensity},
		{BusinessHours, BuildBusinessHours},
		{PriceRange, BuildPriceRange},
		{KeywordWordCloud, BuildKeywordWordCloud},
		{BrandTrendAnalysis, BuildBrandTrend},
		{GeographicDistribution, BuildGeographicDistribution},
		{CompetitionAnalysis, BuildCompetition},
		{SeasonalAnalysis, BuildSeasonal},
		{TopRatedPlaces, BuildTopRatedPlaces},
	}
}

// Generate runs the registry sequentially against in.
func Generate(in Input, log *logger.Logger) Results {
	return Run(Registry(), in, log)
}

func Run(gens []Generator, in Input, log *logger.Logger) Results {
	log = log.Component("views")
	out := Results{}
	for _, g := range gens {
		start := time.Now()
		payload, ok, err := safeBuild(g, in)
		if err == nil && ok {
			err = encodable(g.Name, payload)
		}
		entry := log.WithField("view", g.Name).WithField("duration_ms", time.Since(start).Milliseconds())
		switch {
		case err != nil:
			metrics.ViewResults.WithLabelValues(g.Name, "failed").Inc()
			entry.WithField("error", err.Error()).Error("view generator failed")
		case !ok:
			metrics.ViewResults.WithLabelValues(g.Name, "absent").Inc()
			entry.Debug("view skipped, insufficient data")
		default:
			metrics.ViewResults.WithLabelValues(g.Name, "produced").Inc()
			out[g.Name] = payload
		}
	}
	log.WithField("produced", len(out)).WithField("total", len(gens)).Info("views generated")
	return out
}

// encodable rejects payloads the response encoder cannot write, such as
// popularity scaled past the float64 range.
func encodable(name string, payload any) error {
	if _, err := json.Marshal(payload); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func safeBuild(g Generator, in Input) (payload any, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, ok, err = nil, false, fmt.Errorf("%s: %v", g.Name, r)
		}
	}()
	payload, ok = g.Build(in)
	return payload, ok, nil
}
