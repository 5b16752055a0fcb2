package views

// The generators in this file estimate signals the insights API does not
// provide (opening hours, price level, coordinates, seasonality). Their
// payloads are marked Simulated. Any randomness is drawn from a source
// seeded by the locality name, so the same locality and entity set always
// produce the same output.

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"

	"palatlas-go/internal/types"
)

// Base coordinates for simulated positions.
const (
	baseLat      = 40.7128
	baseLng      = -74.0060
	coordSpread  = 0.01
	neutralScore = 3.0
)

func seeded(locality, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(locality))))
	s := fnv.New64a()
	s.Write([]byte(salt))
	return rand.New(rand.NewPCG(h.Sum64(), s.Sum64()))
}

func hsl(hue int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", hue)
}

// tagText joins lowercased tags for keyword matching.
func tagText(tags []string) string {
	return strings.ToLower(strings.Join(tags, " "))
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// EstimateOpeningHours maps a place's tags to the hours it is assumed open.
func EstimateOpeningHours(tags []string) (from, to int) {
	text := tagText(tags)
	switch {
	case containsAny(text, "restaurant", "cafe", "bar", "food"):
		return 6, 23
	case containsAny(text, "shop", "store", "retail"):
		return 9, 20
	case containsAny(text, "office", "business", "professional"):
		return 8, 18
	default:
		return 9, 18
	}
}

// BuildBusinessHours accumulates estimated open hours into a 24-hour histogram.
func BuildBusinessHours(in Input) (any, bool) {
	if len(in.Places) == 0 {
		return nil, false
	}
	var counts [24]float64
	for _, p := range in.Places {
		from, to := EstimateOpeningHours(p.Tags)
		for h := from; h < to; h++ {
			counts[h]++
		}
	}
	s := Series{Labels: make([]string, 24), Values: counts[:]}
	for h := range s.Labels {
		s.Labels[h] = fmt.Sprintf("%02d:00", h)
	}
	return Chart{
		Kind:      "bar",
		Title:     title("Business Activity Patterns", in.Locality),
		XAxis:     "Hour of Day",
		YAxis:     "Active Businesses",
		Series:    []Series{s},
		Simulated: true,
	}, true
}

// EstimatePriceLevel derives a level in [1, 5] from tags and rating.
// An absent rating counts as neutral.
func EstimatePriceLevel(tags []string, rating types.Optional[float64]) float64 {
	text := tagText(tags)
	base := 2.0
	switch {
	case containsAny(text, "luxury", "premium", "high-end"):
		base = 4
	case containsAny(text, "restaurant", "cafe", "bar"):
		base = 3
	}
	level := base + (rating.OrElse(neutralScore)-neutralScore)*0.5
	return min(5, max(1, level))
}

var priceTiers = []string{"Budget ($)", "Moderate ($$)", "Premium ($$$)", "Luxury ($$$$)"}

func priceTier(level float64) int {
	switch {
	case level <= 2:
		return 0
	case level <= 3.5:
		return 1
	case level <= 4.5:
		return 2
	default:
		return 3
	}
}

// BuildPriceRange buckets estimated price levels into four tiers.
func BuildPriceRange(in Input) (any, bool) {
	if len(in.Places) == 0 {
		return nil, false
	}
	counts := make([]float64, len(priceTiers))
	for _, p := range in.Places {
		counts[priceTier(EstimatePriceLevel(p.Tags, p.Rating))]++
	}
	return Chart{
		Kind:      "donut",
		Title:     title("Price Range Distribution", in.Locality),
		Series:    []Series{{Labels: append([]string(nil), priceTiers...), Values: counts}},
		Simulated: true,
	}, true
}

// BuildGeographicDistribution scatters places around a base point with
// offsets seeded by the locality, grouped by primary category.
func BuildGeographicDistribution(in Input) (any, bool) {
	if len(in.Places) == 0 {
		return nil, false
	}
	rng := seeded(in.Locality, GeographicDistribution)
	var order []string
	groups := map[string]*PointGroup{}
	for _, p := range in.Places {
		cat := types.PrimaryTagCategory(p.Tags, otherCategory)
		latOffset := (rng.Float64()*2 - 1) * coordSpread
		lngOffset := (rng.Float64()*2 - 1) * coordSpread
		g, ok := groups[cat]
		if !ok {
			g = &PointGroup{Name: cat, Color: colorAt(len(order))}
			groups[cat] = g
			order = append(order, cat)
		}
		r := p.Rating.OrElse(neutralScore)
		g.Points = append(g.Points, Point{
			X:     baseLng + lngOffset,
			Y:     baseLat + latOffset,
			Label: p.Name,
			Size:  max(1, r*3),
			Value: r,
		})
	}
	out := Scatter{
		Kind:      "geo",
		Title:     title("Business Geographic Distribution", in.Locality),
		XAxis:     "Longitude",
		YAxis:     "Latitude",
		Simulated: true,
	}
	for _, cat := range order {
		out.Groups = append(out.Groups, *groups[cat])
	}
	return out, true
}

var seasons = []struct {
	name        string
	floor, span float64
}{
	{"Spring", 0.9, 0.2},
	{"Summer", 1.0, 0.3},
	{"Fall", 0.8, 0.2},
	{"Winter", 0.7, 0.2},
}

// EstimateActivity is the base seasonal activity score for a place.
func EstimateActivity(tags []string) float64 {
	text := tagText(tags)
	switch {
	case containsAny(text, "restaurant", "cafe", "bar"):
		return 0.8
	case containsAny(text, "hotel", "accommodation"):
		return 0.9
	case containsAny(text, "outdoor", "park", "beach"):
		return 0.6
	default:
		return 0.7
	}
}

// BuildSeasonal averages jittered activity per season.
func BuildSeasonal(in Input) (any, bool) {
	if len(in.Places) == 0 {
		return nil, false
	}
	rng := seeded(in.Locality, SeasonalAnalysis)
	sums := make([]float64, len(seasons))
	for _, p := range in.Places {
		base := EstimateActivity(p.Tags)
		for i, s := range seasons {
			sums[i] += base * (s.floor + s.span*rng.Float64())
		}
	}
	series := Series{}
	for i, s := range seasons {
		series.Labels = append(series.Labels, s.name)
		series.Values = append(series.Values, sums[i]/float64(len(in.Places)))
	}
	return Chart{
		Kind:      "area",
		Title:     title("Seasonal Business Activity", in.Locality),
		XAxis:     "Season",
		YAxis:     "Activity Level",
		Series:    []Series{series},
		Simulated: true,
	}, true
}
