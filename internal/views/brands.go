package views

import (
	"context"
	"math"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/types"
)

const otherCategory = "Other"

// BuildBrandPopularity lists every brand with popularity as a percentage,
// in fetch order. Sorting for display is left to the client.
func BuildBrandPopularity(in Input) (any, bool) {
	if len(in.Brands) == 0 {
		return nil, false
	}
	s := Series{Labels: make([]string, 0, len(in.Brands)), Values: make([]float64, 0, len(in.Brands))}
	for _, b := range in.Brands {
		s.Labels = append(s.Labels, b.Name)
		s.Values = append(s.Values, b.Popularity.OrElse(0)*100)
	}
	return Chart{
		Kind:   "bar",
		Title:  title("Brand Popularity", in.Locality),
		XAxis:  "Popularity (%)",
		YAxis:  "Brands",
		Series: []Series{s},
	}, true
}

// BuildBrandCategories keeps the 8 most frequent brand tags.
func BuildBrandCategories(in Input) (any, bool) {
	return categoryChart(in.Brands, 8, "donut", title("Brand Categories", in.Locality), "")
}

// BuildBrandTrend groups brands by primary tag, one series per group with
// at most 10 members in fetch order.
func BuildBrandTrend(in Input) (any, bool) {
	var order []string
	groups := map[string]*Series{}
	for _, b := range in.Brands {
		cat := types.PrimaryTagCategory(b.Tags, otherCategory)
		s, ok := groups[cat]
		if !ok {
			s = &Series{Name: cat}
			groups[cat] = s
			order = append(order, cat)
		}
		if len(s.Labels) < 10 {
			s.Labels = append(s.Labels, b.Name)
			s.Values = append(s.Values, b.Popularity.OrElse(0)*100)
		}
	}
	if len(order) == 0 {
		return nil, false
	}
	c := Chart{
		Kind:  "line",
		Title: title("Brand Trend Analysis", in.Locality),
		XAxis: "Brands",
		YAxis: "Popularity (%)",
	}
	for _, cat := range order {
		c.Series = append(c.Series, *groups[cat])
	}
	return c, true
}

type Locality struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// BrandSource fetches normalized brands for one locality.
type BrandSource interface {
	Brands(ctx context.Context, city, country string, limit int) ([]types.Entity, error)
}

// BuildCityComparison fetches each locality independently and compares mean
// brand popularity. Localities that fail or return nothing are skipped.
func BuildCityComparison(ctx context.Context, src BrandSource, locs []Locality, limit int, log *logger.Logger) (Chart, bool) {
	log = log.Component("views")
	s := Series{}
	for _, loc := range locs {
		brands, err := src.Brands(ctx, loc.City, loc.Country, limit)
		if err != nil {
			log.WithField("city", loc.City).WithField("error", err.Error()).Warn("comparison locality skipped")
			continue
		}
		if len(brands) == 0 {
			continue
		}
		var sum float64
		for _, b := range brands {
			sum += b.Popularity.OrElse(0) * 100
		}
		mean := sum / float64(len(brands))
		if math.IsInf(mean, 0) || math.IsNaN(mean) {
			log.WithField("city", loc.City).Warn("comparison locality skipped, popularity out of range")
			continue
		}
		s.Labels = append(s.Labels, loc.City)
		s.Values = append(s.Values, mean)
	}
	if len(s.Labels) == 0 {
		return Chart{}, false
	}
	return Chart{
		Kind:   "bar",
		Title:  "Average Brand Popularity Comparison Across Cities",
		XAxis:  "City",
		YAxis:  "Average Brand Popularity (%)",
		Series: []Series{s},
	}, true
}

// categoryChart tallies every tag of every entity and keeps the top n.
func categoryChart(entities []types.Entity, n int, kind, chartTitle, xAxis string) (any, bool) {
	tally := types.NewTally()
	for _, e := range entities {
		for _, c := range types.AllTagsCategory(e.Tags) {
			tally.Add(c)
		}
	}
	if tally.Len() == 0 {
		return nil, false
	}
	s := Series{}
	for _, cc := range tally.Top(n) {
		s.Labels = append(s.Labels, cc.Category)
		s.Values = append(s.Values, float64(cc.Count))
	}
	return Chart{Kind: kind, Title: chartTitle, XAxis: xAxis, Series: []Series{s}}, true
}
