package views

import (
	"sort"

	"palatlas-go/internal/types"
)

const (
	ratingBins       = 10
	minDensityPoints = 5
	wordCloudSize    = 40
	topRatedSize     = 5
)

// BuildPlaceRatings buckets every numeric rating into 10 equal-width bins
// spanning [min, max].
func BuildPlaceRatings(in Input) (any, bool) {
	var ratings []float64
	for _, p := range in.Places {
		if r, ok := p.Rating.Get(); ok {
			ratings = append(ratings, r)
		}
	}
	if len(ratings) == 0 {
		return nil, false
	}
	return Histogram{
		Kind:  "histogram",
		Title: title("Place Ratings Distribution", in.Locality),
		XAxis: "Rating",
		YAxis: "Number of Places",
		Bins:  bucket(ratings, ratingBins),
	}, true
}

func bucket(values []float64, n int) []Bin {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[n-1].Upper = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins
}

// BuildPlaceCategories keeps the 12 most frequent place tags.
func BuildPlaceCategories(in Input) (any, bool) {
	return categoryChart(in.Places, 12, "bar", title("Place Categories", in.Locality), "Number of Places")
}

// BuildBusinessDensity plots rating against tag count for rated places.
func BuildBusinessDensity(in Input) (any, bool) {
	g := PointGroup{}
	for _, p := range in.Places {
		r, ok := p.Rating.Get()
		if !ok {
			continue
		}
		g.Points = append(g.Points, Point{X: float64(len(p.Tags)), Y: r, Label: p.Name, Value: r})
	}
	if len(g.Points) < minDensityPoints {
		return nil, false
	}
	return Scatter{
		Kind:   "scatter",
		Title:  title("Business Quality vs. Category Diversity", in.Locality),
		XAxis:  "Number of Categories/Tags",
		YAxis:  "Business Rating",
		Groups: []PointGroup{g},
	}, true
}

type categoryStat struct {
	count int
	sum   float64
	rated int
}

// BuildCompetition reports, per primary category, the number of places and
// the mean of the ratings that are present (0 when none are).
func BuildCompetition(in Input) (any, bool) {
	if len(in.Places) == 0 {
		return nil, false
	}
	var order []string
	stats := map[string]*categoryStat{}
	for _, p := range in.Places {
		cat := types.PrimaryTagCategory(p.Tags, otherCategory)
		st, ok := stats[cat]
		if !ok {
			st = &categoryStat{}
			stats[cat] = st
			order = append(order, cat)
		}
		st.count++
		if r, ok := p.Rating.Get(); ok {
			st.sum += r
			st.rated++
		}
	}
	g := PointGroup{}
	for _, cat := range order {
		st := stats[cat]
		avg := 0.0
		if st.rated > 0 {
			avg = st.sum / float64(st.rated)
		}
		g.Points = append(g.Points, Point{
			X:     float64(st.count),
			Y:     avg,
			Label: cat,
			Size:  float64(st.count * 2),
		})
	}
	return Scatter{
		Kind:   "bubble",
		Title:  title("Market Competition Analysis", in.Locality),
		XAxis:  "Number of Competitors",
		YAxis:  "Average Rating",
		Groups: []PointGroup{g},
	}, true
}

// BuildTopRatedPlaces lists the five best rated places with their primary
// category. Ties keep fetch order.
func BuildTopRatedPlaces(in Input) (any, bool) {
	var out []RatedPlace
	for _, p := range in.Places {
		if r, ok := p.Rating.Get(); ok {
			out = append(out, RatedPlace{Name: p.Name, Rating: r, Category: types.PrimaryTagCategory(p.Tags, "General")})
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > topRatedSize {
		out = out[:topRatedSize]
	}
	return out, true
}

// BuildKeywordWordCloud merges place tags and keywords and keeps the 40 most
// frequent words. Positions and colors only serve the layout.
func BuildKeywordWordCloud(in Input) (any, bool) {
	tally := types.NewTally()
	for _, p := range in.Places {
		for _, w := range p.Tags {
			tally.Add(w)
		}
		for _, w := range p.Keywords {
			tally.Add(w)
		}
	}
	if tally.Len() == 0 {
		return nil, false
	}
	rng := seeded(in.Locality, KeywordWordCloud)
	g := PointGroup{}
	for _, cc := range tally.Top(wordCloudSize) {
		g.Points = append(g.Points, Point{
			X:     rng.Float64(),
			Y:     rng.Float64(),
			Label: cc.Category,
			Size:  float64(cc.Count) * 1.5,
			Color: hsl(rng.IntN(360)),
			Value: float64(cc.Count),
		})
	}
	return Scatter{
		Kind:   "text",
		Title:  title("Common Business Tags", in.Locality),
		Groups: []PointGroup{g},
	}, true
}
