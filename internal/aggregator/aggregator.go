package aggregator

import (
	"sort"

	"palatlas-go/internal/types"
)

const (
	DefaultSampleCap = 20
	TopK             = 5
)

type Input struct {
	City      string
	Country   string
	Locality  string
	Brands    []types.Entity
	Places    []types.Entity
	SampleCap int
}

// Aggregate builds the bounded summary. Category tallies and top-rated
// places only see the first SampleCap entities of each collection;
// popular brands rank the full brand collection.
func Aggregate(in Input) types.Summary {
	sampleCap := in.SampleCap
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	brands := prefix(in.Brands, sampleCap)
	places := prefix(in.Places, sampleCap)

	s := types.Summary{
		City:            in.City,
		Country:         in.Country,
		Locality:        in.Locality,
		BrandsCount:     len(in.Brands),
		PlacesCount:     len(in.Places),
		Brands:          make([]types.BrandSample, 0, len(brands)),
		Places:          make([]types.PlaceSample, 0, len(places)),
		BrandCategories: types.NewTally(),
		PlaceCategories: types.NewTally(),
	}
	for _, b := range brands {
		s.Brands = append(s.Brands, types.BrandSample{
			Name:       b.Name,
			Popularity: b.Popularity,
			Categories: b.Tags,
		})
		for _, c := range types.AllTagsCategory(b.Tags) {
			s.BrandCategories.Add(c)
		}
	}
	for _, p := range places {
		s.Places = append(s.Places, types.PlaceSample{
			Name:        p.Name,
			Rating:      p.Rating,
			Categories:  p.Tags,
			PriceSignal: p.PriceSignal,
		})
		for _, c := range types.AllTagsCategory(p.Tags) {
			s.PlaceCategories.Add(c)
		}
	}
	s.TopRatedPlaces = TopRated(places, TopK)
	s.PopularBrands = MostPopular(in.Brands, TopK)
	return s
}

// TopRated ranks entities with a present rating, highest first. Ties keep
// fetch order.
func TopRated(entities []types.Entity, k int) []types.RankedEntity {
	rated := make([]types.RankedEntity, 0, len(entities))
	for _, e := range entities {
		r, ok := e.Rating.Get()
		if !ok {
			continue
		}
		rated = append(rated, ranked(e, r))
	}
	return topK(rated, k)
}

// MostPopular ranks every entity by popularity, absent popularity counting
// as zero.
func MostPopular(entities []types.Entity, k int) []types.RankedEntity {
	out := make([]types.RankedEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, ranked(e, e.Popularity.OrElse(0)))
	}
	return topK(out, k)
}

func ranked(e types.Entity, v float64) types.RankedEntity {
	return types.RankedEntity{Name: e.Name, MetricValue: v, TagsPreview: types.TagsPreview(e.Tags)}
}

func topK(list []types.RankedEntity, k int) []types.RankedEntity {
	sort.SliceStable(list, func(i, j int) bool { return list[i].MetricValue > list[j].MetricValue })
	if k > 0 && len(list) > k {
		list = list[:k]
	}
	return list
}

func prefix(list []types.Entity, n int) []types.Entity {
	if len(list) > n {
		return list[:n]
	}
	return list
}
