package aggregator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palatlas-go/internal/types"
)

func brand(name string, pop float64, tags ...string) types.Entity {
	return types.Entity{Name: name, Kind: types.KindBrand, Popularity: types.Some(pop), Tags: tags}
}

func place(name string, rating types.Optional[float64], tags ...string) types.Entity {
	return types.Entity{Name: name, Kind: types.KindPlace, Rating: rating, Tags: tags}
}

func TestAggregate_CategoryTallyCountsAllTags(t *testing.T) {
	s := Aggregate(Input{Brands: []types.Entity{
		brand("one", 0.1, "a", "b"),
		brand("two", 0.2, "a"),
	}})

	assert.Equal(t, 2, s.BrandCategories.Count("a"))
	assert.Equal(t, 1, s.BrandCategories.Count("b"))
	assert.Equal(t, 2, s.BrandCategories.Len())
}

func TestAggregate_TopRatedExcludesMissingRatings(t *testing.T) {
	places := []types.Entity{
		place("p1", types.Some(4.5)),
		place("p2", types.None[float64]()),
		place("p3", types.Some(3.2)),
		place("p4", types.Some(4.9)),
	}
	s := Aggregate(Input{Places: places})

	require.Len(t, s.TopRatedPlaces, 3)
	assert.Equal(t, 4.9, s.TopRatedPlaces[0].MetricValue)
	assert.Equal(t, 4.5, s.TopRatedPlaces[1].MetricValue)
	assert.Equal(t, 3.2, s.TopRatedPlaces[2].MetricValue)

	assert.Equal(t, []types.RankedEntity{
		{Name: "p4", MetricValue: 4.9, TagsPreview: []string{}},
		{Name: "p1", MetricValue: 4.5, TagsPreview: []string{}},
	}, TopRated(places, 2))
}

func TestTopRated_StableTies(t *testing.T) {
	got := TopRated([]types.Entity{
		place("first", types.Some(4.0), "x", "y", "z"),
		place("second", types.Some(4.0)),
		place("third", types.Some(4.8)),
	}, 5)

	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Name)
	assert.Equal(t, "first", got[1].Name)
	assert.Equal(t, "second", got[2].Name)
	assert.Equal(t, []string{"x", "y"}, got[1].TagsPreview)
}

func TestAggregate_SampleCapBoundsTalliesAndTopRated(t *testing.T) {
	var places, brands []types.Entity
	for i := 0; i < 25; i++ {
		places = append(places, place(fmt.Sprintf("p%d", i), types.Some(float64(i)/10), "cat"))
		brands = append(brands, brand(fmt.Sprintf("b%d", i), float64(i)/100, "tag"))
	}

	s := Aggregate(Input{Brands: brands, Places: places})

	assert.Equal(t, 25, s.PlacesCount)
	assert.Len(t, s.Places, DefaultSampleCap)
	assert.Len(t, s.Brands, DefaultSampleCap)
	assert.Equal(t, 20, s.PlaceCategories.Count("cat"))
	assert.Equal(t, 20, s.BrandCategories.Count("tag"))

	// top rated only sees the sampled prefix (p0..p19)
	assert.Equal(t, "p19", s.TopRatedPlaces[0].Name)
	// popular brands rank the full collection (b0..b24)
	require.Len(t, s.PopularBrands, TopK)
	assert.Equal(t, "b24", s.PopularBrands[0].Name)
}

func TestMostPopular_AbsentCountsAsZero(t *testing.T) {
	got := MostPopular([]types.Entity{
		{Name: "none", Popularity: types.None[float64]()},
		brand("some", 0.4),
	}, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "some", got[0].Name)
	assert.Equal(t, 0.0, got[1].MetricValue)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(Input{City: "Nowhere", Country: "XX"})
	assert.Empty(t, s.TopRatedPlaces)
	assert.Empty(t, s.PopularBrands)
	assert.Equal(t, 0, s.BrandCategories.Len())
	assert.Equal(t, "Nowhere", s.City)
}
