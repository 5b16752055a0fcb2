package normalizer

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palatlas-go/internal/types"
)

func raw(t *testing.T, s string) types.RawEntity {
	t.Helper()
	var r types.RawEntity
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return r
}

func TestNormalize_FullPlace(t *testing.T) {
	e := Normalize(raw(t, `{
		"entity_id": "abc",
		"name": "Time Out Market",
		"popularity": 0.93,
		"tags": [{"name": "Food Hall", "id": "t1"}, {"name": ""}, {"name": "Market"}],
		"properties": {
			"business_rating": "4.6",
			"address": "Av. 24 de Julho",
			"keywords": [{"name": "seafood"}, {"name": "crowded"}],
			"price_level": 2
		}
	}`), types.KindPlace)

	assert.Equal(t, "abc", e.ID)
	assert.Equal(t, "Time Out Market", e.Name)
	assert.Equal(t, types.KindPlace, e.Kind)
	assert.Equal(t, types.Some(4.6), e.Rating)
	assert.Equal(t, types.Some(0.93), e.Popularity)
	assert.Equal(t, []string{"Food Hall", "Market"}, e.Tags)
	assert.Equal(t, []string{"seafood", "crowded"}, e.Keywords)
	assert.Equal(t, types.Some(2.0), e.PriceSignal)
	assert.Equal(t, "Av. 24 de Julho", e.Address)
}

func TestNormalize_Fallbacks(t *testing.T) {
	cases := map[string]string{
		"empty":          `{}`,
		"null name":      `{"name": null, "properties": null, "tags": null}`,
		"blank name":     `{"name": "   ", "tags": "not-a-list"}`,
		"numeric name":   `{"name": 42, "properties": {"business_rating": "N/A"}}`,
		"garbage rating": `{"properties": {"business_rating": "four"}, "popularity": "high"}`,
	}
	for label, body := range cases {
		t.Run(label, func(t *testing.T) {
			e := Normalize(raw(t, body), types.KindBrand)
			assert.NotEmpty(t, e.Name)
			if label != "numeric name" {
				assert.Equal(t, types.UnknownName, e.Name)
			}
			assert.False(t, e.Rating.Present())
			assert.False(t, e.Popularity.Present())
			assert.NotNil(t, e.Tags)
			assert.Empty(t, e.Tags)
		})
	}
}

func TestNormalize_NumericRatingAndStringPopularity(t *testing.T) {
	e := Normalize(raw(t, `{"name":"A","popularity":"0.5","properties":{"business_rating":3}}`), types.KindPlace)
	assert.Equal(t, types.Some(3.0), e.Rating)
	assert.Equal(t, types.Some(0.5), e.Popularity)
}

func TestNormalize_PopularityNotClamped(t *testing.T) {
	e := Normalize(raw(t, `{"name":"A","popularity":1.7}`), types.KindBrand)
	assert.Equal(t, types.Some(1.7), e.Popularity)
}

func TestNormalize_NonFiniteStringIsAbsent(t *testing.T) {
	e := Normalize(raw(t, `{"properties":{"business_rating":"NaN"}}`), types.KindPlace)
	v, ok := e.Rating.Get()
	assert.False(t, ok)
	assert.False(t, math.IsNaN(v))
}

func TestNormalize_Idempotent(t *testing.T) {
	r := raw(t, `{"name":"X","tags":[{"name":"a"}],"properties":{"business_rating":"4.1"}}`)
	assert.Equal(t, Normalize(r, types.KindPlace), Normalize(r, types.KindPlace))
}

func TestNormalizeAll_AbsentCollection(t *testing.T) {
	out := NormalizeAll(nil, types.KindPlace)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestNormalize_PriceRangeFallback(t *testing.T) {
	e := Normalize(raw(t, `{"name":"A","properties":{"price_range":"3"}}`), types.KindPlace)
	assert.Equal(t, types.Some(3.0), e.PriceSignal)

	e = Normalize(raw(t, `{"name":"A","properties":{"price_range":"N/A"}}`), types.KindPlace)
	assert.False(t, e.PriceSignal.Present())
}

func TestDescribe(t *testing.T) {
	e := types.Entity{Name: "A", Kind: types.KindPlace, Rating: types.Some(4.3), Tags: []string{"x"}}
	assert.Equal(t, "A [place] rating=4.3 tags=1", Describe(e))
}
