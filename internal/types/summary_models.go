// internal/types/summary_models.go
package types

import (
	"bytes"
	"encoding/json"
	"sort"
)

// --------------------------------------------
// Aggregated summary handed to the narrative
// --------------------------------------------
type Summary struct {
	City            string         `json:"city"`
	Country         string         `json:"country"`
	Locality        string         `json:"locality,omitempty"`
	BrandsCount     int            `json:"brands_count"`
	PlacesCount     int            `json:"places_count"`
	Brands          []BrandSample  `json:"brands"`
	Places          []PlaceSample  `json:"places"`
	BrandCategories *Tally         `json:"brand_categories"`
	PlaceCategories *Tally         `json:"place_categories"`
	TopRatedPlaces  []RankedEntity `json:"top_rated_places"`
	PopularBrands   []RankedEntity `json:"popular_brands"`
}

type BrandSample struct {
	Name       string            `json:"name"`
	Popularity Optional[float64] `json:"popularity"`
	Categories []string          `json:"categories"`
}

type PlaceSample struct {
	Name        string            `json:"name"`
	Rating      Optional[float64] `json:"rating"`
	Categories  []string          `json:"categories"`
	PriceSignal Optional[float64] `json:"price_range"`
}

// --------------------------------------------
// Ranked entry (top-K lists)
// --------------------------------------------
type RankedEntity struct {
	Name        string   `json:"name"`
	MetricValue float64  `json:"metric_value"`
	TagsPreview []string `json:"tags_preview"`
}

// TagsPreview returns at most the first two tags.
func TagsPreview(tags []string) []string {
	n := len(tags)
	if n > 2 {
		n = 2
	}
	out := make([]string, n)
	copy(out, tags[:n])
	return out
}

// --------------------------------------------
// Category tally
// --------------------------------------------

// Tally counts categories and remembers first-seen order so ties rank
// deterministically.
type Tally struct {
	counts map[string]int
	order  []string
}

func NewTally() *Tally {
	return &Tally{counts: map[string]int{}}
}

func (t *Tally) Add(category string) {
	if category == "" {
		return
	}
	if _, seen := t.counts[category]; !seen {
		t.order = append(t.order, category)
	}
	t.counts[category]++
}

func (t *Tally) Count(category string) int {
	if t == nil {
		return 0
	}
	return t.counts[category]
}

func (t *Tally) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Top returns up to n categories by descending count, ties in first-seen order.
// n <= 0 returns every category.
func (t *Tally) Top(n int) []CategoryCount {
	if t == nil {
		return nil
	}
	out := make([]CategoryCount, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, CategoryCount{Category: c, Count: t.counts[c]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MarshalJSON writes the tally as an object in first-seen order.
func (t *Tally) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, _ := json.Marshal(t.counts[c])
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// --------------------------------------------
// Categorization policies
// --------------------------------------------

// AllTagsCategory counts every tag of an entity as one of its categories.
func AllTagsCategory(tags []string) []string {
	return tags
}

// PrimaryTagCategory takes only the first tag, or fallback when there is none.
func PrimaryTagCategory(tags []string, fallback string) string {
	if len(tags) == 0 || tags[0] == "" {
		return fallback
	}
	return tags[0]
}
