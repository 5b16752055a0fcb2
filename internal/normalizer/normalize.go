// Package normalizer turns raw insights records into types.Entity values.
// Every field has a fallback, so normalization never fails.
package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"palatlas-go/internal/types"
)

// Normalize is pure and idempotent.
func Normalize(raw types.RawEntity, kind types.Kind) types.Entity {
	props := asMap(raw["properties"])
	e := types.Entity{
		ID:          stringField(raw, "entity_id"),
		Name:        stringField(raw, "name"),
		Kind:        kind,
		Rating:      number(props["business_rating"]),
		Popularity:  number(raw["popularity"]),
		Tags:        names(raw["tags"]),
		Keywords:    names(props["keywords"]),
		PriceSignal: number(props["price_level"]),
		Address:     stringField(props, "address"),
		Description: stringField(props, "description"),
	}
	if e.Name == "" {
		e.Name = types.UnknownName
	}
	if e.Description == "" {
		e.Description = stringField(props, "short_description")
	}
	if !e.PriceSignal.Present() {
		e.PriceSignal = number(props["price_range"])
	}
	return e
}

// NormalizeAll normalizes a whole collection; an absent collection yields
// an empty slice.
func NormalizeAll(coll *types.Collection, kind types.Kind) []types.Entity {
	raws := coll.Entities()
	out := make([]types.Entity, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r, kind))
	}
	return out
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case types.RawEntity:
		return m
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// number parses numeric values and numeric strings. "N/A" and anything
// unparsable are absent.
func number(v any) types.Optional[float64] {
	switch n := v.(type) {
	case float64:
		return types.SomeFinite(n)
	case int:
		return types.Some(float64(n))
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return types.None[float64]()
		}
		return types.SomeFinite(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" || strings.EqualFold(s, "N/A") {
			return types.None[float64]()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return types.None[float64]()
		}
		return types.SomeFinite(f)
	}
	return types.None[float64]()
}

// names collects the non-empty "name" of each element of a list of objects.
func names(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var name string
		switch t := item.(type) {
		case map[string]any:
			if s, ok := t["name"].(string); ok {
				name = strings.TrimSpace(s)
			}
		case string:
			name = strings.TrimSpace(t)
		default:
			name = ""
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Describe is the one-line rendering the pipeline logs at debug level.
func Describe(e types.Entity) string {
	r := "N/A"
	if v, ok := e.Rating.Get(); ok {
		r = strconv.FormatFloat(v, 'f', 1, 64)
	}
	return fmt.Sprintf("%s [%s] rating=%s tags=%d", e.Name, e.Kind, r, len(e.Tags))
}
