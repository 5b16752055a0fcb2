package types

import (
	"encoding/json"
	"math"
)

type Kind string

const (
	KindBrand Kind = "brand"
	KindPlace Kind = "place"
)

// URN is the filter.type value the insights API expects for the kind.
func (k Kind) URN() string {
	return "urn:entity:" + string(k)
}

// UnknownName is used whenever an entity arrives without a usable name.
const UnknownName = "Unknown"

// RawEntity is one undecoded record of results.entities.
type RawEntity map[string]any

type Collection struct {
	Results struct {
		Entities []RawEntity `json:"entities"`
	} `json:"results"`
	Query struct {
		Localities struct {
			Filter []struct {
				Name string `json:"name"`
			} `json:"filter"`
		} `json:"localities"`
	} `json:"query"`
}

// LocalityName returns the resolved locality reported by the API, if any.
func (c *Collection) LocalityName() string {
	if c == nil || len(c.Query.Localities.Filter) == 0 {
		return ""
	}
	return c.Query.Localities.Filter[0].Name
}

// Entities is nil-safe; an absent collection has no entities.
func (c *Collection) Entities() []RawEntity {
	if c == nil {
		return nil
	}
	return c.Results.Entities
}

type Entity struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	Rating      Optional[float64] `json:"rating"`
	Popularity  Optional[float64] `json:"popularity"`
	Tags        []string          `json:"tags"`
	Keywords    []string          `json:"keywords,omitempty"`
	PriceSignal Optional[float64] `json:"price_signal"`
	Address     string            `json:"address,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Optional holds a value that may be explicitly absent.
type Optional[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// SomeFinite keeps f only when it is a real number.
func SomeFinite(f float64) Optional[float64] {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return None[float64]()
	}
	return Some(f)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Optional[T]) Present() bool {
	return o.ok
}

func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
