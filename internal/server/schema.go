package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var localityProps = map[string]any{
	"city":          map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
	"country":       map[string]any{"type": "string", "maxLength": 3},
	"limit":         map[string]any{"type": "integer", "minimum": 0, "maximum": 500},
	"signal_tags":   map[string]any{"type": "string"},
	"signal_weight": map[string]any{"type": "number", "minimum": 0},
}

var (
	localitySchema = map[string]any{
		"type":       "object",
		"required":   []any{"city"},
		"properties": localityProps,
	}

	chatSchema = map[string]any{
		"type":     "object",
		"required": []any{"city", "message"},
		"properties": merge(localityProps, map[string]any{
			"message":  map[string]any{"type": "string", "minLength": 1, "maxLength": 2000},
			"analysis": map[string]any{"type": "string"},
		}),
	}

	compareSchema = map[string]any{
		"type":     "object",
		"required": []any{"localities"},
		"properties": map[string]any{
			"limit": localityProps["limit"],
			"localities": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 10,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"city"},
					"properties": map[string]any{
						"city":    localityProps["city"],
						"country": localityProps["country"],
					},
				},
			},
		},
	}
)

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// validateData checks a decoded body against schema and joins every
// violation into one message.
func validateData(schema map[string]any, data any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}
