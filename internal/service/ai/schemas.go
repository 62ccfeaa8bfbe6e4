package ai

import "sort"

// Structured output schemas. Strict mode needs every property listed as
// required, so optional values are nullable instead. Length and count bounds
// are enforced after decoding.

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func sourcesArray() map[string]any {
	return map[string]any{
		"type": "array",
		"items": object(map[string]any{
			"name": map[string]any{"type": "string"},
			"url":  map[string]any{"type": []string{"string", "null"}},
		}),
	}
}

var clustersSchema = Schema{
	Name:   "pulse_clusters",
	Strict: true,
	Body: object(map[string]any{
		"clusters": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"topic":       map[string]any{"type": "string"},
				"pain_points": stringArray(),
				"quotes":      stringArray(),
			}),
		},
	}),
}

var ideasSchema = Schema{
	Name:   "pulse_kit",
	Strict: true,
	Body: object(map[string]any{
		"ideas": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"topic":       map[string]any{"type": "string"},
				"trend_notes": stringArray(),
				"items": map[string]any{
					"type": "array",
					"items": object(map[string]any{
						"hook":           map[string]any{"type": "string"},
						"mini_outline":   stringArray(),
						"virality_score": map[string]any{"type": "integer"},
						"recommended_time": map[string]any{
							"type": "string",
							"enum": []string{"morning", "afternoon", "evening"},
						},
					}),
				},
			}),
		},
		"sources_used": sourcesArray(),
	}),
}

var repliesSchema = Schema{
	Name:   "pulse_replies",
	Strict: true,
	Body: object(map[string]any{
		"replies": stringArray(),
	}),
}

var trendsSchema = Schema{
	Name:   "pulse_trends",
	Strict: true,
	Body: object(map[string]any{
		"trend_notes":  stringArray(),
		"sources_used": sourcesArray(),
	}),
}
