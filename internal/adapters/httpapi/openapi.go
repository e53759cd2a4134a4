package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/httpjson"
)

// handleOpenAPI décrit l'API JSON (pas les pages HTML).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}

	episodeState := map[string]any{
		"season":  map[string]any{"type": "integer", "minimum": 0, "description": "Absent si l'entrée est malformée."},
		"episode": map[string]any{"type": "integer", "minimum": 0, "description": "Absent si l'entrée est malformée."},
		"cover":   map[string]any{"type": "string"},
	}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Anime Watch Notifier API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"OpenAPIDocument": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
					},
					"required": []any{"error"},
				},
				"TitleOption": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"cover": map[string]any{"type": "string", "description": "URL de la jaquette, vide si inconnue."},
					},
					"required": []any{"title", "cover"},
				},
				"TitleOptionList": map[string]any{
					"type":  "array",
					"items": map[string]any{"$ref": "#/components/schemas/TitleOption"},
				},
				"Snapshot": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"version":   map[string]any{"type": "integer"},
						"fetchedAt": map[string]any{"type": "string", "format": "date-time"},
						"sources": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"source": map[string]any{"type": "string"},
									"titles": map[string]any{
										"type": "array",
										"items": map[string]any{
											"type":       "object",
											"properties": merge(map[string]any{"title": map[string]any{"type": "string"}}, episodeState),
											"required":   []any{"title"},
										},
									},
								},
							},
						},
					},
				},
				"Tracking": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"configured": map[string]any{"type": "boolean", "description": "false tant qu'aucune sélection n'a été enregistrée."},
						"tracked":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []any{"configured", "tracked"},
				},
				"PutTrackingRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"tracked": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []any{"tracked"},
				},
				"EpisodeEvent": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source": map[string]any{"type": "string"},
						"title":  map[string]any{"type": "string"},
						"state":  map[string]any{"type": "object", "properties": episodeState},
					},
				},
				"CycleResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":           map[string]any{"type": "string"},
						"startedAt":    map[string]any{"type": "string", "format": "date-time"},
						"finishedAt":   map[string]any{"type": "string", "format": "date-time"},
						"outcome":      map[string]any{"type": "string", "enum": []any{"ok", "no_tracking", "fetch_failed"}},
						"titles":       map[string]any{"type": "integer"},
						"events":       map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/EpisodeEvent"}},
						"persisted":    map[string]any{"type": "boolean"},
						"notified":     map[string]any{"type": "boolean"},
						"error":        map[string]any{"type": "string"},
						"persistError": map[string]any{"type": "string"},
						"notifyError":  map[string]any{"type": "string"},
					},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/OpenAPIDocument")}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "SSE (cycle.completed, cycle.failed, episodes.new, tracking.updated)"}}},
			},
			"/api/v1/titles": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/TitleOptionList"),
						"500": jsonErr,
					},
				},
			},
			"/api/v1/snapshot": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Snapshot"),
						"500": jsonErr,
					},
				},
			},
			"/api/v1/tracked": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Tracking"),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/PutTrackingRequest"},
							},
						},
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Tracking"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/check": map[string]any{
				"post": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/CycleResult"),
						"409": jsonErr,
						"429": jsonErr,
						"502": jsonOK("#/components/schemas/CycleResult"),
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, doc)
}

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
