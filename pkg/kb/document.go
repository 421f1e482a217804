package kb

import (
	"sort"
	"strconv"
	"strings"
)

// Document is a normalized knowledge-base entry used for retrieval.
type Document struct {
	ID        string                 `json:"id"`
	Namespace string                 `json:"namespace"`
	Title     string                 `json:"title"`
	View      map[string]interface{} `json:"view,omitempty"`
	Body      string                 `json:"body"`
}

// RetrievedSnippet pairs a matched document with the excerpt that justified
// the match.
type RetrievedSnippet struct {
	Document Document `json:"document"`
	Snippet  string   `json:"snippet"`
	Score    float64  `json:"score"`
}

// normalizeDocument maps a raw JSON object onto the canonical Document shape.
// Fallback chains: id ← id|file stem, namespace ← ns|parent dir,
// title ← title|name|id, body ← flatten(body|text|whole object).
func normalizeDocument(raw map[string]interface{}, stem, parentDir string) Document {
	doc := Document{
		ID:        stringField(raw, "id"),
		Namespace: stringField(raw, "ns"),
		Title:     stringField(raw, "title"),
	}
	if doc.ID == "" {
		doc.ID = stem
	}
	if doc.Namespace == "" {
		doc.Namespace = parentDir
	}
	if doc.Title == "" {
		doc.Title = stringField(raw, "name")
	}
	if doc.Title == "" {
		doc.Title = doc.ID
	}

	if view, ok := raw["view"].(map[string]interface{}); ok {
		doc.View = view
	}

	if body, ok := raw["body"]; ok {
		doc.Body = flattenText(body)
	} else if text, ok := raw["text"]; ok {
		doc.Body = flattenText(text)
	} else {
		doc.Body = flattenText(raw)
	}

	return doc
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// flattenText joins every text-bearing value in a JSON fragment with spaces.
// Map keys are visited in sorted order so the result is stable across runs.
func flattenText(value interface{}) string {
	var parts []string
	collectText(value, &parts)
	return strings.Join(parts, " ")
}

func collectText(value interface{}, parts *[]string) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			*parts = append(*parts, trimmed)
		}
	case float64:
		*parts = append(*parts, strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*parts = append(*parts, strconv.FormatBool(v))
	case []interface{}:
		for _, item := range v {
			collectText(item, parts)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectText(v[k], parts)
		}
	}
}
