package mappers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/basewatch/procurement-graph/internal/graph"
)

// LocationID builds the hierarchical slug id for a location, e.g.
// "loc:portugal/lisboa/cascais". Country is required; district and
// municipality extend the path when present.
func LocationID(country, district, municipality string) string {
	parts := []string{slug.Make(country)}
	if district != "" {
		parts = append(parts, slug.Make(district))
	}
	if municipality != "" {
		parts = append(parts, slug.Make(municipality))
	}
	return "loc:" + strings.Join(parts, "/")
}

// DocumentURL resolves a procurement document id to its public portal URL.
func DocumentURL(documentID string) string {
	return fmt.Sprintf("https://www.base.gov.pt/Base4/pt/resultados/?type=doc_documentos&id=%s&ext=.pdf", documentID)
}

// ParseDate normalizes an ISO datetime/date string to "YYYY-MM-DD". Returns
// "" for empty or unparseable input.
func ParseDate(value string) string {
	if value == "" {
		return ""
	}
	if i := strings.IndexByte(value, 'T'); i >= 0 {
		value = value[:i]
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// BuildNode assembles a node property map from a target->source field
// mapping, keeping only non-nil source values.
func BuildNode(id string, data map[string]any, fields map[string]string) graph.Properties {
	props := graph.Properties{graph.IDField: id}
	for target, source := range fields {
		if v, ok := data[source]; ok && v != nil {
			props[target] = v
		}
	}
	return props
}

func oneToOne(fromLabel graph.Label, fromID string, toLabel graph.Label, toID string, relType graph.RelType, props graph.Properties) graph.RelationshipSpec {
	return graph.RelationshipSpec{
		FromLabel: fromLabel, FromID: fromID,
		ToLabel: toLabel, ToID: toID,
		Type: relType, Props: props,
	}
}

func oneToMany(fromLabel graph.Label, fromID string, toLabel graph.Label, toIDs []string, relType graph.RelType) []graph.RelationshipSpec {
	specs := make([]graph.RelationshipSpec, 0, len(toIDs))
	for _, toID := range toIDs {
		specs = append(specs, oneToOne(fromLabel, fromID, toLabel, toID, relType, nil))
	}
	return specs
}

func manyToOne(fromLabel graph.Label, fromIDs []string, toLabel graph.Label, toID string, relType graph.RelType) []graph.RelationshipSpec {
	specs := make([]graph.RelationshipSpec, 0, len(fromIDs))
	for _, fromID := range fromIDs {
		specs = append(specs, oneToOne(fromLabel, fromID, toLabel, toID, relType, nil))
	}
	return specs
}

// asString renders a scalar document value as a string. JSON numbers decode
// as float64; ids stored numerically must round-trip without an exponent or
// trailing decimals.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// stringList extracts the non-empty string renderings of a JSON array value.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mapList(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// intList extracts integer values from a JSON array, skipping nulls and
// empty strings (the store rejects nulls inside array properties).
func intList(v any) []int {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case float64:
			out = append(out, int(t))
		case int:
			out = append(out, t)
		case string:
			if t == "" {
				continue
			}
			if n, err := strconv.Atoi(t); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// cleanRecord strips the document store's metadata fields (_id, _rev, ...).
func cleanRecord(record map[string]any) map[string]any {
	data := make(map[string]any, len(record))
	for k, v := range record {
		if strings.HasPrefix(k, "_") {
			continue
		}
		data[k] = v
	}
	return data
}
