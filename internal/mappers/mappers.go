// Package mappers converts raw source documents into graph batches. Each
// mapper is pure, fails fast on records that violate its contract, and emits
// the complete property set for every node it produces — node upserts
// overwrite wholesale, so a mapper must never emit a stub node for an id
// owned by another collection (endpoint ids go into relationships only).
package mappers

import (
	"sort"

	"github.com/basewatch/procurement-graph/internal/graph"
)

const (
	LabelTender   graph.Label = "Tender"
	LabelContract graph.Label = "Contract"
	LabelLocation graph.Label = "Location"
	LabelDocument graph.Label = "Document"
	LabelCPV      graph.Label = "CPV"
	LabelEntity   graph.Label = "Entity"
	LabelPerson   graph.Label = "Person"
)

// Labels lists every label the shipped mappers emit, for schema setup.
func Labels() []graph.Label {
	return []graph.Label{
		LabelTender, LabelContract, LabelLocation, LabelDocument,
		LabelCPV, LabelEntity, LabelPerson,
	}
}

var registry = map[string]graph.Mapper{
	"contracts": Contracts,
	"entities":  Entities,
	"cpv":       CPV,
	"pep":       PEP,
	"orbis":     Orbis,
}

// Lookup resolves a mapper by its pipeline-config name.
func Lookup(name string) (graph.Mapper, bool) {
	m, ok := registry[name]
	return m, ok
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
