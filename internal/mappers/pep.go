package mappers

import (
	"fmt"

	"github.com/gosimple/slug"

	"github.com/basewatch/procurement-graph/internal/graph"
)

// PEP maps one politically-exposed-person document (keyed by the person's
// name) into a Person node with a synthetic "pep:" id and ASSOCIATED_WITH
// edges carrying role/equity/government/parliament history. The synthetic id
// marks the node as a merge candidate for entity resolution when a richer
// source later produces the same person under a canonical id.
func PEP(record map[string]any) (*graph.Batch, error) {
	personName, _ := record["_id"].(string)
	if personName == "" {
		return nil, fmt.Errorf("pep mapper: record has no person name")
	}
	personID := "pep:" + slug.Make(personName)

	batch := graph.NewBatch()
	batch.AddNode(LabelPerson, graph.Properties{
		"id":          personID,
		"person_name": personName,
		"pep":         true,
	})

	for _, assoc := range mapList(record["associated"]) {
		nif := asString(assoc["nif"])
		if nif == "" {
			continue
		}

		props := graph.Properties{}
		if roles := stringList(assoc["ri_roles"]); len(roles) > 0 {
			props["ri_roles"] = roles
		}
		if interests := stringList(assoc["equity_interests"]); len(interests) > 0 {
			props["equity_interests"] = interests
		}
		if governments := intList(assoc["governments"]); len(governments) > 0 {
			props["governments"] = governments
		}
		if parliaments := intList(assoc["parliaments"]); len(parliaments) > 0 {
			props["parliaments"] = parliaments
		}
		if len(props) == 0 {
			props = nil
		}

		batch.AddRelationship(oneToOne(LabelPerson, personID, LabelEntity, nif, graph.RelAssociatedWith, props))
	}

	return batch, nil
}
