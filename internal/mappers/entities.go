package mappers

import (
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
)

var entityFields = map[string]string{
	"entity_name": "description",
	"valid_nif":   "valid_nif",
}

// Entities maps one NIF-registry document into an Entity node, plus its
// Location and a LOCATED_AT edge when the NIF is valid and a district is
// known.
func Entities(record map[string]any) (*graph.Batch, error) {
	data := cleanRecord(record)

	entityID := asString(data["nif"])
	if entityID == "" {
		return nil, fmt.Errorf("entities mapper: record has no nif")
	}

	batch := graph.NewBatch()
	batch.AddNode(LabelEntity, BuildNode(entityID, data, entityFields))

	district := asString(data["district"])
	if asBool(data["valid_nif"]) && district != "" {
		municipality := asString(data["municipality"])
		locationID := LocationID("Portugal", district, municipality)

		props := graph.Properties{
			"id":       locationID,
			"country":  "Portugal",
			"district": district,
		}
		if municipality != "" {
			props["municipality"] = municipality
		}
		batch.AddNode(LabelLocation, props)
		batch.AddRelationship(oneToOne(LabelEntity, entityID, LabelLocation, locationID, graph.RelLocatedAt, nil))
	}

	return batch, nil
}
