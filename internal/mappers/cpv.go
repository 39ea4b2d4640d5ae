package mappers

import (
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
)

var cpvFields = map[string]string{
	"label": "labels",
	"level": "level",
}

// CPV maps one taxonomy document into a CPV node and a BROADER edge to its
// parent code.
func CPV(record map[string]any) (*graph.Batch, error) {
	data := cleanRecord(record)

	cpvID := asString(data["code"])
	if cpvID == "" {
		return nil, fmt.Errorf("cpv mapper: record has no code")
	}

	batch := graph.NewBatch()
	batch.AddNode(LabelCPV, BuildNode(cpvID, data, cpvFields))

	if parentID := asString(data["parent"]); parentID != "" {
		batch.AddRelationship(oneToOne(LabelCPV, cpvID, LabelCPV, parentID, graph.RelBroader, nil))
	}
	return batch, nil
}
