package mappers

import (
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
)

var personFields = map[string]string{
	"person_name": "name",
}

// Orbis maps one person-to-company document into a Person node (canonical
// id) and its director/manager and shareholder edges.
func Orbis(record map[string]any) (*graph.Batch, error) {
	data := cleanRecord(record)

	personID := asString(data["id"])
	if personID == "" {
		return nil, fmt.Errorf("orbis mapper: record has no id")
	}

	batch := graph.NewBatch()
	batch.AddNode(LabelPerson, BuildNode(personID, data, personFields))

	for _, rel := range oneToMany(LabelPerson, personID, LabelEntity, stringList(data["dm"]), graph.RelDirectorOrManagerFor) {
		batch.AddRelationship(rel)
	}
	for _, rel := range oneToMany(LabelPerson, personID, LabelEntity, stringList(data["sh"]), graph.RelShareholderFor) {
		batch.AddRelationship(rel)
	}
	return batch, nil
}
