package mappers

import (
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
)

var contractFields = map[string]string{
	"initial_value":          "initial_price",
	"final_value":            "final_price",
	"execution_deadline":     "execution_deadline",
	"contract_type":          "contract_type",
	"causes_deadline_change": "causes_deadline_change",
	"causes_price_change":    "causes_price_change",
}

var tenderFields = map[string]string{
	"procedure_type":         "procedure_type",
	"procurement_method":     "procurement_method",
	"numberOfTenderers":      "numberOfTenderers",
	"environmental_criteria": "environmental_criteria",
	"centralized_procedure":  "centralized_procedure",
}

// Contracts maps one flat tender+contract document into Tender/Contract
// nodes, the execution-location hierarchy, document nodes, and the full
// relationship fan-out. Entity and CPV endpoints are referenced by id only;
// their nodes belong to the entities and cpv collections.
func Contracts(record map[string]any) (*graph.Batch, error) {
	data := cleanRecord(record)

	sharedID := asString(data["contract_id"])
	if sharedID == "" {
		return nil, fmt.Errorf("contracts mapper: record has no contract_id")
	}

	batch := graph.NewBatch()

	// Execution locations expand into their full hierarchy: the contract
	// links to the most specific level, each level links BROADER to its
	// parent.
	var locationIDs []string
	seenLocations := make(map[string]struct{})
	for _, loc := range mapList(data["execution_location"]) {
		country := asString(loc["country"])
		if country == "" {
			continue
		}
		district := asString(loc["district"])
		municipality := asString(loc["municipality"])

		hierarchy := []graph.Properties{{
			"id":      LocationID(country, "", ""),
			"country": country,
		}}
		if district != "" {
			hierarchy = append(hierarchy, graph.Properties{
				"id":       LocationID(country, district, ""),
				"country":  country,
				"district": district,
			})
			if municipality != "" {
				hierarchy = append(hierarchy, graph.Properties{
					"id":           LocationID(country, district, municipality),
					"country":      country,
					"district":     district,
					"municipality": municipality,
				})
			}
		}

		for _, level := range hierarchy {
			id := level["id"].(string)
			if _, seen := seenLocations[id]; !seen {
				seenLocations[id] = struct{}{}
				batch.AddNode(LabelLocation, level)
			}
		}

		mostSpecific := hierarchy[len(hierarchy)-1]["id"].(string)
		locationIDs = append(locationIDs, mostSpecific)

		for i := len(hierarchy) - 1; i > 0; i-- {
			batch.AddRelationship(oneToOne(
				LabelLocation, hierarchy[i]["id"].(string),
				LabelLocation, hierarchy[i-1]["id"].(string),
				graph.RelBroader, nil,
			))
		}
	}

	var documentIDs []string
	for _, doc := range mapList(data["documents"]) {
		docID := asString(doc["id"])
		if docID == "" {
			continue
		}
		props := graph.Properties{
			"id":           docID,
			"document_url": DocumentURL(docID),
		}
		if desc := asString(doc["description"]); desc != "" {
			props["document_description"] = desc
		}
		batch.AddNode(LabelDocument, props)
		documentIDs = append(documentIDs, docID)
	}

	cpvIDs := stringList(data["cpvs"])

	contractedIDs := stringList(data["contracted_vats"])
	contractedSet := make(map[string]struct{}, len(contractedIDs))
	for _, id := range contractedIDs {
		contractedSet[id] = struct{}{}
	}
	var contestantIDs []string
	for _, id := range stringList(data["contestants_vats"]) {
		if _, won := contractedSet[id]; !won {
			contestantIDs = append(contestantIDs, id)
		}
	}
	procuringIDs := stringList(data["contracting_agency_vats"])

	contract := BuildNode(sharedID, data, contractFields)
	if d := ParseDate(asString(data["signing_date"])); d != "" {
		contract["signing_date"] = d
	}
	batch.AddNode(LabelContract, contract)

	tender := BuildNode(sharedID, data, tenderFields)
	if d := ParseDate(asString(data["publication_date"])); d != "" {
		tender["publication_date"] = d
	}
	if d := ParseDate(asString(data["close_date"])); d != "" {
		tender["close_date"] = d
	}
	batch.AddNode(LabelTender, tender)

	batch.AddRelationship(oneToOne(LabelTender, sharedID, LabelContract, sharedID, graph.RelAwardsContract, nil))
	for _, rel := range oneToMany(LabelContract, sharedID, LabelLocation, locationIDs, graph.RelExecutedAtLocation) {
		batch.AddRelationship(rel)
	}
	for _, rel := range oneToMany(LabelContract, sharedID, LabelDocument, documentIDs, graph.RelHasDocument) {
		batch.AddRelationship(rel)
	}
	for _, rel := range oneToMany(LabelContract, sharedID, LabelCPV, cpvIDs, graph.RelHasClassification) {
		batch.AddRelationship(rel)
	}
	for _, rel := range manyToOne(LabelEntity, contractedIDs, LabelTender, sharedID, graph.RelWonTender) {
		batch.AddRelationship(rel)
	}
	for _, rel := range manyToOne(LabelEntity, contestantIDs, LabelTender, sharedID, graph.RelIsTendererFor) {
		batch.AddRelationship(rel)
	}
	for _, rel := range manyToOne(LabelEntity, procuringIDs, LabelTender, sharedID, graph.RelIsProcuringEntityFor) {
		batch.AddRelationship(rel)
	}
	for _, rel := range manyToOne(LabelEntity, contractedIDs, LabelContract, sharedID, graph.RelSignedContract) {
		batch.AddRelationship(rel)
	}

	return batch, nil
}
