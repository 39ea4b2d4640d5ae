package graph

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildNodeUpsert(t *testing.T) {
	items := []Properties{
		{"id": "100", "contract_type": "services"},
		{"id": "101", "contract_type": "works"},
	}
	stmt := BuildNodeUpsert("Contract", IDField, items)

	if !strings.Contains(stmt.Cypher, "MERGE (n:Contract {id: item.id})") {
		t.Fatalf("unexpected merge clause in:\n%s", stmt.Cypher)
	}
	if !strings.Contains(stmt.Cypher, "SET n = item") {
		t.Fatalf("node upsert must overwrite wholesale, got:\n%s", stmt.Cypher)
	}
	batch, ok := stmt.Params["batch"].([]Properties)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected batch of 2 items, got %#v", stmt.Params["batch"])
	}
}

func TestBuildRelationshipUpsertsGroupsByType(t *testing.T) {
	rels := []RelationshipSpec{
		{FromLabel: "Tender", FromID: "1", ToLabel: "Contract", ToID: "1", Type: RelAwardsContract},
		{FromLabel: "Contract", FromID: "1", ToLabel: "Location", ToID: "loc:portugal", Type: RelExecutedAtLocation},
		{FromLabel: "Entity", FromID: "500", ToLabel: "Tender", ToID: "1", Type: RelWonTender},
		{FromLabel: "Tender", FromID: "2", ToLabel: "Contract", ToID: "2", Type: RelAwardsContract},
	}

	stmts := BuildRelationshipUpserts(rels)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements for 3 distinct types, got %d", len(stmts))
	}

	wantTypes := []RelType{RelAwardsContract, RelExecutedAtLocation, RelWonTender}
	wantSizes := []int{2, 1, 1}
	for i, stmt := range stmts {
		if !strings.Contains(stmt.Cypher, "[r:"+string(wantTypes[i])+"]") {
			t.Fatalf("statement %d missing type %s:\n%s", i, wantTypes[i], stmt.Cypher)
		}
		for _, other := range wantTypes {
			if other != wantTypes[i] && strings.Contains(stmt.Cypher, string(other)) {
				t.Fatalf("statement %d leaks type %s:\n%s", i, other, stmt.Cypher)
			}
		}
		batch := stmt.Params["batch"].([]map[string]any)
		if len(batch) != wantSizes[i] {
			t.Fatalf("statement %d: expected %d items, got %d", i, wantSizes[i], len(batch))
		}
	}
}

func TestBuildRelationshipUpsertsDefaultsProps(t *testing.T) {
	rels := []RelationshipSpec{
		{FromLabel: "Person", FromID: "pep:a", ToLabel: "Entity", ToID: "500", Type: RelAssociatedWith,
			Props: Properties{"ri_roles": []string{"Gestor"}}},
		{FromLabel: "Person", FromID: "pep:b", ToLabel: "Entity", ToID: "501", Type: RelAssociatedWith},
	}

	stmts := BuildRelationshipUpserts(rels)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	stmt := stmts[0]
	if !strings.Contains(stmt.Cypher, "SET r += item.props") {
		t.Fatalf("expected props merge clause:\n%s", stmt.Cypher)
	}
	batch := stmt.Params["batch"].([]map[string]any)
	for i, item := range batch {
		if _, ok := item["props"]; !ok {
			t.Fatalf("item %d missing defaulted props map: %#v", i, item)
		}
	}
	if props := batch[1]["props"].(Properties); len(props) != 0 {
		t.Fatalf("prop-less spec should default to empty map, got %#v", props)
	}
}

func TestBuildRelationshipUpsertsWithoutPropsSkipsSet(t *testing.T) {
	rels := []RelationshipSpec{
		{FromLabel: "CPV", FromID: "03221000", ToLabel: "CPV", ToID: "03220000", Type: RelBroader},
	}
	stmts := BuildRelationshipUpserts(rels)
	if strings.Contains(stmts[0].Cypher, "SET r") {
		t.Fatalf("prop-less group should not emit SET:\n%s", stmts[0].Cypher)
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	rels := []RelationshipSpec{
		{FromLabel: "Entity", FromID: "1", ToLabel: "Tender", ToID: "t1", Type: RelIsTendererFor},
		{FromLabel: "Entity", FromID: "2", ToLabel: "Tender", ToID: "t1", Type: RelWonTender},
		{FromLabel: "Entity", FromID: "3", ToLabel: "Tender", ToID: "t2", Type: RelIsTendererFor},
	}
	first := BuildRelationshipUpserts(rels)
	second := BuildRelationshipUpserts(rels)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same input must build identical statement sequences")
	}
}
