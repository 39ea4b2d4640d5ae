package mappers

import (
	"testing"

	"github.com/basewatch/procurement-graph/internal/graph"
)

func relTypes(batch *graph.Batch, typ graph.RelType) []graph.RelationshipSpec {
	var out []graph.RelationshipSpec
	for _, rel := range batch.Relationships {
		if rel.Type == typ {
			out = append(out, rel)
		}
	}
	return out
}

func TestContractsMapper(t *testing.T) {
	record := map[string]any{
		"_id":              "doc-100",
		"_rev":             "1-abc",
		"contract_id":      float64(10000001),
		"contract_type":    "Aquisição de serviços",
		"initial_price":    float64(5000),
		"signing_date":     "2024-01-15T10:30:00",
		"publication_date": "2024-01-02",
		"procedure_type":   "Concurso público",
		"execution_location": []any{
			map[string]any{"country": "Portugal", "district": "Lisboa", "municipality": "Cascais"},
		},
		"documents": []any{
			map[string]any{"id": float64(555), "description": "Caderno de encargos"},
		},
		"cpvs":                    []any{"03221000"},
		"contracted_vats":         []any{"500100200"},
		"contestants_vats":        []any{"500100200", "500300400"},
		"contracting_agency_vats": []any{"600700800"},
	}

	batch, err := Contracts(record)
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	contracts := batch.Nodes[LabelContract]
	if len(contracts) != 1 || contracts[0]["id"] != "10000001" {
		t.Fatalf("expected one Contract with stringified id, got %v", contracts)
	}
	if contracts[0]["signing_date"] != "2024-01-15" {
		t.Fatalf("signing_date not normalized: %v", contracts[0]["signing_date"])
	}
	if _, ok := contracts[0]["_rev"]; ok {
		t.Fatal("store metadata must not leak into node properties")
	}

	// Full location hierarchy: country, country/district, country/district/municipality.
	locations := batch.Nodes[LabelLocation]
	if len(locations) != 3 {
		t.Fatalf("expected 3 hierarchy levels, got %d: %v", len(locations), locations)
	}
	broader := relTypes(batch, graph.RelBroader)
	if len(broader) != 2 {
		t.Fatalf("expected 2 BROADER edges, got %d", len(broader))
	}

	executed := relTypes(batch, graph.RelExecutedAtLocation)
	if len(executed) != 1 || executed[0].ToID != "loc:portugal/lisboa/cascais" {
		t.Fatalf("contract must link to the most specific location, got %v", executed)
	}

	// The winner must not also appear as a plain tenderer.
	tenderers := relTypes(batch, graph.RelIsTendererFor)
	if len(tenderers) != 1 || tenderers[0].FromID != "500300400" {
		t.Fatalf("expected losing contestant only, got %v", tenderers)
	}
	if won := relTypes(batch, graph.RelWonTender); len(won) != 1 || won[0].FromID != "500100200" {
		t.Fatalf("expected one WON_TENDER edge, got %v", won)
	}

	// Entity and CPV nodes belong to other collections; only edges here.
	if len(batch.Nodes[LabelEntity]) != 0 || len(batch.Nodes[LabelCPV]) != 0 {
		t.Fatal("contracts mapper must not emit stub Entity/CPV nodes")
	}

	docs := batch.Nodes[LabelDocument]
	if len(docs) != 1 || docs[0]["document_url"] == nil {
		t.Fatalf("expected one Document with URL, got %v", docs)
	}
}

func TestContractsMapperRequiresID(t *testing.T) {
	if _, err := Contracts(map[string]any{"_id": "x"}); err == nil {
		t.Fatal("expected error for record without contract_id")
	}
}

func TestEntitiesMapper(t *testing.T) {
	cases := []struct {
		name          string
		record        map[string]any
		wantLocations int
	}{
		{
			name: "valid_nif_with_district",
			record: map[string]any{
				"nif": "500100200", "description": "ACME LDA",
				"valid_nif": true, "district": "Porto", "municipality": "Matosinhos",
			},
			wantLocations: 1,
		},
		{
			name: "invalid_nif_skips_location",
			record: map[string]any{
				"nif": "999", "description": "GHOST", "valid_nif": false, "district": "Porto",
			},
			wantLocations: 0,
		},
		{
			name:          "no_district",
			record:        map[string]any{"nif": "500", "valid_nif": true},
			wantLocations: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batch, err := Entities(tc.record)
			if err != nil {
				t.Fatalf("map: %v", err)
			}
			if got := len(batch.Nodes[LabelLocation]); got != tc.wantLocations {
				t.Fatalf("expected %d locations, got %d", tc.wantLocations, got)
			}
			if got := len(relTypes(batch, graph.RelLocatedAt)); got != tc.wantLocations {
				t.Fatalf("expected %d LOCATED_AT edges, got %d", tc.wantLocations, got)
			}
		})
	}
}

func TestPEPMapper(t *testing.T) {
	record := map[string]any{
		"_id":  "ALBERTO JORGE TORRES DA SILVA FONSECA",
		"_rev": "1-75d5",
		"associated": []any{
			map[string]any{
				"nif":         "501525882",
				"ri_roles":    []any{"Gestor", nil},
				"parliaments": []any{float64(14), "", nil},
			},
			map[string]any{"nif": "502000000"},
			map[string]any{"nif": ""},
		},
	}

	batch, err := PEP(record)
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	persons := batch.Nodes[LabelPerson]
	if len(persons) != 1 {
		t.Fatalf("expected one Person, got %v", persons)
	}
	if persons[0]["id"] != "pep:alberto-jorge-torres-da-silva-fonseca" {
		t.Fatalf("unexpected synthetic id: %v", persons[0]["id"])
	}
	if persons[0]["pep"] != true {
		t.Fatal("pep flag must be set")
	}

	assocs := relTypes(batch, graph.RelAssociatedWith)
	if len(assocs) != 2 {
		t.Fatalf("expected 2 association edges, got %d", len(assocs))
	}
	props := assocs[0].Props
	if roles, ok := props["ri_roles"].([]string); !ok || len(roles) != 1 || roles[0] != "Gestor" {
		t.Fatalf("nil entries must be filtered from list properties, got %v", props["ri_roles"])
	}
	if parliaments, ok := props["parliaments"].([]int); !ok || len(parliaments) != 1 || parliaments[0] != 14 {
		t.Fatalf("unexpected parliaments: %v", props["parliaments"])
	}
	if assocs[1].Props != nil {
		t.Fatalf("association without history must carry no props, got %v", assocs[1].Props)
	}
}

func TestCPVMapper(t *testing.T) {
	batch, err := CPV(map[string]any{
		"_id": "03221000", "code": "03221000", "labels": "Produtos hortícolas",
		"level": "Class", "parent": "03220000",
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	nodes := batch.Nodes[LabelCPV]
	if len(nodes) != 1 || nodes[0]["label"] != "Produtos hortícolas" {
		t.Fatalf("unexpected CPV node: %v", nodes)
	}
	broader := relTypes(batch, graph.RelBroader)
	if len(broader) != 1 || broader[0].ToID != "03220000" {
		t.Fatalf("expected BROADER to parent, got %v", broader)
	}

	root, err := CPV(map[string]any{"code": "03000000", "labels": "Root", "level": "Division"})
	if err != nil {
		t.Fatalf("map root: %v", err)
	}
	if len(root.Relationships) != 0 {
		t.Fatal("root code must not emit a BROADER edge")
	}
}

func TestOrbisMapper(t *testing.T) {
	batch, err := Orbis(map[string]any{
		"_id": "x", "id": "n:1", "name": "MARIA SILVA",
		"dm": []any{"500100200"}, "sh": []any{"500100200", "600700800"},
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if got := len(relTypes(batch, graph.RelDirectorOrManagerFor)); got != 1 {
		t.Fatalf("expected 1 director edge, got %d", got)
	}
	if got := len(relTypes(batch, graph.RelShareholderFor)); got != 2 {
		t.Fatalf("expected 2 shareholder edges, got %d", got)
	}
}

func TestLocationID(t *testing.T) {
	cases := []struct {
		name                            string
		country, district, municipality string
		want                            string
	}{
		{name: "country_only", country: "Portugal", want: "loc:portugal"},
		{name: "with_district", country: "Portugal", district: "Lisboa", want: "loc:portugal/lisboa"},
		{name: "full", country: "Portugal", district: "Lisboa", municipality: "Cascais", want: "loc:portugal/lisboa/cascais"},
		{name: "diacritics", country: "Portugal", district: "Évora", want: "loc:portugal/evora"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LocationID(tc.country, tc.district, tc.municipality); got != tc.want {
				t.Fatalf("LocationID=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"2024-01-15T10:30:00", "2024-01-15"},
		{"", ""},
		{"not-a-date", ""},
	}
	for _, tc := range cases {
		if got := ParseDate(tc.in); got != tc.want {
			t.Fatalf("ParseDate(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"contracts", "entities", "cpv", "pep", "orbis"} {
		if _, ok := Lookup(name); !ok {
			t.Fatalf("mapper %q missing from registry", name)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatal("unknown mapper must not resolve")
	}
}
