package enrich

import (
	"context"
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
	"github.com/basewatch/procurement-graph/internal/platform/neo4jdb"
)

// StatementRunner matches the write-session surface of neo4jdb.
type StatementRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*neo4jdb.Result, error)
}

type neo4jOps struct {
	store StatementRunner
}

// NewNeo4jOps adapts a graph-store session to the GraphOps surface.
func NewNeo4jOps(store StatementRunner) GraphOps {
	return &neo4jOps{store: store}
}

const findDuplicatePersonsCypher = `
MATCH (e:Entity)<-[:ASSOCIATED_WITH]-(p:Person)
WITH p.person_name AS name, collect(DISTINCT p) AS people
WHERE size(people) > 1
  AND any(person IN people WHERE person.id STARTS WITH $prefix)
  AND any(person IN people WHERE NOT person.id STARTS WITH $prefix)
WITH name,
     [person IN people WHERE NOT person.id STARTS WITH $prefix][0] AS canonical,
     [person IN people WHERE person.id STARTS WITH $prefix] AS duplicates
UNWIND duplicates AS dup
RETURN name, canonical.id AS canonical_id, dup.id AS duplicate_id
`

func (o *neo4jOps) FindDuplicatePersons(ctx context.Context) ([]DuplicatePair, error) {
	res, err := o.store.Run(ctx, findDuplicatePersonsCypher, map[string]any{"prefix": SyntheticIDPrefix})
	if err != nil {
		return nil, err
	}
	pairs := make([]DuplicatePair, 0, len(res.Records))
	for _, rec := range res.Records {
		pairs = append(pairs, DuplicatePair{
			Name:        asString(rec["name"]),
			CanonicalID: asString(rec["canonical_id"]),
			DuplicateID: asString(rec["duplicate_id"]),
		})
	}
	return pairs, nil
}

func (o *neo4jOps) NodeProperties(ctx context.Context, label graph.Label, id string) (graph.Properties, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN properties(n) AS props", label)
	res, err := o.store.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("node %s/%s not found", label, id)
	}
	props, _ := res.Records[0]["props"].(map[string]any)
	return props, nil
}

func (o *neo4jOps) UpdateNodeProperties(ctx context.Context, label graph.Label, id string, props graph.Properties) error {
	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) SET n += $props", label)
	_, err := o.store.Run(ctx, cypher, map[string]any{"id": id, "props": props})
	return err
}

func (o *neo4jOps) Relationships(ctx context.Context, label graph.Label, id string) ([]Relationship, error) {
	outgoing := fmt.Sprintf(`
MATCH (n:%s {id: $id})-[r]->(other)
RETURN type(r) AS rel_type, properties(r) AS props, other.id AS other_id, labels(other)[0] AS other_label
`, label)
	incoming := fmt.Sprintf(`
MATCH (other)-[r]->(n:%s {id: $id})
RETURN type(r) AS rel_type, properties(r) AS props, other.id AS other_id, labels(other)[0] AS other_label
`, label)

	var rels []Relationship
	for _, q := range []struct {
		cypher   string
		outgoing bool
	}{{outgoing, true}, {incoming, false}} {
		res, err := o.store.Run(ctx, q.cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		for _, rec := range res.Records {
			props, _ := rec["props"].(map[string]any)
			rels = append(rels, Relationship{
				Type:       graph.RelType(asString(rec["rel_type"])),
				OtherLabel: graph.Label(asString(rec["other_label"])),
				OtherID:    asString(rec["other_id"]),
				Props:      props,
				Outgoing:   q.outgoing,
			})
		}
	}
	return rels, nil
}

func (o *neo4jOps) MergeRelationship(ctx context.Context, spec graph.RelationshipSpec) error {
	cypher := fmt.Sprintf(`
MATCH (from:%s {id: $from_id})
MATCH (to:%s {id: $to_id})
MERGE (from)-[r:%s]->(to)
SET r += $props
`, spec.FromLabel, spec.ToLabel, spec.Type)
	props := spec.Props
	if props == nil {
		props = graph.Properties{}
	}
	_, err := o.store.Run(ctx, cypher, map[string]any{
		"from_id": spec.FromID,
		"to_id":   spec.ToID,
		"props":   props,
	})
	return err
}

func (o *neo4jOps) DeleteNode(ctx context.Context, label graph.Label, id string) error {
	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) DETACH DELETE n", label)
	_, err := o.store.Run(ctx, cypher, map[string]any{"id": id})
	return err
}

// deriveCompetedWithCypher recomputes competition_count from scratch on every
// run: the MERGE is undirected and the id tie-break prevents creating the
// pair twice, so re-running never doubles the count.
const deriveCompetedWithCypher = `
MATCH (a:Entity)-[:IS_TENDERER_FOR]->(t:Tender)<-[:IS_TENDERER_FOR]-(b:Entity)
WHERE a.id < b.id
WITH a, b, count(DISTINCT t) AS competition_count
MERGE (a)-[r:COMPETED_WITH]-(b)
SET r.competition_count = competition_count
RETURN count(r) AS derived
`

func (o *neo4jOps) DeriveCompetedWith(ctx context.Context) (int, error) {
	res, err := o.store.Run(ctx, deriveCompetedWithCypher, nil)
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return asInt(res.Records[0]["derived"]), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
