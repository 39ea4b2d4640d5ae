package graph

import "fmt"

// Statement is a parameterized Cypher write ready to run against the store.
type Statement struct {
	Cypher string
	Params map[string]any
}

// BuildNodeUpsert emits one UNWIND-based MERGE for a whole label buffer. The
// store iterates the batch server-side and upserts each item by idField.
// SET n = item overwrites the stored property map wholesale; see Properties.
// Running the statement twice with the same batch is a no-op after the first
// successful application.
func BuildNodeUpsert(label Label, idField string, items []Properties) Statement {
	cypher := fmt.Sprintf(`
UNWIND $batch AS item
MERGE (n:%s {%s: item.%s})
SET n = item
RETURN count(n) AS written
`, label, idField, idField)
	return Statement{
		Cypher: cypher,
		Params: map[string]any{"batch": items},
	}
}

type relGroupKey struct {
	typ  RelType
	from Label
	to   Label
}

// BuildRelationshipUpserts groups the specs by (type, endpoint labels) and
// emits one UNWIND-based MERGE per group, since the relationship type and the
// node labels must be fixed at statement-build time. Group order follows
// first appearance in the input, so identical input always yields an
// identical statement sequence.
//
// When any spec in a group carries properties, every item in that group gets
// a props map (empty when the spec had none) so the statement can apply
// SET r += item.props uniformly instead of branching on null.
func BuildRelationshipUpserts(rels []RelationshipSpec) []Statement {
	var order []relGroupKey
	grouped := make(map[relGroupKey][]RelationshipSpec)
	for _, rel := range rels {
		key := relGroupKey{typ: rel.Type, from: rel.FromLabel, to: rel.ToLabel}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], rel)
	}

	statements := make([]Statement, 0, len(order))
	for _, key := range order {
		group := grouped[key]

		withProps := false
		for _, rel := range group {
			if len(rel.Props) > 0 {
				withProps = true
				break
			}
		}

		batch := make([]map[string]any, 0, len(group))
		for _, rel := range group {
			item := map[string]any{
				"from_id": rel.FromID,
				"to_id":   rel.ToID,
			}
			if withProps {
				props := rel.Props
				if props == nil {
					props = Properties{}
				}
				item["props"] = props
			}
			batch = append(batch, item)
		}

		cypher := fmt.Sprintf(`
UNWIND $batch AS item
MATCH (from:%s {id: item.from_id})
MATCH (to:%s {id: item.to_id})
MERGE (from)-[r:%s]->(to)
`, key.from, key.to, key.typ)
		if withProps {
			cypher += "SET r += item.props\n"
		}
		cypher += "RETURN count(r) AS written\n"

		statements = append(statements, Statement{
			Cypher: cypher,
			Params: map[string]any{"batch": batch},
		})
	}
	return statements
}
