// Package graph holds the batch model shared by mappers, the accumulator and
// the Cypher generator: typed nodes keyed by label, relationship specs keyed
// by a five-part identity, and the upsert statements built from them.
package graph

// Properties is one node's (or relationship's) full property map. Node
// upserts overwrite the whole map server-side (SET n = item), so a mapper
// must always emit the complete property set for an id — a field omitted on
// a later sync erases the stored value.
type Properties = map[string]any

// IDField is the identity property every node map must carry.
const IDField = "id"

// Label is a node label. Labels are open-ended: mappers may introduce new
// ones at runtime, the engine never needs a registry.
type Label string

// RelType is a relationship type. Cypher cannot parameterize the type inside
// a statement, so each distinct value becomes its own statement at build
// time. The shipped mappers only use the typed constants below; external
// mappers may still mint their own values.
type RelType string

const (
	RelAwardsContract       RelType = "AWARDS_CONTRACT"
	RelExecutedAtLocation   RelType = "EXECUTED_AT_LOCATION"
	RelBroader              RelType = "BROADER"
	RelHasDocument          RelType = "HAS_DOCUMENT"
	RelHasClassification    RelType = "HAS_CLASSIFICATION"
	RelWonTender            RelType = "WON_TENDER"
	RelIsTendererFor        RelType = "IS_TENDERER_FOR"
	RelIsProcuringEntityFor RelType = "IS_PROCURING_ENTITY_FOR"
	RelSignedContract       RelType = "SIGNED_CONTRACT"
	RelLocatedAt            RelType = "LOCATED_AT"
	RelAssociatedWith       RelType = "ASSOCIATED_WITH"
	RelDirectorOrManagerFor RelType = "DIRECTOR_OR_MANAGER_FOR"
	RelShareholderFor       RelType = "SHAREHOLDER_FOR"
	RelCompetedWith         RelType = "COMPETED_WITH"
)

// RelationshipSpec describes one edge to upsert. Identity is the full
// (FromLabel, FromID, ToLabel, ToID, Type) tuple; repeated upserts of the
// same identity keep a single edge. Props merge additively on upsert
// (SET r += props), unlike node properties.
type RelationshipSpec struct {
	FromLabel Label
	FromID    string
	ToLabel   Label
	ToID      string
	Type      RelType
	Props     Properties
}

// Batch is a mapper's output for a single source record.
type Batch struct {
	Nodes         map[Label][]Properties
	Relationships []RelationshipSpec
}

func NewBatch() *Batch {
	return &Batch{Nodes: make(map[Label][]Properties)}
}

func (b *Batch) AddNode(label Label, props Properties) {
	b.Nodes[label] = append(b.Nodes[label], props)
}

func (b *Batch) AddRelationship(spec RelationshipSpec) {
	b.Relationships = append(b.Relationships, spec)
}

// Mapper converts one raw source record into a Batch. The sync engine treats
// it as a black box: an error (or panic) fails only that record.
type Mapper func(record map[string]any) (*Batch, error)
