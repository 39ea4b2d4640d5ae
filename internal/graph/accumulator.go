package graph

// Accumulator collects mapped batches for one sync window and deduplicates
// nodes before flush. For a given (label, id) the first property map seen
// wins; later duplicates are dropped and counted. Items without a usable id
// are dropped silently — a missing id is a mapper contract violation, not a
// runtime fault worth an error entry.
//
// Relationships are buffered flat; grouping by type happens in the query
// generator because the type cannot be a statement parameter.
type Accumulator struct {
	labelOrder []Label
	nodes      map[Label]*labelBuffer

	rels []RelationshipSpec

	duplicatesDropped int
	missingIDDropped  int
}

type labelBuffer struct {
	seen  map[string]struct{}
	items []Properties
}

func NewAccumulator() *Accumulator {
	return &Accumulator{nodes: make(map[Label]*labelBuffer)}
}

func (a *Accumulator) AddBatch(b *Batch) {
	if b == nil {
		return
	}
	for label, items := range b.Nodes {
		for _, props := range items {
			a.AddNode(label, props)
		}
	}
	for _, rel := range b.Relationships {
		a.AddRelationship(rel)
	}
}

func (a *Accumulator) AddNode(label Label, props Properties) {
	id := stringID(props[IDField])
	if id == "" {
		a.missingIDDropped++
		return
	}
	buf, ok := a.nodes[label]
	if !ok {
		buf = &labelBuffer{seen: make(map[string]struct{})}
		a.nodes[label] = buf
		a.labelOrder = append(a.labelOrder, label)
	}
	if _, dup := buf.seen[id]; dup {
		a.duplicatesDropped++
		return
	}
	buf.seen[id] = struct{}{}
	buf.items = append(buf.items, props)
}

func (a *Accumulator) AddRelationship(rel RelationshipSpec) {
	if rel.FromID == "" || rel.ToID == "" || rel.Type == "" {
		a.missingIDDropped++
		return
	}
	a.rels = append(a.rels, rel)
}

// Labels returns the populated labels in first-seen order.
func (a *Accumulator) Labels() []Label {
	return a.labelOrder
}

func (a *Accumulator) Nodes(label Label) []Properties {
	buf, ok := a.nodes[label]
	if !ok {
		return nil
	}
	return buf.items
}

func (a *Accumulator) Relationships() []RelationshipSpec {
	return a.rels
}

func (a *Accumulator) NodeCount() int {
	n := 0
	for _, buf := range a.nodes {
		n += len(buf.items)
	}
	return n
}

func (a *Accumulator) DuplicatesDropped() int {
	return a.duplicatesDropped
}

func stringID(v any) string {
	s, _ := v.(string)
	return s
}
