// Package enrich runs the post-load passes: entity resolution for duplicate
// Person nodes and derivation of COMPETED_WITH edges from shared tenders.
// Both passes are idempotent and safe to re-run against an unchanged graph.
package enrich

import (
	"context"
	"fmt"

	"github.com/basewatch/procurement-graph/internal/graph"
	"github.com/basewatch/procurement-graph/internal/pkg/logger"
)

// SyntheticIDPrefix marks Person ids minted from the politically-exposed
// persons source. A node with this prefix duplicates a canonical node when
// both share a display name and an association target.
const SyntheticIDPrefix = "pep:"

// DuplicatePair is one (canonical, duplicate) Person pair sharing a name.
type DuplicatePair struct {
	Name        string
	CanonicalID string
	DuplicateID string
}

// Relationship is one edge touching a Person node, seen from that node's
// perspective.
type Relationship struct {
	Type       graph.RelType
	OtherLabel graph.Label
	OtherID    string
	Props      graph.Properties
	Outgoing   bool
}

// GraphOps is the narrow store surface the enrichment passes need. The Neo4j
// implementation lives in this package; tests substitute an in-memory graph.
type GraphOps interface {
	// FindDuplicatePersons returns every (canonical, duplicate) pair: Person
	// nodes sharing a person_name where one id is synthetic (pep:-prefixed)
	// and the other is not, both associated with some entity.
	FindDuplicatePersons(ctx context.Context) ([]DuplicatePair, error)
	NodeProperties(ctx context.Context, label graph.Label, id string) (graph.Properties, error)
	// UpdateNodeProperties merges props additively onto the node (SET n += $props).
	UpdateNodeProperties(ctx context.Context, label graph.Label, id string, props graph.Properties) error
	// Relationships lists all edges touching the node, both directions.
	Relationships(ctx context.Context, label graph.Label, id string) ([]Relationship, error)
	// MergeRelationship upserts the edge by identity and merges its
	// properties additively (MERGE ... SET r += $props).
	MergeRelationship(ctx context.Context, spec graph.RelationshipSpec) error
	// DeleteNode detaches and deletes the node.
	DeleteNode(ctx context.Context, label graph.Label, id string) error
	// DeriveCompetedWith recomputes competition_count edges between entities
	// that tendered for the same tender; returns the number of edges touched.
	DeriveCompetedWith(ctx context.Context) (int, error)
}

type Result struct {
	Merged                   int
	RelationshipsTransferred int
	DerivedEdges             int
	PairErrors               int
}

type Enricher struct {
	ops GraphOps
	log *logger.Logger
}

func New(ops GraphOps, baseLog *logger.Logger) *Enricher {
	return &Enricher{ops: ops, log: baseLog.With("service", "Enricher")}
}

// Run executes entity resolution and then derived-relationship creation.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	res, err := e.MergeDuplicatePersons(ctx)
	if err != nil {
		return res, err
	}

	derived, err := e.ops.DeriveCompetedWith(ctx)
	if err != nil {
		return res, fmt.Errorf("derive competed-with: %w", err)
	}
	res.DerivedEdges = derived

	e.log.Info("enrichment complete",
		"merged", res.Merged,
		"relationships_transferred", res.RelationshipsTransferred,
		"derived_edges", res.DerivedEdges,
		"pair_errors", res.PairErrors,
	)
	return res, nil
}

// MergeDuplicatePersons folds each synthetic duplicate into its canonical
// node: properties first-write-wins in the canonical's favor, relationships
// transferred with the duplicate's properties winning on shared edges, then
// the duplicate is deleted. A failure on one pair is logged and counted; the
// pass continues with the remaining pairs.
func (e *Enricher) MergeDuplicatePersons(ctx context.Context) (Result, error) {
	var res Result

	pairs, err := e.ops.FindDuplicatePersons(ctx)
	if err != nil {
		return res, fmt.Errorf("find duplicate persons: %w", err)
	}
	if len(pairs) == 0 {
		return res, nil
	}
	e.log.Info("merging duplicate persons", "pairs", len(pairs))

	for _, pair := range pairs {
		transferred, err := e.mergePair(ctx, pair)
		res.RelationshipsTransferred += transferred
		if err != nil {
			res.PairErrors++
			e.log.Error("duplicate merge failed",
				"canonical_id", pair.CanonicalID,
				"duplicate_id", pair.DuplicateID,
				"error", err,
			)
			continue
		}
		res.Merged++
	}
	return res, nil
}

const personLabel graph.Label = "Person"

func (e *Enricher) mergePair(ctx context.Context, pair DuplicatePair) (int, error) {
	canonicalProps, err := e.ops.NodeProperties(ctx, personLabel, pair.CanonicalID)
	if err != nil {
		return 0, fmt.Errorf("read canonical: %w", err)
	}
	dupProps, err := e.ops.NodeProperties(ctx, personLabel, pair.DuplicateID)
	if err != nil {
		return 0, fmt.Errorf("read duplicate: %w", err)
	}

	// Canonical wins at the property level: only fill gaps, never overwrite.
	// The identity property never transfers.
	merged := graph.Properties{"pep": true}
	for k, v := range dupProps {
		if k == graph.IDField {
			continue
		}
		if _, exists := canonicalProps[k]; !exists {
			merged[k] = v
		}
	}
	if err := e.ops.UpdateNodeProperties(ctx, personLabel, pair.CanonicalID, merged); err != nil {
		return 0, fmt.Errorf("merge properties: %w", err)
	}

	rels, err := e.ops.Relationships(ctx, personLabel, pair.DuplicateID)
	if err != nil {
		return 0, fmt.Errorf("list relationships: %w", err)
	}

	transferred := 0
	for _, rel := range rels {
		spec := graph.RelationshipSpec{Type: rel.Type, Props: rel.Props}
		if rel.Outgoing {
			spec.FromLabel, spec.FromID = personLabel, pair.CanonicalID
			spec.ToLabel, spec.ToID = rel.OtherLabel, rel.OtherID
		} else {
			spec.FromLabel, spec.FromID = rel.OtherLabel, rel.OtherID
			spec.ToLabel, spec.ToID = personLabel, pair.CanonicalID
		}
		// MERGE + additive property set covers both cases: a fresh edge gets
		// the duplicate's properties, an existing one has them merged on top
		// (duplicate wins on key conflicts, unlike node properties).
		if err := e.ops.MergeRelationship(ctx, spec); err != nil {
			return transferred, fmt.Errorf("transfer %s edge: %w", rel.Type, err)
		}
		transferred++
	}

	if err := e.ops.DeleteNode(ctx, personLabel, pair.DuplicateID); err != nil {
		return transferred, fmt.Errorf("delete duplicate: %w", err)
	}
	return transferred, nil
}
