// Package sync drives one collection through the fetch -> map -> accumulate ->
// flush pipeline and reports per-run statistics.
package sync

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/basewatch/procurement-graph/internal/graph"
	"github.com/basewatch/procurement-graph/internal/pkg/httpx"
	"github.com/basewatch/procurement-graph/internal/pkg/logger"
	"github.com/basewatch/procurement-graph/internal/platform/neo4jdb"
)

const (
	DefaultBatchSize = 1000

	// CouchDB design/internal documents carry a reserved id prefix and never
	// reach the mapper.
	reservedIDPrefix = "_"
	recordIDField    = "_id"
)

// DocumentStore returns the full contents of a named source collection.
// Implementations handle their own pagination and retry/backoff.
type DocumentStore interface {
	AllDocuments(ctx context.Context, name string) ([]map[string]any, error)
}

// StatementRunner executes one declarative write statement against the graph
// store. A single runner (session) is reused for every flush in a run;
// callers must not share an Engine across goroutines.
type StatementRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (*neo4jdb.Result, error)
}

// FlushPolicy decides what a store failure during a flush does to the run.
type FlushPolicy int

const (
	// FlushBestEffort logs the failure, counts it in Stats.FlushFailures and
	// moves on; the affected entities are missing from the graph for this run.
	FlushBestEffort FlushPolicy = iota
	// FlushFailFast aborts the run on the first flush failure.
	FlushFailFast
)

type Options struct {
	BatchSize    int
	FlushPolicy  FlushPolicy
	FlushRetries int // extra attempts per failed flush statement
	RetryBackoff time.Duration
}

type Engine interface {
	// EnsureSchema creates a uniqueness constraint on the id field of each
	// label. Idempotent; non-fatal failures are logged and skipped.
	EnsureSchema(ctx context.Context, labels []graph.Label) error
	// Sync loads one source collection into the graph. Record-level mapping
	// failures are recorded in the returned Stats and do not stop the run.
	Sync(ctx context.Context, collection string, mapper graph.Mapper) (*Stats, error)
}

type engine struct {
	docs  DocumentStore
	store StatementRunner
	log   *logger.Logger
	opts  Options
}

func NewEngine(docs DocumentStore, store StatementRunner, baseLog *logger.Logger, opts Options) Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	return &engine{
		docs:  docs,
		store: store,
		log:   baseLog.With("service", "SyncEngine"),
		opts:  opts,
	}
}

func (e *engine) EnsureSchema(ctx context.Context, labels []graph.Label) error {
	for _, label := range labels {
		name := strings.ToLower(string(label)) + "_id_unique"
		cypher := fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			name, label, graph.IDField,
		)
		if _, err := e.store.Run(ctx, cypher, nil); err != nil {
			// Restricted users may not hold schema privileges; the sync itself
			// still works without the constraint.
			e.log.Warn("schema init failed (continuing)", "label", label, "error", err)
		}
	}
	return nil
}

func (e *engine) Sync(ctx context.Context, collection string, mapper graph.Mapper) (*Stats, error) {
	stats := &Stats{RunID: uuid.New(), Collection: collection}
	log := e.log.With("collection", collection, "run_id", stats.RunID.String())

	log.Info("fetching source collection")
	fetchStart := time.Now()
	records, err := e.docs.AllDocuments(ctx, collection)
	stats.FetchDuration = time.Since(fetchStart)
	if err != nil {
		return stats, fmt.Errorf("fetch %s: %w", collection, err)
	}
	stats.Fetched = len(records)

	eligible := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if strings.HasPrefix(recordID(rec), reservedIDPrefix) {
			stats.Skipped++
			continue
		}
		eligible = append(eligible, rec)
	}

	windows := (len(eligible) + e.opts.BatchSize - 1) / e.opts.BatchSize
	log.Info("starting sync", "records", len(eligible), "windows", windows, "batch_size", e.opts.BatchSize)

	runStart := time.Now()
	for w := 0; w < windows; w++ {
		lo := w * e.opts.BatchSize
		hi := lo + e.opts.BatchSize
		if hi > len(eligible) {
			hi = len(eligible)
		}

		acc := graph.NewAccumulator()
		mapStart := time.Now()
		for _, rec := range eligible[lo:hi] {
			batch, stack, err := mapRecord(mapper, rec)
			if err != nil {
				stats.Failed++
				stats.Errors = append(stats.Errors, RecordError{RecordID: recordID(rec), Err: err.Error(), Stack: stack})
				log.Error("record mapping failed", "record_id", recordID(rec), "error", err)
				continue
			}
			acc.AddBatch(batch)
			stats.Processed++
		}
		stats.MapDuration += time.Since(mapStart)
		stats.DuplicatesDropped += acc.DuplicatesDropped()

		flushStart := time.Now()
		err := e.flushWindow(ctx, log, acc, stats)
		stats.FlushDuration += time.Since(flushStart)
		if err != nil {
			return stats, err
		}

		done := stats.Processed + stats.Failed
		rate := float64(done) / time.Since(runStart).Seconds()
		var eta time.Duration
		if rate > 0 {
			eta = time.Duration(float64(len(eligible)-done) / rate * float64(time.Second))
		}
		log.Info("window flushed",
			"window", w+1,
			"windows", windows,
			"records", done,
			"duplicates_dropped", acc.DuplicatesDropped(),
			"rate_per_sec", fmt.Sprintf("%.0f", rate),
			"eta", eta.Round(time.Second).String(),
		)
	}

	log.Info("sync complete", "summary", stats.Summary())
	return stats, nil
}

// flushWindow writes one window in two phases: every node buffer first, then
// the relationships. Relationship statements MATCH their endpoints by id and
// silently create nothing for endpoints not yet written, so the order is an
// invariant of the engine, not of the call site.
func (e *engine) flushWindow(ctx context.Context, log *logger.Logger, acc *graph.Accumulator, stats *Stats) error {
	for _, label := range acc.Labels() {
		items := acc.Nodes(label)
		if len(items) == 0 {
			continue
		}
		stmt := graph.BuildNodeUpsert(label, graph.IDField, items)
		res, err := e.execute(ctx, stmt)
		if err != nil {
			if e.opts.FlushPolicy == FlushFailFast {
				return fmt.Errorf("flush nodes %s: %w", label, err)
			}
			stats.FlushFailures++
			log.Error("node flush failed", "label", label, "items", len(items), "error", err)
			continue
		}
		stats.NodesCreated += res.NodesCreated
	}

	for _, stmt := range graph.BuildRelationshipUpserts(acc.Relationships()) {
		res, err := e.execute(ctx, stmt)
		if err != nil {
			if e.opts.FlushPolicy == FlushFailFast {
				return fmt.Errorf("flush relationships: %w", err)
			}
			stats.FlushFailures++
			log.Error("relationship flush failed", "error", err)
			continue
		}
		stats.RelationshipsCreated += res.RelationshipsCreated
	}
	return nil
}

func (e *engine) execute(ctx context.Context, stmt graph.Statement) (*neo4jdb.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.FlushRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.Backoff(e.opts.RetryBackoff, attempt-1)):
			}
		}
		res, err := e.store.Run(ctx, stmt.Cypher, stmt.Params)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// mapRecord shields the run from a misbehaving mapper: a panic becomes a
// record-level error like any other mapping failure, with the stack kept for
// the error entry.
func mapRecord(mapper graph.Mapper, record map[string]any) (batch *graph.Batch, stack string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mapper panic: %v", r)
			stack = string(debug.Stack())
		}
	}()
	batch, err = mapper(record)
	return batch, "", err
}

func recordID(record map[string]any) string {
	id, _ := record[recordIDField].(string)
	return id
}
