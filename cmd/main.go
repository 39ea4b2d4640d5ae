package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/basewatch/procurement-graph/internal/app"
	"github.com/basewatch/procurement-graph/internal/enrich"
	"github.com/basewatch/procurement-graph/internal/mappers"
	"github.com/basewatch/procurement-graph/internal/pkg/logger"
	"github.com/basewatch/procurement-graph/internal/platform/couchdb"
	"github.com/basewatch/procurement-graph/internal/platform/envutil"
	"github.com/basewatch/procurement-graph/internal/platform/neo4jdb"
	"github.com/basewatch/procurement-graph/internal/sync"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Run plan
	pipeline := app.CurrentPipeline(log)
	flushPolicy := sync.FlushBestEffort
	if strings.EqualFold(envutil.Str("SYNC_FLUSH_POLICY", "best_effort"), "fail_fast") {
		flushPolicy = sync.FlushFailFast
	}
	flushRetries := envutil.Int("SYNC_FLUSH_RETRIES", 2)
	runEnrichment := envutil.Bool("SYNC_ENRICHMENT", pipeline.Enrichment)

	// Document store
	log.Info("Connecting to document store...")
	docs, err := couchdb.NewFromEnv(log)
	if err != nil {
		log.Fatal("CouchDB init failed", "error", err)
	}

	// Graph store
	log.Info("Connecting to graph store...")
	graphDB, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Fatal("Neo4j init failed", "error", err)
	}
	defer graphDB.Close(ctx)

	session := graphDB.NewWriteSession(ctx)
	defer session.Close(ctx)

	// Schema
	schemaEngine := sync.NewEngine(docs, session, log, sync.Options{})
	if err := schemaEngine.EnsureSchema(ctx, mappers.Labels()); err != nil {
		log.Warn("schema init failed", "error", err)
	}

	// Sync
	for _, step := range pipeline.Steps {
		mapper, ok := mappers.Lookup(step.Mapper)
		if !ok {
			log.Fatal("unknown mapper", "mapper", step.Mapper, "collection", step.Collection)
		}

		engine := sync.NewEngine(docs, session, log, sync.Options{
			BatchSize:    step.BatchSize,
			FlushPolicy:  flushPolicy,
			FlushRetries: flushRetries,
		})
		stats, err := engine.Sync(ctx, step.Collection, mapper)
		if err != nil {
			log.Fatal("sync failed", "collection", step.Collection, "error", err, "summary", stats.Summary())
		}
	}

	// Enrichment
	if runEnrichment {
		enricher := enrich.New(enrich.NewNeo4jOps(session), log)
		if _, err := enricher.Run(ctx); err != nil {
			log.Fatal("enrichment failed", "error", err)
		}
	}

	log.Info("run complete")
}
