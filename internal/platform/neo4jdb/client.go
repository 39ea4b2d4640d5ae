// Package neo4jdb is the graph-store collaborator: driver lifecycle plus a
// thin write-session wrapper that runs parameterized Cypher and surfaces the
// store's created/deleted counters.
package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/basewatch/procurement-graph/internal/pkg/logger"
	"github.com/basewatch/procurement-graph/internal/platform/envutil"
)

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}

	uri := envutil.Str("NEO4J_URI", "bolt://localhost:7687")
	user := envutil.Str("NEO4J_USER", "neo4j")
	password := envutil.Str("NEO4J_PASSWORD", "password")
	database := envutil.Str("NEO4J_DATABASE", "")
	timeoutSec := envutil.Int("NEO4J_TIMEOUT_SECONDS", 10)
	maxPool := envutil.Int("NEO4J_MAX_POOL_SIZE", 50)

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = time.Duration(timeoutSec) * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Result carries the collected records of one statement plus the write
// counters reported by the store. Counters are net effects: re-running an
// upsert over unchanged data reports zero created.
type Result struct {
	Records              []map[string]any
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// Session is one write session, checked out once per sync run and reused
// across all flushes of that run. Not safe for concurrent use.
type Session struct {
	sess neo4j.SessionWithContext
}

func (c *Client) NewWriteSession(ctx context.Context) *Session {
	sess := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	return &Session{sess: sess}
}

func (s *Session) Close(ctx context.Context) error {
	if s == nil || s.sess == nil {
		return nil
	}
	return s.sess.Close(ctx)
}

func (s *Session) Run(ctx context.Context, cypher string, params map[string]any) (*Result, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	out := &Result{}
	for res.Next(ctx) {
		out.Records = append(out.Records, res.Record().AsMap())
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	summary, err := res.Consume(ctx)
	if err != nil {
		return nil, err
	}
	counters := summary.Counters()
	out.NodesCreated = counters.NodesCreated()
	out.NodesDeleted = counters.NodesDeleted()
	out.RelationshipsCreated = counters.RelationshipsCreated()
	out.RelationshipsDeleted = counters.RelationshipsDeleted()
	out.PropertiesSet = counters.PropertiesSet()
	return out, nil
}
