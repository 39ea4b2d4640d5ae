package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordError is one record-level mapping failure. The run continues past
// these; they are reported in the final summary. Stack is populated only when
// the mapper panicked.
type RecordError struct {
	RecordID string
	Err      string
	Stack    string
}

// Stats is the per-run scorecard, created fresh for every Sync call and
// returned to the caller. Counters reflect what the store reported, so a
// second run over unchanged data shows zero created nodes/relationships.
type Stats struct {
	RunID      uuid.UUID
	Collection string

	Fetched   int
	Skipped   int // reserved-prefix records excluded before mapping
	Processed int
	Failed    int

	NodesCreated         int
	RelationshipsCreated int
	DuplicatesDropped    int
	FlushFailures        int

	FetchDuration time.Duration
	MapDuration   time.Duration
	FlushDuration time.Duration

	Errors []RecordError
}

const summaryErrorLimit = 10

// Summary renders the textual end-of-run report: totals, per-phase timings
// and the first few record errors.
func (s *Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sync %s: %d fetched, %d processed, %d failed, %d skipped\n",
		s.Collection, s.Fetched, s.Processed, s.Failed, s.Skipped)
	fmt.Fprintf(&b, "  nodes created: %d, relationships created: %d, duplicates dropped: %d, flush failures: %d\n",
		s.NodesCreated, s.RelationshipsCreated, s.DuplicatesDropped, s.FlushFailures)
	fmt.Fprintf(&b, "  fetch %s, map %s, flush %s\n",
		s.FetchDuration.Round(time.Millisecond),
		s.MapDuration.Round(time.Millisecond),
		s.FlushDuration.Round(time.Millisecond))
	if len(s.Errors) > 0 {
		fmt.Fprintf(&b, "  %d record errors (showing up to %d):\n", len(s.Errors), summaryErrorLimit)
		for i, re := range s.Errors {
			if i == summaryErrorLimit {
				break
			}
			fmt.Fprintf(&b, "    %s: %s\n", re.RecordID, re.Err)
		}
	}
	return b.String()
}
