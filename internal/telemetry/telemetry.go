// Package telemetry records executed queries in a local SQLite database.
// Nothing is reported outside the machine.
package telemetry

import (
	"context"
	"time"
)

// Event is one executed query.
type Event struct {
	Index     string
	Field     string
	Mode      string
	Term      string
	Total     int
	Latency   time.Duration
	CacheHit  bool
	Failed    bool
	Timestamp time.Time
}

// IsZeroResult returns true if the query succeeded without matches.
func (e Event) IsZeroResult() bool {
	return !e.Failed && e.Total == 0
}

// TermCount is a searched term with its frequency.
type TermCount struct {
	Field string `json:"field"`
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Summary aggregates the events recorded for one index.
type Summary struct {
	TotalQueries int
	ZeroResults  int
	Failures     int
	CacheHits    int
	AvgLatency   time.Duration
	LastQuery    time.Time
}

// Recorder persists query events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. It is used when telemetry is disabled.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) error { return nil }

// Close implements Recorder.
func (Nop) Close() error { return nil }

var (
	_ Recorder = Nop{}
	_ Recorder = (*SQLiteStore)(nil)
)
