package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	stage  Stage
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stage = event.Stage

	// Format: [STAGE] message, or batch counters while indexing
	switch {
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	case event.Batches > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] batch %d - %d indexed, %d failed\n",
			event.Stage.Icon(), event.Batches, event.Indexed, event.Failed)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}

	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Indexing complete: %d documents indexed into %q in %s\n",
		stats.Indexed, stats.Index, stats.Duration.Round(10*time.Millisecond))
	_, _ = fmt.Fprintf(r.out, "  Failed documents: %d\n", stats.Failed)
	if stats.ReadFailures > 0 {
		_, _ = fmt.Fprintf(r.out, "  Unreadable files: %d\n", stats.ReadFailures)
	}
	_, _ = fmt.Fprintf(r.out, "  Batches:          %d\n", stats.Batches)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
