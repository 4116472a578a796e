package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// maxEvents bounds the table size; the oldest rows are trimmed first.
const maxEvents = 10000

// SQLiteStore keeps query events in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the telemetry database at path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas directly.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %q: %w", p, err)
		}
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the telemetry tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		index_name TEXT NOT NULL,
		field TEXT NOT NULL,
		mode TEXT NOT NULL,
		term TEXT NOT NULL,
		total INTEGER NOT NULL,
		latency_us INTEGER NOT NULL,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_query_events_index ON query_events(index_name, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (s *SQLiteStore) Record(ctx context.Context, e Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_events (ts, index_name, field, mode, term, total, latency_us, cache_hit, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts.UnixNano(), e.Index, e.Field, e.Mode, e.Term, e.Total, e.Latency.Microseconds(), e.CacheHit, e.Failed)
	if err != nil {
		return fmt.Errorf("insert query event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM query_events
		WHERE id <= (SELECT MAX(id) FROM query_events) - ?
	`, maxEvents)
	if err != nil {
		return fmt.Errorf("trim query events: %w", err)
	}
	return nil
}

// Summary aggregates the events recorded for index.
func (s *SQLiteStore) Summary(ctx context.Context, index string) (Summary, error) {
	var (
		sum        Summary
		avgLatency sql.NullFloat64
		lastTS     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN failed = 0 AND total = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(failed), 0),
			COALESCE(SUM(cache_hit), 0),
			AVG(latency_us),
			MAX(ts)
		FROM query_events
		WHERE index_name = ?
	`, index).Scan(&sum.TotalQueries, &sum.ZeroResults, &sum.Failures, &sum.CacheHits, &avgLatency, &lastTS)
	if err != nil {
		return Summary{}, fmt.Errorf("query summary: %w", err)
	}

	if avgLatency.Valid {
		sum.AvgLatency = time.Duration(avgLatency.Float64) * time.Microsecond
	}
	if lastTS.Valid {
		sum.LastQuery = time.Unix(0, lastTS.Int64)
	}
	return sum, nil
}

// TopTerms returns the most searched terms for index.
func (s *SQLiteStore) TopTerms(ctx context.Context, index string, limit int) ([]TermCount, error) {
	return s.termCounts(ctx, `
		SELECT field, term, COUNT(*) AS n
		FROM query_events
		WHERE index_name = ? AND failed = 0
		GROUP BY field, term
		ORDER BY n DESC, MAX(ts) DESC
		LIMIT ?
	`, index, limit)
}

// ZeroResultTerms returns the most searched terms that matched nothing.
func (s *SQLiteStore) ZeroResultTerms(ctx context.Context, index string, limit int) ([]TermCount, error) {
	return s.termCounts(ctx, `
		SELECT field, term, COUNT(*) AS n
		FROM query_events
		WHERE index_name = ? AND failed = 0 AND total = 0
		GROUP BY field, term
		ORDER BY n DESC, MAX(ts) DESC
		LIMIT ?
	`, index, limit)
}

func (s *SQLiteStore) termCounts(ctx context.Context, query, index string, limit int) ([]TermCount, error) {
	rows, err := s.db.QueryContext(ctx, query, index, limit)
	if err != nil {
		return nil, fmt.Errorf("query term counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Field, &tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// Close implements Recorder.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
