package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TermCount is a query term with the number of times it was searched.
type TermCount struct {
	Field string `json:"field"`
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// QueryStatsInfo summarizes the recorded query history.
type QueryStatsInfo struct {
	Index        string        `json:"index"`
	TotalQueries int           `json:"total_queries"`
	ZeroResults  int           `json:"zero_results"`
	Failures     int           `json:"failures"`
	CacheHits    int           `json:"cache_hits"`
	AvgLatency   time.Duration `json:"avg_latency_ns"`
	LastQuery    time.Time     `json:"last_query"`
	TopTerms     []TermCount   `json:"top_terms"`
	ZeroTerms    []TermCount   `json:"zero_result_terms"`
}

// StatusRenderer displays query statistics.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays stats to the terminal.
func (r *StatusRenderer) Render(info QueryStatsInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Query Stats: "+info.Index))

	if info.TotalQueries == 0 {
		_, _ = fmt.Fprintln(r.out, "  No queries recorded yet.")
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  Queries:      %d\n", info.TotalQueries)
	_, _ = fmt.Fprintf(r.out, "  Zero results: %s\n", r.renderRatio(info.ZeroResults, info.TotalQueries))
	_, _ = fmt.Fprintf(r.out, "  Failures:     %s\n", r.renderFailures(info.Failures))
	_, _ = fmt.Fprintf(r.out, "  Cache hits:   %d\n", info.CacheHits)
	_, _ = fmt.Fprintf(r.out, "  Avg latency:  %s\n", info.AvgLatency.Round(time.Microsecond))
	if !info.LastQuery.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last query:   %s\n", formatTime(info.LastQuery))
	}

	r.renderTerms("Top terms", info.TopTerms)
	r.renderTerms("Terms with no results", info.ZeroTerms)
	return nil
}

func (r *StatusRenderer) renderTerms(title string, terms []TermCount) {
	if len(terms) == 0 {
		return
	}
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "  %s:\n", title)
	for _, t := range terms {
		_, _ = fmt.Fprintf(r.out, "    %4d  %s %s\n", t.Count, r.styles.Label.Render(t.Field), t.Term)
	}
}

// RenderJSON outputs stats as JSON.
func (r *StatusRenderer) RenderJSON(info QueryStatsInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderRatio(n, total int) string {
	pct := float64(n) / float64(total) * 100
	s := fmt.Sprintf("%d (%.0f%%)", n, pct)
	if pct >= 50 {
		return r.styles.Warning.Render(s)
	}
	return s
}

func (r *StatusRenderer) renderFailures(n int) string {
	s := fmt.Sprint(n)
	if n > 0 {
		return r.styles.Error.Render(s)
	}
	return s
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
