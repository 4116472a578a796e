package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Leonardo4312/filesearch/internal/telemetry"
	"github.com/Leonardo4312/filesearch/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
		indexName  string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query statistics",
		Long: `Display statistics from the local query log: number of queries,
zero-result and failed queries, cache hits, average latency, the most
searched terms and the terms that matched nothing.

The log is written by 'filesearch search' when telemetry.enabled is true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			if cmd.Flags().Changed("index") {
				a.cfg.Index.Name = indexName
			}

			rec, err := telemetry.Open(a.cfg.Telemetry.Path)
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()

			info, err := collectStats(cmd, rec, a.cfg.Index.Name, limit)
			if err != nil {
				return err
			}

			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), colorDisabled(cmd.OutOrStdout()))
			if jsonOutput {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of terms to list")
	cmd.Flags().StringVar(&indexName, "index", "", "Index name (overrides index.name)")

	return cmd
}

func collectStats(cmd *cobra.Command, rec *telemetry.SQLiteStore, index string, limit int) (ui.QueryStatsInfo, error) {
	ctx := cmd.Context()

	sum, err := rec.Summary(ctx, index)
	if err != nil {
		return ui.QueryStatsInfo{}, err
	}
	top, err := rec.TopTerms(ctx, index, limit)
	if err != nil {
		return ui.QueryStatsInfo{}, err
	}
	zero, err := rec.ZeroResultTerms(ctx, index, limit)
	if err != nil {
		return ui.QueryStatsInfo{}, err
	}

	return ui.QueryStatsInfo{
		Index:        index,
		TotalQueries: sum.TotalQueries,
		ZeroResults:  sum.ZeroResults,
		Failures:     sum.Failures,
		CacheHits:    sum.CacheHits,
		AvgLatency:   sum.AvgLatency,
		LastQuery:    sum.LastQuery,
		TopTerms:     toUITerms(top),
		ZeroTerms:    toUITerms(zero),
	}, nil
}

func toUITerms(terms []telemetry.TermCount) []ui.TermCount {
	out := make([]ui.TermCount, 0, len(terms))
	for _, t := range terms {
		out = append(out, ui.TermCount{Field: t.Field, Term: t.Term, Count: t.Count})
	}
	return out
}
