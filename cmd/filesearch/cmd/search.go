package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Leonardo4312/filesearch/internal/output"
	"github.com/Leonardo4312/filesearch/internal/query"
	"github.com/Leonardo4312/filesearch/internal/telemetry"
)

func newSearchCmd() *cobra.Command {
	var (
		indexName  string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the index interactively",
		Long: `Start an interactive prompt that searches the configured index.

Query syntax:
  nome <terms>              match file names
  contenuto <terms>         match file content
  contenuto "exact phrase"  match an exact phrase in file content

Type 'esci', 'exit' or 'quit' (or press Ctrl+C) to leave. When stdin is
not a terminal, queries are read one per line until end of input.`,
		Example: `  # Interactive session
  filesearch search

  # Scripted queries
  printf 'nome report\ncontenuto "annual report"\n' | filesearch search`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			if cmd.Flags().Changed("index") {
				a.cfg.Index.Name = indexName
			}
			if cmd.Flags().Changed("max-results") {
				a.cfg.Query.MaxResults = maxResults
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			return runSearch(ctx, cmd, a)
		},
	}

	cmd.Flags().StringVar(&indexName, "index", "", "Index name (overrides index.name)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Hits shown per query (overrides query.max_results)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	recorder := openRecorder(a)
	defer func() { _ = recorder.Close() }()

	searcher := query.NewSearcher(st, a.cfg.Index.Name, a.cfg.Query.MaxResults,
		query.WithCacheSize(a.cfg.Query.CacheSize),
		query.WithRecorder(recorder),
		query.WithSearchLogger(a.logger),
	)
	if err := searcher.CheckIndex(ctx); err != nil {
		return err
	}

	s := styles(out)
	output.NewStyled(out, s).Successf("Connected to %s", st.Endpoint())
	a.logger.Info("search_session_started",
		slog.String("index", a.cfg.Index.Name),
		slog.String("endpoint", st.Endpoint()))

	reader := query.NewLineReader(cmd.InOrStdin(), out, a.cfg.Query.HistoryFile)
	defer func() { _ = reader.Close() }()

	loop := query.NewLoop(reader, searcher, out,
		query.WithStyles(s),
		query.WithLoopLogger(a.logger),
	)
	return loop.Run(ctx)
}

// openRecorder opens the telemetry store. Telemetry problems never block
// searching; they fall back to a no-op recorder.
func openRecorder(a *app) telemetry.Recorder {
	if !a.cfg.Telemetry.Enabled {
		return telemetry.Nop{}
	}
	rec, err := telemetry.Open(a.cfg.Telemetry.Path)
	if err != nil {
		a.logger.Warn("telemetry_unavailable", slog.String("error", err.Error()))
		return telemetry.Nop{}
	}
	return rec
}
