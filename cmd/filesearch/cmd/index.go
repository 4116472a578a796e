package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/index"
	"github.com/Leonardo4312/filesearch/internal/output"
	"github.com/Leonardo4312/filesearch/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		noTUI     bool
		indexName string
		batchSize int
		exclude   []string
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index the .txt files of a directory tree",
		Long: `Index every .txt file under the root directory (index.root, or the
path argument) into the configured index.

An existing index with the same name is deleted and recreated, so each
run leaves exactly the files found by this crawl. Documents are keyed by
absolute path and submitted in batches of index.batch_size.

Unreadable files and documents rejected by the engine are reported and
skipped; the run fails only when the engine cannot be reached, the index
cannot be created, or a bulk request cannot be delivered.`,
		Example: `  # Index the configured root
  filesearch index

  # Index a directory into a different index
  filesearch index ~/notes --index notes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			if len(args) > 0 {
				a.cfg.Index.Root = args[0]
			}
			if cmd.Flags().Changed("index") {
				a.cfg.Index.Name = indexName
			}
			if cmd.Flags().Changed("batch-size") {
				a.cfg.Index.BatchSize = batchSize
			}
			a.cfg.Crawl.Exclude = append(a.cfg.Crawl.Exclude, exclude...)
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			return runIndex(ctx, cmd, a, noTUI)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().StringVar(&indexName, "index", "", "Index name (overrides index.name)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Documents per bulk request (overrides index.batch_size)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Additional glob patterns to skip")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, a *app, noTUI bool) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// Quitting the TUI cancels the run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uiCfg := ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(noTUI),
		ui.WithNoColor(colorDisabled(cmd.OutOrStdout())),
		ui.WithRoot(a.cfg.Index.Root),
		ui.WithInterrupt(cancel),
	)
	renderer := ui.NewRenderer(uiCfg)
	if err := renderer.Start(ctx); err != nil {
		a.logger.Warn("failed to start progress renderer", slog.String("error", err.Error()))
	}
	defer func() { _ = renderer.Stop() }()

	runner, err := index.NewRunner(index.RunnerDependencies{
		Store:    st,
		Renderer: renderer,
		Logger:   a.logger,
	})
	if err != nil {
		return fserrors.InternalError("failed to create index runner", err)
	}

	stats, err := runner.Run(ctx, index.RunnerConfig{
		Root:      a.cfg.Index.Root,
		Index:     a.cfg.Index.Name,
		BatchSize: a.cfg.Index.BatchSize,
		Exclude:   a.cfg.Crawl.Exclude,
		LockDir:   a.cfg.Index.LockDir,
	})
	if errors.Is(err, context.Canceled) {
		return fserrors.InternalError("indexing interrupted", err)
	}
	if errors.Is(err, fserrors.ErrBulkTransport) {
		output.NewStyled(cmd.ErrOrStderr(), styles(cmd.ErrOrStderr())).Warningf(
			"Run aborted after %d batches: %d documents indexed, %d failed",
			stats.Batches, stats.Succeeded, stats.Failed)
	}
	return err
}
