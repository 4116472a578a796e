// Package cmd provides the CLI commands for filesearch.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Leonardo4312/filesearch/internal/config"
	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/logging"
	"github.com/Leonardo4312/filesearch/internal/profiling"
	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/Leonardo4312/filesearch/internal/ui"
	"github.com/Leonardo4312/filesearch/pkg/version"
)

// Persistent flags
var (
	configPath string
	debugMode  bool
	noColor    bool

	profileCPU   string
	profileMem   string
	profileTrace string
	profile      *profiling.Session
)

// NewRootCmd creates the root command for the filesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filesearch",
		Short: "Index text files and search them interactively",
		Long: `filesearch indexes the .txt files of a directory tree into a search
engine (Elasticsearch, or an embedded bleve index) and provides an
interactive prompt to search them by file name or content.

  filesearch index      index the configured root directory
  filesearch search     start the query prompt`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("filesearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .filesearch.yaml if present)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging, mirrored to stderr")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startProfiling starts the profiles requested by the --profile-* flags.
func startProfiling(_ *cobra.Command, _ []string) error {
	opts := profiling.Options{CPUPath: profileCPU, HeapPath: profileMem, TracePath: profileTrace}
	if !opts.Enabled() {
		return nil
	}

	s, err := profiling.Start(opts)
	if err != nil {
		return fserrors.InternalError("failed to start profiling", err)
	}
	profile = s
	return nil
}

// stopProfiling flushes the profiles and writes the heap profile if requested.
func stopProfiling(_ *cobra.Command, _ []string) error {
	if profile == nil {
		return nil
	}
	s := profile
	profile = nil
	if err := s.Stop(); err != nil {
		return fserrors.InternalError("failed to write profiles", err)
	}
	return nil
}

// app is the per-command runtime: effective configuration and logger.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

// setup loads the configuration and starts logging.
// The caller must invoke cleanup when done.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.ErrOrStderr(), cfg), nil
}

func newApp(stderr io.Writer, cfg *config.Config) *app {
	logCfg := logging.DefaultConfig(cfg.Logging.FilePath)
	logCfg.Level = cfg.Logging.Level
	if debugMode {
		logCfg = logging.DebugConfig(cfg.Logging.FilePath)
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "warning: file logging disabled: %v\n", err)
		logger, cleanup = logging.Discard(), func() {}
	}
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger, cleanup: cleanup}
}

// openStore builds the configured document store.
func (a *app) openStore() (store.DocumentStore, error) {
	s, err := store.New(store.Options{
		Backend: a.cfg.Engine.Backend,
		URL:     a.cfg.Engine.URL,
		DataDir: a.cfg.Engine.DataDir,
		Timeout: a.cfg.Engine.Timeout,
	})
	if err != nil {
		return nil, fserrors.ConfigError("invalid engine configuration", err)
	}
	return s, nil
}

// styles picks colored styles only for terminals that accept them.
func styles(out io.Writer) ui.Styles {
	return ui.GetStyles(colorDisabled(out))
}

func colorDisabled(out io.Writer) bool {
	return noColor || ui.DetectNoColor() || !ui.IsTTY(out)
}
