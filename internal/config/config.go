// Package config loads and validates filesearch configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config (~/.config/filesearch/config.yaml)
//  3. Project config (--config file, or .filesearch.yaml in the working directory)
//  4. Environment variables (FILESEARCH_*)
//
// The resulting Config is built once at startup and passed explicitly to each
// component; nothing reads it through a global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
)

// Backend names accepted by engine.backend.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "FILESEARCH"

// ProjectConfigName is the project-level config file looked up in the working directory.
const ProjectConfigName = ".filesearch.yaml"

// Config represents the complete filesearch configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Engine    EngineConfig    `yaml:"engine" json:"engine"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	Query     QueryConfig     `yaml:"query" json:"query"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// EngineConfig selects and addresses the document store.
type EngineConfig struct {
	// Backend is "elasticsearch" (remote engine over HTTP) or "bleve" (embedded).
	Backend string `yaml:"backend" json:"backend"`
	// URL is the Elasticsearch endpoint.
	URL string `yaml:"url" json:"url"`
	// DataDir holds bleve indexes, one directory per index name.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// Timeout bounds each engine request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// IndexConfig configures the indexing run.
type IndexConfig struct {
	Name      string `yaml:"name" json:"name"`
	Root      string `yaml:"root" json:"root"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	// LockDir holds the per-index lock files taken during an indexing run.
	LockDir string `yaml:"lock_dir" json:"lock_dir"`
}

// CrawlConfig configures the directory crawl.
type CrawlConfig struct {
	// Exclude lists glob patterns matched against the relative path and the base name.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// QueryConfig configures the interactive query loop.
type QueryConfig struct {
	MaxResults  int    `yaml:"max_results" json:"max_results"`
	CacheSize   int    `yaml:"cache_size" json:"cache_size"` // 0 disables the response cache
	HistoryFile string `yaml:"history_file" json:"history_file"`
}

// TelemetryConfig configures the local query log.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// envOverrides maps FILESEARCH_* variables.
type envOverrides struct {
	Backend    string `envconfig:"BACKEND"`
	EngineURL  string `envconfig:"ENGINE_URL"`
	DataDir    string `envconfig:"DATA_DIR"`
	Index      string `envconfig:"INDEX"`
	Root       string `envconfig:"ROOT"`
	BatchSize  int    `envconfig:"BATCH_SIZE"`
	MaxResults int    `envconfig:"MAX_RESULTS"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	Telemetry  string `envconfig:"TELEMETRY"`
}

// DefaultHomeDir returns ~/.filesearch, falling back to the temp directory.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".filesearch")
	}
	return filepath.Join(home, ".filesearch")
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	home := DefaultHomeDir()
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			Backend: BackendElasticsearch,
			URL:     "http://localhost:9200",
			DataDir: filepath.Join(home, "indexes"),
			Timeout: 30 * time.Second,
		},
		Index: IndexConfig{
			Name:      "file_indexer",
			Root:      ".",
			BatchSize: 500,
			LockDir:   filepath.Join(home, "locks"),
		},
		Crawl: CrawlConfig{
			Exclude: []string{},
		},
		Query: QueryConfig{
			MaxResults:  10,
			CacheSize:   128,
			HistoryFile: filepath.Join(home, "history"),
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Path:    filepath.Join(home, "telemetry.db"),
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: filepath.Join(home, "logs", "filesearch.log"),
		},
	}
}

// GetUserConfigPath returns the user configuration path, honoring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "filesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "filesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "filesearch", "config.yaml")
}

// Load builds the effective configuration.
// explicitPath, when set, must exist; otherwise .filesearch.yaml in the
// working directory is used if present.
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	// Step 1: user config (optional)
	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	// Step 2: project config
	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, fserrors.ConfigError("config file not found: "+explicitPath, nil)
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, err
		}
	} else if fileExists(ProjectConfigName) {
		if err := cfg.loadYAML(ProjectConfigName); err != nil {
			return nil, err
		}
	}

	// Step 3: environment
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.expandPaths()
	cfg.normalize()

	// Step 4: validate the final configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML overlays the values present in a YAML file onto c.
// Keys absent from the file keep their current value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fserrors.ConfigError("failed to read config file "+path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fserrors.ConfigError("failed to parse config file "+path, err)
	}
	return nil
}

// applyEnvOverrides applies FILESEARCH_* variables (highest precedence).
func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fserrors.ConfigError("invalid environment override", err)
	}

	if env.Backend != "" {
		c.Engine.Backend = env.Backend
	}
	if env.EngineURL != "" {
		c.Engine.URL = env.EngineURL
	}
	if env.DataDir != "" {
		c.Engine.DataDir = env.DataDir
	}
	if env.Index != "" {
		c.Index.Name = env.Index
	}
	if env.Root != "" {
		c.Index.Root = env.Root
	}
	if env.BatchSize != 0 {
		c.Index.BatchSize = env.BatchSize
	}
	if env.MaxResults != 0 {
		c.Query.MaxResults = env.MaxResults
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.Telemetry != "" {
		enabled, err := strconv.ParseBool(env.Telemetry)
		if err != nil {
			return fserrors.ConfigError(EnvPrefix+"_TELEMETRY must be a boolean, got "+env.Telemetry, err)
		}
		c.Telemetry.Enabled = enabled
	}
	return nil
}

// normalize canonicalizes enumerated settings so that "Bleve" and
// "bleve" select the same backend.
func (c *Config) normalize() {
	c.Engine.Backend = strings.ToLower(strings.TrimSpace(c.Engine.Backend))
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths() {
	c.Engine.DataDir = expandHome(c.Engine.DataDir)
	c.Index.Root = expandHome(c.Index.Root)
	c.Index.LockDir = expandHome(c.Index.LockDir)
	c.Query.HistoryFile = expandHome(c.Query.HistoryFile)
	c.Telemetry.Path = expandHome(c.Telemetry.Path)
	c.Logging.FilePath = expandHome(c.Logging.FilePath)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case BackendElasticsearch:
		if c.Engine.URL == "" {
			return fserrors.ConfigError("engine.url is required for the elasticsearch backend", nil)
		}
		// Elasticsearch rejects index names with uppercase letters.
		if c.Index.Name != strings.ToLower(c.Index.Name) {
			return fserrors.ConfigError(fmt.Sprintf("index.name must be lowercase, got %q", c.Index.Name), nil)
		}
	case BackendBleve:
	default:
		return fserrors.ConfigError(fmt.Sprintf("engine.backend must be 'elasticsearch' or 'bleve', got %q", c.Engine.Backend), nil)
	}

	if strings.TrimSpace(c.Index.Name) == "" {
		return fserrors.ConfigError("index.name is required", nil)
	}
	if c.Index.Root == "" {
		return fserrors.ConfigError("index.root is required", nil)
	}
	if c.Index.BatchSize <= 0 {
		return fserrors.ConfigError(fmt.Sprintf("index.batch_size must be positive, got %d", c.Index.BatchSize), nil)
	}
	if c.Query.MaxResults <= 0 {
		return fserrors.ConfigError(fmt.Sprintf("query.max_results must be positive, got %d", c.Query.MaxResults), nil)
	}
	if c.Query.CacheSize < 0 {
		return fserrors.ConfigError(fmt.Sprintf("query.cache_size must be non-negative, got %d", c.Query.CacheSize), nil)
	}
	if c.Engine.Timeout < 0 {
		return fserrors.ConfigError("engine.timeout must be non-negative", nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fserrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	for _, pattern := range c.Crawl.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fserrors.ConfigError(fmt.Sprintf("crawl.exclude has a malformed pattern %q", pattern), err)
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a regular file exists.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
