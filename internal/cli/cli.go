// Package cli implements the poagraph command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/buildinfo"
	"github.com/poagraph/poagraph/pkg/cache"
	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/pipeline"
	"github.com/poagraph/poagraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "poagraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfgOnce sync.Once
	cfg     *Config
	cfgErr  error
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "poagraph",
		Short:        "Poagraph aligns sequences into partial order graphs",
		Long:         `Poagraph is a CLI tool for building partial order alignment graphs from sequences, extracting multiple sequence alignments, and exporting the graphs as FASTA, GFA, or Graphviz renderings.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.alignCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.graphsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the config file once and memoizes the result.
func (c *CLI) config() (*Config, error) {
	c.cfgOnce.Do(func() {
		path, err := configPath()
		if err != nil {
			c.cfg = defaultConfig()
			return
		}
		c.cfg, c.cfgErr = loadConfigFile(path)
	})
	return c.cfg, c.cfgErr
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner with the configured cache backend.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	artifactCache, keyer, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(artifactCache, keyer, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, cache.Keyer, error) {
	if noCache {
		return cache.NewNullCache(), nil, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}

	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Prefix)
	}

	switch cfg.Cache.Backend {
	case backendFile:
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), keyer, nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, nil, err
		}
		return fc, keyer, nil
	case backendRedis:
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rc, keyer, nil
	case backendNone:
		return cache.NewNullCache(), keyer, nil
	default:
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q, want file, redis, or none", cfg.Cache.Backend)
	}
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore opens the configured graph store. The caller owns Close.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case backendSQLite:
		path := cfg.Store.Path
		if path == "" {
			dir, err := dataDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "graphs.db")
		}
		return store.OpenSQLite(path)
	case backendMongo:
		return store.OpenMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	case backendNone:
		return nil, errors.New(errors.ErrCodeUnsupported, "graph store is disabled in the config")
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q, want sqlite, mongo, or none", cfg.Store.Backend)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/poagraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
