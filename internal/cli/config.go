package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/pipeline"
)

// =============================================================================
// Config File
// =============================================================================

// Cache and store backend names accepted in config.toml.
const (
	backendFile   = "file"
	backendRedis  = "redis"
	backendSQLite = "sqlite"
	backendMongo  = "mongo"
	backendNone   = "none"
)

// Config holds settings read from ~/.config/poagraph/config.toml. Every
// field is optional; zero values fall back to built-in defaults. Command
// flags always win over config values.
type Config struct {
	Scoring ScoringConfig `toml:"scoring"`
	Cache   CacheConfig   `toml:"cache"`
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
}

// ScoringConfig overrides the default alignment penalties. Zero means
// "use the built-in default" so a partial [scoring] table works.
type ScoringConfig struct {
	Mismatch  int `toml:"mismatch"`
	GapOpen   int `toml:"gap_open"`
	GapExtend int `toml:"gap_extend"`
}

// CacheConfig selects the artifact cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"`   // file (default), redis, none
	RedisURL string `toml:"redis_url"` // redis:// URL, required for the redis backend
	Prefix   string `toml:"prefix"`    // optional key namespace
}

// StoreConfig selects where named graphs are persisted.
type StoreConfig struct {
	Backend       string `toml:"backend"`        // sqlite (default), mongo, none
	Path          string `toml:"path"`           // sqlite database file
	MongoURI      string `toml:"mongo_uri"`      // mongodb:// URI, required for the mongo backend
	MongoDatabase string `toml:"mongo_database"` // database name, required for the mongo backend
}

// ServerConfig holds defaults for the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"` // listen address, e.g. ":8080"
}

// defaultConfig returns the configuration used when no config file exists.
func defaultConfig() *Config {
	return &Config{
		Cache:  CacheConfig{Backend: backendFile},
		Store:  StoreConfig{Backend: backendSQLite},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// loadConfigFile reads the config file at path, falling back to defaults
// when the file does not exist. A file that exists but fails to parse is
// an error; silently ignoring it would mask typos.
func loadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = backendFile
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = backendSQLite
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	return cfg, nil
}

// mergeScoring copies config scoring values into opts for flags the user
// did not set on the command line.
func mergeScoring(cmd *cobra.Command, cfg *Config, opts *pipeline.Options) {
	if !cmd.Flags().Changed("mismatch") && cfg.Scoring.Mismatch != 0 {
		opts.Mismatch = cfg.Scoring.Mismatch
	}
	if !cmd.Flags().Changed("gap-open") && cfg.Scoring.GapOpen != 0 {
		opts.GapOpen = cfg.Scoring.GapOpen
	}
	if !cmd.Flags().Changed("gap-extend") && cfg.Scoring.GapExtend != 0 {
		opts.GapExtend = cfg.Scoring.GapExtend
	}
}

// =============================================================================
// Paths
// =============================================================================

// configPath returns the config file location using the XDG standard
// (~/.config/poagraph/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// dataDir returns the data directory using the XDG standard
// (~/.local/share/poagraph/). The default SQLite graph library lives here.
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}
