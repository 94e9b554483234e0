package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/pipeline"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Cache.Backend != backendFile {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, backendFile)
	}
	if cfg.Store.Backend != backendSQLite {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, backendSQLite)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Scoring.Mismatch != 0 {
		t.Errorf("Scoring.Mismatch = %d, want 0 (unset)", cfg.Scoring.Mismatch)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := loadConfigFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}

	if cfg.Cache.Backend != backendFile {
		t.Errorf("missing file should fall back to defaults, got cache backend %q", cfg.Cache.Backend)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[scoring]
mismatch = 5
gap_open = 10

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"
prefix = "lab"

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
mongo_database = "poagraph"

[server]
addr = ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}

	if cfg.Scoring.Mismatch != 5 {
		t.Errorf("Scoring.Mismatch = %d, want 5", cfg.Scoring.Mismatch)
	}
	if cfg.Scoring.GapOpen != 10 {
		t.Errorf("Scoring.GapOpen = %d, want 10", cfg.Scoring.GapOpen)
	}
	if cfg.Scoring.GapExtend != 0 {
		t.Errorf("Scoring.GapExtend = %d, want 0 (unset)", cfg.Scoring.GapExtend)
	}
	if cfg.Cache.Backend != backendRedis {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, backendRedis)
	}
	if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("Cache.RedisURL = %q", cfg.Cache.RedisURL)
	}
	if cfg.Cache.Prefix != "lab" {
		t.Errorf("Cache.Prefix = %q, want %q", cfg.Cache.Prefix, "lab")
	}
	if cfg.Store.Backend != backendMongo {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, backendMongo)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
}

func TestLoadConfigFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[scoring]\nmismatch = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		t.Fatalf("loadConfigFile() error: %v", err)
	}

	if cfg.Scoring.Mismatch != 3 {
		t.Errorf("Scoring.Mismatch = %d, want 3", cfg.Scoring.Mismatch)
	}
	// Untouched sections keep their defaults
	if cfg.Cache.Backend != backendFile {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, backendFile)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
}

func TestLoadConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := loadConfigFile(path)
	if err == nil {
		t.Fatal("loadConfigFile() should reject malformed TOML")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}

func TestMergeScoring(t *testing.T) {
	opts := pipeline.Options{
		Mismatch:  pipeline.DefaultMismatch,
		GapOpen:   pipeline.DefaultGapOpen,
		GapExtend: pipeline.DefaultGapExtend,
	}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.Mismatch, "mismatch", opts.Mismatch, "")
	cmd.Flags().IntVar(&opts.GapOpen, "gap-open", opts.GapOpen, "")
	cmd.Flags().IntVar(&opts.GapExtend, "gap-extend", opts.GapExtend, "")

	// The user set --mismatch explicitly; config covers gap-open only.
	if err := cmd.Flags().Set("mismatch", "9"); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Scoring: ScoringConfig{Mismatch: 5, GapOpen: 12}}

	mergeScoring(cmd, cfg, &opts)

	if opts.Mismatch != 9 {
		t.Errorf("Mismatch = %d, want 9 (flag wins over config)", opts.Mismatch)
	}
	if opts.GapOpen != 12 {
		t.Errorf("GapOpen = %d, want 12 (config fills unset flag)", opts.GapOpen)
	}
	if opts.GapExtend != pipeline.DefaultGapExtend {
		t.Errorf("GapExtend = %d, want default %d (config unset)", opts.GapExtend, pipeline.DefaultGapExtend)
	}
}
