package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poagraph/poagraph/pkg/cache"
	"github.com/poagraph/poagraph/pkg/errors"
)

// writeConfig points XDG_CONFIG_HOME at a temp dir holding the given
// config.toml content.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()

	want := []string{"align", "visualize", "view", "graphs", "serve", "cache", "completion"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command is missing the %q subcommand", name)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)

	c.SetLogLevel(LogDebug)
	if c.Logger.GetLevel() != LogDebug {
		t.Errorf("level = %v, want %v", c.Logger.GetLevel(), LogDebug)
	}
}

func TestNewCacheDisabled(t *testing.T) {
	c := New(io.Discard, LogInfo)

	got, keyer, err := c.newCache(true)
	if err != nil {
		t.Fatalf("newCache(true) error: %v", err)
	}
	if _, ok := got.(*cache.NullCache); !ok {
		t.Errorf("newCache(true) = %T, want *cache.NullCache", got)
	}
	if keyer != nil {
		t.Errorf("keyer = %v, want nil when caching is off", keyer)
	}
}

func TestNewCacheFileBackend(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config file, defaults apply
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := New(io.Discard, LogInfo)
	got, _, err := c.newCache(false)
	if err != nil {
		t.Fatalf("newCache(false) error: %v", err)
	}
	if _, ok := got.(*cache.FileCache); !ok {
		t.Errorf("newCache(false) = %T, want *cache.FileCache", got)
	}
}

func TestNewCacheConfigNone(t *testing.T) {
	writeConfig(t, "[cache]\nbackend = \"none\"\nprefix = \"lab\"\n")

	c := New(io.Discard, LogInfo)
	got, keyer, err := c.newCache(false)
	if err != nil {
		t.Fatalf("newCache(false) error: %v", err)
	}
	if _, ok := got.(*cache.NullCache); !ok {
		t.Errorf("newCache(false) = %T, want *cache.NullCache", got)
	}
	if keyer == nil {
		t.Error("a configured prefix should produce a scoped keyer")
	}
}

func TestNewCacheUnknownBackend(t *testing.T) {
	writeConfig(t, "[cache]\nbackend = \"memcached\"\n")

	c := New(io.Discard, LogInfo)
	_, _, err := c.newCache(false)
	if err == nil {
		t.Fatal("newCache() should reject unknown backends")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %v, want INVALID_INPUT", errors.GetCode(err))
	}
}

func TestOpenStoreSQLiteDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config file, defaults apply
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	c := New(io.Discard, LogInfo)
	st, err := c.openStore(context.Background())
	if err != nil {
		t.Fatalf("openStore() error: %v", err)
	}
	defer st.Close()

	if _, err := os.Stat(filepath.Join(dataHome, appName, "graphs.db")); err != nil {
		t.Errorf("default sqlite database was not created: %v", err)
	}
}
