// Package cache provides pluggable byte caching for derived graph
// artifacts: MSA renderings, GFA exports, and Graphviz output. Backends
// share one Cache interface, and keys are content-addressed through a
// Keyer, so a graph digest plus options always maps to the same entry.
package cache

import (
	"context"
	"time"
)

// TTLs per artifact class. Keys are content-addressed by graph digest, so
// entries never go stale; the bounds just keep storage in check. Renders
// are the most expensive to recompute and live the longest.
const (
	TTLMSA    = 24 * time.Hour
	TTLGFA    = 24 * time.Hour
	TTLRender = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys.
//
// Implementations: FileCache (CLI, on disk), RedisCache (shared between
// server instances), NullCache (caching disabled).
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present; an expired or unreadable entry counts as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero or less means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// RenderKeyOpts are the rendering parameters that change Graphviz output.
type RenderKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// Keyer builds cache keys for derived artifacts. graphHash is the digest
// of the graph's canonical serialization, see Hash.
type Keyer interface {
	MSAKey(graphHash string) string
	GFAKey(graphHash string) string
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// DefaultKeyer is the standard key scheme: a short artifact prefix plus
// the graph digest, with option-bearing keys hashed.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// MSAKey generates the key for a cached MSA rendering.
func (k *DefaultKeyer) MSAKey(graphHash string) string {
	return "msa:" + graphHash
}

// GFAKey generates the key for a cached GFA export.
func (k *DefaultKeyer) GFAKey(graphHash string) string {
	return "gfa:" + graphHash
}

// RenderKey generates the key for a cached Graphviz artifact.
func (k *DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return hashKey("render", graphHash, opts)
}
