// Package store persists named partial order alignment graphs. Two
// backends share one interface: SQLite for single-machine use (the CLI
// keeps its library in a local file) and MongoDB for server deployments.
// Both serialize graphs through the graphio document format and record a
// BLAKE3 digest of the canonical JSON so corruption is caught on load.
package store

import (
	"context"
	"time"

	"github.com/poagraph/poagraph/pkg/poa"
)

// GraphInfo describes a stored graph without loading its body.
type GraphInfo struct {
	Name      string    `json:"name"`
	Digest    string    `json:"digest"`
	Nodes     int       `json:"nodes"`
	Sequences int       `json:"sequences"`
	SizeBytes int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store saves and loads graphs by name. Save overwrites an existing
// graph of the same name. Load and Delete return NOT_FOUND_GRAPH for
// unknown names.
type Store interface {
	Save(ctx context.Context, name string, g *poa.Graph) (GraphInfo, error)
	Load(ctx context.Context, name string) (*poa.Graph, error)
	List(ctx context.Context) ([]GraphInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}
