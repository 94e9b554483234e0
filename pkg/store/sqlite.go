package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/graphio"
	"github.com/poagraph/poagraph/pkg/observability"
	"github.com/poagraph/poagraph/pkg/poa"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// Shared across calls; EncodeAll and DecodeAll are concurrency-safe.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	conn *sql.DB
	mu   sync.RWMutex
	path string
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at dbPath, creating parent
// directories as needed.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Apply pragmas
	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	// Apply schema
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLite{conn: conn, path: dbPath}, nil
}

// Save upserts the graph under the given name.
func (s *SQLite) Save(ctx context.Context, name string, g *poa.Graph) (GraphInfo, error) {
	start := time.Now()
	info, err := s.save(ctx, name, g)
	observability.Store().OnSave(ctx, "sqlite", name, info.SizeBytes, time.Since(start), err)
	return info, err
}

func (s *SQLite) save(ctx context.Context, name string, g *poa.Graph) (GraphInfo, error) {
	if err := pkgerrors.ValidateGraphName(name); err != nil {
		return GraphInfo{}, err
	}
	doc, err := graphio.MarshalGraph(g)
	if err != nil {
		return GraphInfo{}, err
	}
	digest := digestOf(doc)
	blob := zstdEncoder.EncodeAll(doc, nil)
	nodes := g.NodeCount() - 2 // sentinels excluded
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO graphs (name, digest, nodes, sequences, size, blob, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   digest=excluded.digest, nodes=excluded.nodes, sequences=excluded.sequences,
		   size=excluded.size, blob=excluded.blob, updated_at=excluded.updated_at`,
		name, digest, nodes, g.SequenceCount(), len(blob), blob, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return GraphInfo{}, fmt.Errorf("upserting graph: %w", err)
	}

	return GraphInfo{
		Name:      name,
		Digest:    digest,
		Nodes:     nodes,
		Sequences: g.SequenceCount(),
		SizeBytes: int64(len(blob)),
		UpdatedAt: now,
	}, nil
}

// Load reconstructs the named graph, verifying the stored digest first.
func (s *SQLite) Load(ctx context.Context, name string) (*poa.Graph, error) {
	start := time.Now()
	g, err := s.load(ctx, name)
	observability.Store().OnLoad(ctx, "sqlite", name, time.Since(start), err)
	return g, err
}

func (s *SQLite) load(ctx context.Context, name string) (*poa.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var digest string
	var blob []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT digest, blob FROM graphs WHERE name = ?`, name,
	).Scan(&digest, &blob)
	if err == sql.ErrNoRows {
		return nil, pkgerrors.New(pkgerrors.ErrCodeGraphNotFound, "graph %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying graph: %w", err)
	}

	doc, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeGraphCorrupted, err, "stored graph %q cannot be decompressed", name)
	}
	if digestOf(doc) != digest {
		return nil, pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "stored graph %q fails its digest check", name)
	}

	wire, err := graphio.UnmarshalGraph(doc)
	if err != nil {
		return nil, err
	}
	return graphio.ToGraph(wire)
}

// List returns metadata for every stored graph, ordered by name.
func (s *SQLite) List(ctx context.Context) ([]GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT name, digest, nodes, sequences, size, updated_at FROM graphs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying graphs: %w", err)
	}
	defer rows.Close()

	var infos []GraphInfo
	for rows.Next() {
		var info GraphInfo
		var updatedMs int64
		if err := rows.Scan(&info.Name, &info.Digest, &info.Nodes, &info.Sequences, &info.SizeBytes, &updatedMs); err != nil {
			return nil, fmt.Errorf("scanning graph row: %w", err)
		}
		info.UpdatedAt = time.UnixMilli(updatedMs)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the named graph.
func (s *SQLite) Delete(ctx context.Context, name string) error {
	err := s.delete(ctx, name)
	observability.Store().OnDelete(ctx, "sqlite", name, err)
	return err
}

func (s *SQLite) delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.conn.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting graph: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting graph: %w", err)
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeGraphNotFound, "graph %q not found", name)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// digestOf returns the BLAKE3 hex digest of a canonical graph document.
func digestOf(doc []byte) string {
	sum := blake3.Sum256(doc)
	return hex.EncodeToString(sum[:])
}
