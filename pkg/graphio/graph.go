// Package graphio provides the canonical JSON serialization for partial
// order alignment graphs. Unlike the gfa package it is lossless: node
// weights, aligned-column groups, and sequence records all survive a
// round trip. The same wire types carry bson tags for document storage.
package graphio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a graph to JSON bytes.
// Nodes are sorted by ID for deterministic output.
func MarshalGraph(g *poa.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a graph to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(g *poa.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return writeGraphTo(g, f)
}

// WriteGraph writes a graph as JSON to an io.Writer.
// Use MarshalGraph for in-memory serialization or WriteGraphFile for files.
func WriteGraph(g *poa.Graph, w io.Writer) error {
	return writeGraphTo(g, w)
}

// ReadGraphFile reads a JSON file and returns the decoded graph.
// Returns INVALID_FORMAT errors for malformed input or constraint
// violations.
func ReadGraphFile(path string) (*poa.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		code := pkgerrors.ErrCodeInvalidPath
		if errors.Is(err, fs.ErrNotExist) {
			code = pkgerrors.ErrCodeFileNotFound
		}
		return nil, pkgerrors.Wrap(code, err, "open %s", path)
	}
	defer f.Close()
	return readGraphFrom(f)
}

// ReadGraph decodes a JSON graph from an io.Reader.
// Use ReadGraphFile for files or pass bytes.NewReader for in-memory data.
func ReadGraph(r io.Reader) (*poa.Graph, error) {
	return readGraphFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeGraphTo(g *poa.Graph, w io.Writer) error {
	out := FromGraph(g)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

func readGraphFrom(r io.Reader) (*poa.Graph, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "decode graph")
	}
	return ToGraph(data)
}
