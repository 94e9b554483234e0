// Package gfa serializes partial order alignment graphs as GFA 1.0 text,
// the segment/link format understood by common graph visualization and
// assembly tooling.
//
// The dialect is a small subset of GFA: every segment carries exactly one
// residue plus an RC tag holding the node weight, links carry an RC tag
// holding the edge weight, and path records carry a WT tag holding the
// sequence weight. Sentinel nodes are not written; on import the edges
// touching them are rebuilt from the path records, and any node left
// without predecessors or successors is wired to the sentinels with
// weight zero. Aligned-column grouping has no GFA representation and is
// dropped, so a reimported graph renders its sequences against fresh
// columns; use the graphio package when full fidelity matters.
package gfa

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// Version is the GFA specification version written into the header.
const Version = "1.0"

// maxLineBytes bounds a single GFA line. Path records grow with sequence
// length, so the limit is generous.
const maxLineBytes = 16 * 1024 * 1024

// =============================================================================
// GFA Serialization API
// =============================================================================

// MarshalGraph converts a graph to GFA bytes.
// Segments are ordered by node ID and links by endpoint pair for
// deterministic output.
func MarshalGraph(g *poa.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalGraph parses GFA bytes into a graph.
func UnmarshalGraph(data []byte) (*poa.Graph, error) {
	return readGraphFrom(bytes.NewReader(data))
}

// WriteGraph writes a graph as GFA to an io.Writer.
// Use MarshalGraph for in-memory serialization or WriteGraphFile for files.
func WriteGraph(g *poa.Graph, w io.Writer) error {
	return writeGraphTo(g, w)
}

// WriteGraphFile writes a graph to a GFA file.
// The file is created with 0644 permissions.
func WriteGraphFile(g *poa.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return writeGraphTo(g, f)
}

// ReadGraph parses GFA from an io.Reader into a graph.
// Use ReadGraphFile for files or pass bytes.NewReader for in-memory data.
func ReadGraph(r io.Reader) (*poa.Graph, error) {
	return readGraphFrom(r)
}

// ReadGraphFile reads a GFA file and returns the decoded graph.
// Returns INVALID_FORMAT errors with line numbers for malformed input.
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

// =============================================================================
// Internal Implementation
// =============================================================================

func writeGraphTo(g *poa.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "H\tVN:Z:%s\n", Version)

	for _, n := range g.Nodes() {
		if g.IsSentinel(n.ID) {
			continue
		}
		fmt.Fprintf(bw, "S\t%d\t%c\tRC:i:%d\n", n.ID, n.Symbol, n.Weight)
	}

	for _, e := range g.Edges() {
		if g.IsSentinel(e.From) || g.IsSentinel(e.To) {
			continue
		}
		fmt.Fprintf(bw, "L\t%d\t+\t%d\t+\t0M\tRC:i:%d\n", e.From, e.To, e.Weight)
	}

	var segs strings.Builder
	for _, seq := range g.Sequences() {
		segs.Reset()
		for i, id := range seq.Path {
			if i > 0 {
				segs.WriteByte(',')
			}
			segs.WriteString(strconv.Itoa(int(id)))
			segs.WriteByte('+')
		}
		fmt.Fprintf(bw, "P\t%s\t%s\t*\tWT:i:%d\n", seq.Name, segs.String(), seq.Weight)
	}

	return bw.Flush()
}

// record is one raw GFA line split into tab-separated fields, kept with
// its line number so parse errors can point at the input.
type record struct {
	line   int
	fields []string
}

func readGraphFrom(r io.Reader) (*poa.Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	// Bucket records first: GFA does not require segments to be declared
	// before the links and paths that reference them.
	var segments, links, paths []record
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		switch fields[0] {
		case "H":
			// header tags are informational
		case "S":
			segments = append(segments, record{line, fields})
		case "L":
			links = append(links, record{line, fields})
		case "P":
			paths = append(paths, record{line, fields})
		default:
			// other record types carry nothing a poa graph stores
		}
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "read gfa")
	}

	g := poa.New()
	ids := make(map[string]poa.NodeID, len(segments))

	for _, rec := range segments {
		if err := parseSegment(g, ids, rec); err != nil {
			return nil, err
		}
	}
	for _, rec := range links {
		if err := parseLink(g, ids, rec); err != nil {
			return nil, err
		}
	}
	for _, rec := range paths {
		if err := parsePath(g, ids, rec); err != nil {
			return nil, err
		}
	}

	// Nodes no path or link reaches still need the sentinel wiring that
	// threading would have produced.
	for _, n := range g.Nodes() {
		if g.IsSentinel(n.ID) {
			continue
		}
		if g.InDegree(n.ID) == 0 {
			if err := g.AddEdge(g.Start(), n.ID, 0); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "wire segment %d to start", n.ID)
			}
		}
		if g.OutDegree(n.ID) == 0 {
			if err := g.AddEdge(n.ID, g.End(), 0); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "wire segment %d to end", n.ID)
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "imported graph")
	}
	return g, nil
}

func parseSegment(g *poa.Graph, ids map[string]poa.NodeID, rec record) error {
	if len(rec.fields) < 3 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: segment record needs a name and a sequence", rec.line)
	}
	name := rec.fields[1]
	if name == "" {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: segment name is empty", rec.line)
	}
	if _, ok := ids[name]; ok {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: duplicate segment %q", rec.line, name)
	}
	if len(rec.fields[2]) != 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
			"line %d: segment %q carries %d residues, want exactly 1", rec.line, name, len(rec.fields[2]))
	}
	symbol, err := poa.NormalizeResidues(rec.fields[2])
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: segment %q", rec.line, name)
	}
	weight, err := tagInt(rec.fields[3:], "RC", 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: segment %q", rec.line, name)
	}
	if weight < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: segment %q has negative weight %d", rec.line, name, weight)
	}
	ids[name] = g.AddNode(symbol[0], weight)
	return nil
}

func parseLink(g *poa.Graph, ids map[string]poa.NodeID, rec record) error {
	if len(rec.fields) < 6 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: link record needs five fields", rec.line)
	}
	from, err := resolveSegment(ids, rec.fields[1], rec.fields[2], rec.line)
	if err != nil {
		return err
	}
	to, err := resolveSegment(ids, rec.fields[3], rec.fields[4], rec.line)
	if err != nil {
		return err
	}
	weight, err := tagInt(rec.fields[6:], "RC", 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: link", rec.line)
	}
	if err := g.AddEdge(from, to, weight); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: link", rec.line)
	}
	return nil
}

func parsePath(g *poa.Graph, ids map[string]poa.NodeID, rec record) error {
	if len(rec.fields) < 3 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: path record needs a name and segments", rec.line)
	}
	name := rec.fields[1]
	if err := pkgerrors.ValidateSequenceName(name); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: path name", rec.line)
	}

	refs := strings.Split(rec.fields[2], ",")
	path := make([]poa.NodeID, 0, len(refs))
	residues := make([]byte, 0, len(refs))
	for _, ref := range refs {
		segName, orient := splitOrientation(ref)
		id, err := resolveSegment(ids, segName, orient, rec.line)
		if err != nil {
			return err
		}
		node, _ := g.Node(id)
		path = append(path, id)
		residues = append(residues, node.Symbol)
	}

	weight, err := tagInt(rec.fields[3:], "WT", 1)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: path %q", rec.line, name)
	}
	if weight < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: path %q weight must be at least 1, got %d", rec.line, name, weight)
	}

	// Threading wires every path endpoint to the sentinels; rebuild those
	// edges here since the writer omits them.
	if err := g.AddEdge(g.Start(), path[0], weight); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: path %q", rec.line, name)
	}
	if err := g.AddEdge(path[len(path)-1], g.End(), weight); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: path %q", rec.line, name)
	}

	seq := poa.Sequence{Name: name, Residues: string(residues), Weight: weight, Path: path}
	if err := g.AddSequenceRecord(seq); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "line %d: path %q", rec.line, name)
	}
	return nil
}

// splitOrientation separates a segment reference like "12+" into the name
// and its orientation suffix. An empty orientation marks a malformed
// reference.
func splitOrientation(ref string) (string, string) {
	if name, ok := strings.CutSuffix(ref, "+"); ok {
		return name, "+"
	}
	if name, ok := strings.CutSuffix(ref, "-"); ok {
		return name, "-"
	}
	return ref, ""
}

func resolveSegment(ids map[string]poa.NodeID, name, orient string, line int) (poa.NodeID, error) {
	switch orient {
	case "+":
	case "-":
		return poa.InvalidNode, pkgerrors.New(pkgerrors.ErrCodeUnsupported,
			"line %d: segment %q uses reverse orientation", line, name)
	default:
		return poa.InvalidNode, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
			"line %d: segment %q has orientation %q, want + or -", line, name, orient)
	}
	id, ok := ids[name]
	if !ok {
		return poa.InvalidNode, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
			"line %d: unknown segment %q", line, name)
	}
	return id, nil
}

// tagInt finds an integer tag like RC:i:7 among optional fields and
// returns fallback when the tag is absent.
func tagInt(fields []string, tag string, fallback int) (int, error) {
	prefix := tag + ":i:"
	for _, f := range fields {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		v, err := strconv.Atoi(f[len(prefix):])
		if err != nil {
			return 0, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "malformed %s tag %q", tag, f)
		}
		return v, nil
	}
	return fallback, nil
}
