package graphio

import (
	"encoding/json"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// =============================================================================
// Graph - POA Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for poa graphs.
// Used for API responses, storage, caching, and cross-tool compatibility.
//
// The format is designed for round-trip fidelity: export and re-import
// produce an identical graph, including the aligned-column groups and
// sequence records that the GFA form cannot carry. Sentinel nodes are
// implied and not listed, but the edges touching them are.
type Graph struct {
	Nodes     []Node     `json:"nodes" bson:"nodes"`
	Edges     []Edge     `json:"edges" bson:"edges"`
	Sequences []Sequence `json:"sequences,omitempty" bson:"sequences,omitempty"`
}

// Node is one residue node. Symbol is a single-character string so the
// JSON stays readable.
type Node struct {
	ID        int32   `json:"id" bson:"id"`
	Symbol    string  `json:"symbol" bson:"symbol"`
	Weight    int     `json:"weight" bson:"weight"`
	AlignedTo []int32 `json:"aligned_to,omitempty" bson:"aligned_to,omitempty"`
}

// Edge is one directed edge with its accumulated support weight.
type Edge struct {
	From   int32 `json:"from" bson:"from"`
	To     int32 `json:"to" bson:"to"`
	Weight int   `json:"weight" bson:"weight"`
}

// Sequence is one stored sequence record and its node path.
type Sequence struct {
	Name     string  `json:"name" bson:"name"`
	Residues string  `json:"residues" bson:"residues"`
	Weight   int     `json:"weight" bson:"weight"`
	Path     []int32 `json:"path" bson:"path"`
}

// =============================================================================
// poa.Graph ↔ Graph Conversion
// =============================================================================

// FromGraph converts a graph to its serialization format.
// Nodes appear in identifier order and edges sorted by endpoint pair, so
// the output is deterministic.
func FromGraph(g *poa.Graph) Graph {
	out := Graph{
		Nodes: make([]Node, 0, g.NodeCount()-2),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		if g.IsSentinel(n.ID) {
			continue
		}
		var aligned []int32
		if len(n.AlignedTo) > 0 {
			aligned = make([]int32, len(n.AlignedTo))
			for i, m := range n.AlignedTo {
				aligned[i] = int32(m)
			}
		}
		out.Nodes = append(out.Nodes, Node{
			ID:        int32(n.ID),
			Symbol:    string(n.Symbol),
			Weight:    n.Weight,
			AlignedTo: aligned,
		})
	}

	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{From: int32(e.From), To: int32(e.To), Weight: e.Weight})
	}

	for _, seq := range g.Sequences() {
		path := make([]int32, len(seq.Path))
		for i, id := range seq.Path {
			path[i] = int32(id)
		}
		out.Sequences = append(out.Sequences, Sequence{
			Name:     seq.Name,
			Residues: seq.Residues,
			Weight:   seq.Weight,
			Path:     path,
		})
	}

	return out
}

// ToGraph converts a serialized Graph back to a poa graph.
// Node IDs must be the dense ascending order the writer produces, since
// the node arena assigns identifiers sequentially. Structural errors are
// reported as INVALID_FORMAT.
func ToGraph(wire Graph) (*poa.Graph, error) {
	g := poa.New()

	for _, n := range wire.Nodes {
		if len(n.Symbol) != 1 {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "node %d symbol %q must be one residue", n.ID, n.Symbol)
		}
		symbol, err := poa.NormalizeResidues(n.Symbol)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "node %d", n.ID)
		}
		if n.Weight < 0 {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "node %d has negative weight %d", n.ID, n.Weight)
		}
		id := g.AddNode(symbol[0], n.Weight)
		if id != poa.NodeID(n.ID) {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "node ids must be dense and ascending: got %d, want %d", n.ID, id)
		}
	}

	for _, n := range wire.Nodes {
		for _, m := range n.AlignedTo {
			if err := g.AlignNodes(poa.NodeID(n.ID), poa.NodeID(m)); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "node %d alignment", n.ID)
			}
		}
	}

	for _, e := range wire.Edges {
		if err := g.AddEdge(poa.NodeID(e.From), poa.NodeID(e.To), e.Weight); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "edge %d->%d", e.From, e.To)
		}
	}

	for _, s := range wire.Sequences {
		path := make([]poa.NodeID, len(s.Path))
		for i, id := range s.Path {
			path[i] = poa.NodeID(id)
		}
		seq := poa.Sequence{Name: s.Name, Residues: s.Residues, Weight: s.Weight, Path: path}
		if err := g.AddSequenceRecord(seq); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "sequence %q", s.Name)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "imported graph")
	}
	return g, nil
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "decode graph")
	}
	return g, nil
}
