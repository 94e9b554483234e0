// Package poa implements a partial order alignment graph: a directed acyclic
// graph encoding a multiple sequence alignment. Sequences are threaded into
// the graph one at a time; stretches shared with earlier sequences collapse
// onto shared node paths while differences branch off as alternatives. Nodes
// carry the aligned residue symbol and a support weight, edges carry the
// number of sequences traversing them.
//
// Every graph owns a start and an end sentinel so alignment sweeps have a
// single source and a single sink. The graph only grows: nodes and edges are
// never removed, and node identifiers are never reused.
//
// A Graph is not safe for concurrent mutation. Sequence insertion must be
// serialized by the caller, and readers must not run concurrently with an
// in-flight insertion.
package poa

import (
	"cmp"
	"container/heap"
	"slices"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
)

// NodeID identifies a node within a Graph. Identifiers are dense, assigned
// in creation order, and double as indices into the node arena.
type NodeID int32

// InvalidNode marks the absence of a node, such as the graph side of an
// alignment column that inserts a fresh residue.
const InvalidNode NodeID = -1

// Sentinel node identifiers. They are created by New and always occupy the
// first two arena slots.
const (
	startID NodeID = 0
	endID   NodeID = 1
)

// Node represents one aligned residue. Symbol is 0 for the two sentinels.
//
// AlignedTo lists the other nodes occupying the same alignment column, in
// ascending identifier order. Nodes in one column hold distinct symbols and
// arise when a sequence residue aligns against a node with a different
// symbol (a substitution).
type Node struct {
	ID        NodeID
	Symbol    byte
	Weight    int
	AlignedTo []NodeID

	// Rank is the node's position in the most recent topological order.
	// It is stale until TopologicalOrder runs after a mutation.
	Rank int
}

// Edge is a directed connection between two nodes. Weight counts the
// sequence multiplicity traversing the edge.
type Edge struct {
	From   NodeID
	To     NodeID
	Weight int
}

type edgeKey struct {
	from, to NodeID
}

// Graph is the store for a partial order alignment: the node arena, the
// edge set, and the records of every sequence threaded so far.
//
// The zero value is not usable; call New.
type Graph struct {
	nodes     []*Node
	edges     map[edgeKey]*Edge
	out       [][]NodeID // adjacency in insertion order
	in        [][]NodeID
	sequences []Sequence

	// topo caches the topological order. Node and edge insertions reset it
	// to nil; TopologicalOrder recomputes it on demand.
	topo []NodeID
}

// New creates an empty graph holding only the start and end sentinels.
// The sentinels are not connected; the first threaded sequence establishes
// the first path between them.
func New() *Graph {
	g := &Graph{edges: make(map[edgeKey]*Edge)}
	g.newNode(0, 0)
	g.newNode(0, 0)
	return g
}

// Start returns the identifier of the start sentinel.
func (g *Graph) Start() NodeID { return startID }

// End returns the identifier of the end sentinel.
func (g *Graph) End() NodeID { return endID }

// IsSentinel reports whether id names the start or end sentinel.
func (g *Graph) IsSentinel(id NodeID) bool { return id == startID || id == endID }

func (g *Graph) has(id NodeID) bool { return id >= 0 && int(id) < len(g.nodes) }

func (g *Graph) newNode(symbol byte, weight int) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{ID: id, Symbol: symbol, Weight: weight})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return id
}

// AddNode appends a node for the given residue symbol and returns its
// identifier. The symbol is stored as-is; callers validate residues with
// NormalizeResidues before building nodes from them.
func (g *Graph) AddNode(symbol byte, weight int) NodeID {
	g.topo = nil
	return g.newNode(symbol, weight)
}

// AddEdge connects two existing nodes. Adding an edge that already exists
// does not duplicate it: the given weight is added to the existing edge
// instead. Self loops and edges into the start or out of the end sentinel
// are rejected, as is a negative weight.
func (g *Graph) AddEdge(from, to NodeID, weight int) error {
	if !g.has(from) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown source node %d", from)
	}
	if !g.has(to) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown target node %d", to)
	}
	if from == to {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "self loop on node %d", from)
	}
	if to == startID {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "edge into start sentinel")
	}
	if from == endID {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "edge out of end sentinel")
	}
	if weight < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "negative edge weight %d", weight)
	}

	key := edgeKey{from, to}
	if e, ok := g.edges[key]; ok {
		e.Weight += weight
		return nil
	}
	g.edges[key] = &Edge{From: from, To: to, Weight: weight}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
	g.topo = nil
	return nil
}

// AlignNodes merges the alignment columns of two nodes. Both groups are
// unioned, so aligning a to b also aligns a to everything already aligned
// with b. Sentinels cannot join a column.
func (g *Graph) AlignNodes(a, b NodeID) error {
	if !g.has(a) || !g.has(b) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "unknown node in aligned pair (%d, %d)", a, b)
	}
	if a == b {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "cannot align node %d with itself", a)
	}
	if g.IsSentinel(a) || g.IsSentinel(b) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "sentinels cannot join an alignment column")
	}
	g.linkAligned(a, b)
	return nil
}

func (g *Graph) linkAligned(a, b NodeID) {
	group := []NodeID{a, b}
	group = append(group, g.nodes[a].AlignedTo...)
	group = append(group, g.nodes[b].AlignedTo...)
	slices.Sort(group)
	group = slices.Compact(group)

	for _, id := range group {
		members := make([]NodeID, 0, len(group)-1)
		for _, other := range group {
			if other != id {
				members = append(members, other)
			}
		}
		g.nodes[id].AlignedTo = members
	}
}

// Node returns the node with the given identifier. The returned pointer
// refers to the node owned by the graph; treat it as read-only.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	if !g.has(id) {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns all nodes, sentinels included, in identifier order.
// The pointers refer to the nodes owned by the graph; treat them as
// read-only.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Edge returns a copy of the edge from→to, if it exists.
func (g *Graph) Edge(from, to NodeID) (Edge, bool) {
	e, ok := g.edges[edgeKey{from, to}]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Edges returns copies of all edges sorted by source then target
// identifier, making the order deterministic across runs.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, *e)
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return edges
}

// NodeCount returns the number of nodes including the two sentinels.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// SequenceCount returns the number of sequences threaded into the graph.
func (g *Graph) SequenceCount() int { return len(g.sequences) }

// Sequences returns the records of all threaded sequences in insertion
// order. The slice is a copy but the records share path storage with the
// graph; treat them as read-only.
func (g *Graph) Sequences() []Sequence {
	return slices.Clone(g.sequences)
}

// Predecessors returns the identifiers of nodes with an edge into id, in
// edge insertion order. The returned slice is a read-only view.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if !g.has(id) {
		return nil
	}
	return g.in[id]
}

// Successors returns the identifiers of nodes id has an edge to, in edge
// insertion order. The returned slice is a read-only view.
func (g *Graph) Successors(id NodeID) []NodeID {
	if !g.has(id) {
		return nil
	}
	return g.out[id]
}

// InDegree returns the number of incoming edges, or 0 for unknown nodes.
func (g *Graph) InDegree(id NodeID) int {
	if !g.has(id) {
		return 0
	}
	return len(g.in[id])
}

// OutDegree returns the number of outgoing edges, or 0 for unknown nodes.
func (g *Graph) OutDegree(id NodeID) int {
	if !g.has(id) {
		return 0
	}
	return len(g.out[id])
}

// AddSequenceRecord appends a sequence record without mutating the graph
// topology. It is used when rebuilding a graph from a serialized form;
// ThreadSequence records sequences itself during normal insertion.
//
// The record must be consistent with the graph: the path visits one
// existing non-sentinel node per residue, and each visited node holds the
// corresponding residue symbol.
func (g *Graph) AddSequenceRecord(seq Sequence) error {
	if err := pkgerrors.ValidateSequenceName(seq.Name); err != nil {
		return err
	}
	if len(seq.Residues) == 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidSequence, "sequence %q is empty", seq.Name)
	}
	if seq.Weight < 1 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "sequence %q weight must be at least 1, got %d", seq.Name, seq.Weight)
	}
	if len(seq.Path) != len(seq.Residues) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
			"sequence %q path visits %d nodes for %d residues", seq.Name, len(seq.Path), len(seq.Residues))
	}
	for i, id := range seq.Path {
		if !g.has(id) || g.IsSentinel(id) {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "sequence %q path references invalid node %d", seq.Name, id)
		}
		if g.nodes[id].Symbol != seq.Residues[i] {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
				"sequence %q residue %d (%c) does not match node %d symbol %c",
				seq.Name, i, seq.Residues[i], id, g.nodes[id].Symbol)
		}
	}
	g.sequences = append(g.sequences, seq)
	return nil
}

// nodeIDHeap is a min-heap of node identifiers. It makes the topological
// order deterministic: among nodes whose predecessors are all placed, the
// lowest identifier comes first.
type nodeIDHeap []NodeID

func (h nodeIDHeap) Len() int { return len(h) }

func (h nodeIDHeap) Less(i, j int) bool { return h[i] < h[j] }

func (h nodeIDHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeIDHeap) Push(x any) { *h = append(*h, x.(NodeID)) }

func (h *nodeIDHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns every node, sentinels included, in an order
// where all predecessors of a node come before it. The order is cached and
// reused until the next node or edge insertion. The returned slice is the
// cache itself; callers must not modify it.
//
// Returns a GRAPH_CORRUPTED error if the graph contains a cycle, which
// cannot happen through regular sequence insertion.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	if g.topo != nil {
		return g.topo, nil
	}

	indegree := make([]int, len(g.nodes))
	ready := nodeIDHeap{}
	for id := range g.nodes {
		indegree[id] = len(g.in[id])
		if indegree[id] == 0 {
			ready = append(ready, NodeID(id))
		}
	}
	heap.Init(&ready)

	order := make([]NodeID, 0, len(g.nodes))
	for ready.Len() > 0 {
		v := heap.Pop(&ready).(NodeID)
		order = append(order, v)
		for _, w := range g.out[v] {
			indegree[w]--
			if indegree[w] == 0 {
				heap.Push(&ready, w)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "graph contains a cycle")
	}
	for rank, id := range order {
		g.nodes[id].Rank = rank
	}

	g.topo = order
	return g.topo, nil
}

// Validate checks graph integrity and returns nil if the graph is
// well-formed. It verifies that edges connect existing nodes, sentinel
// degree invariants hold, alignment columns are symmetric, sequence paths
// are consistent, and the graph is acyclic.
//
// Violations are reported as GRAPH_CORRUPTED errors: regular use of the
// mutation API cannot produce them, but deserialized input can.
func (g *Graph) Validate() error {
	for key, e := range g.edges {
		if !g.has(key.from) || !g.has(key.to) || key.from != e.From || key.to != e.To {
			return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "dangling edge %d->%d", e.From, e.To)
		}
		if e.Weight < 0 {
			return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "edge %d->%d has negative weight %d", e.From, e.To, e.Weight)
		}
	}
	if g.InDegree(startID) != 0 {
		return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "start sentinel has incoming edges")
	}
	if g.OutDegree(endID) != 0 {
		return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "end sentinel has outgoing edges")
	}

	for _, n := range g.nodes {
		for _, a := range n.AlignedTo {
			if !g.has(a) || a == n.ID || g.IsSentinel(a) {
				return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "node %d aligned to invalid node %d", n.ID, a)
			}
			if !slices.Contains(g.nodes[a].AlignedTo, n.ID) {
				return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "alignment column of nodes %d and %d is asymmetric", n.ID, a)
			}
		}
	}

	for i := range g.sequences {
		seq := &g.sequences[i]
		if len(seq.Path) != len(seq.Residues) {
			return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "sequence %q path length mismatch", seq.Name)
		}
		for _, id := range seq.Path {
			if !g.has(id) || g.IsSentinel(id) {
				return pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted, "sequence %q path references invalid node %d", seq.Name, id)
			}
		}
	}

	_, err := g.TopologicalOrder()
	return err
}
