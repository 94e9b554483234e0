package poa

import (
	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
)

// ThreadSequence commits a sequence to the graph along the given alignment
// and records it for later MSA reconstruction. Matched residues reuse the
// aligned node when the symbols agree, reuse a column member with the right
// symbol on a substitution, or branch off a fresh node joined into the
// column. Insertions always create fresh nodes. Deleted graph nodes are
// skipped by the path. Node and edge weights along the path grow by the
// sequence weight.
//
// A nil pairs slice threads the sequence as a fresh linear path, which is
// how the first sequence enters an empty graph.
//
// Validation runs before any mutation: a validation error leaves the graph
// unchanged. Pairs produced by the aligner always thread cleanly; pairs
// built by hand that contradict the graph topology surface as a
// GRAPH_CORRUPTED error after the fact.
func (g *Graph) ThreadSequence(name, residues string, weight int, pairs []AlignedPair) (Sequence, error) {
	if err := pkgerrors.ValidateSequenceName(name); err != nil {
		return Sequence{}, err
	}
	norm, err := NormalizeResidues(residues)
	if err != nil {
		return Sequence{}, err
	}
	if weight < 1 {
		return Sequence{}, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "sequence weight must be at least 1, got %d", weight)
	}
	if pairs != nil {
		if err := g.checkAlignment(norm, pairs); err != nil {
			return Sequence{}, err
		}
	}

	prev := startID
	path := make([]NodeID, 0, len(norm))

	if pairs == nil {
		for i := 0; i < len(norm); i++ {
			n := g.AddNode(norm[i], weight)
			if err := g.AddEdge(prev, n, weight); err != nil {
				return Sequence{}, pkgerrors.Wrap(pkgerrors.ErrCodeGraphCorrupted, err, "threading %q", name)
			}
			prev = n
			path = append(path, n)
		}
	} else {
		for _, p := range pairs {
			if p.IsDeletion() {
				continue
			}
			sym := norm[p.Pos]
			var n NodeID
			if p.IsInsertion() {
				n = g.AddNode(sym, weight)
			} else {
				n = g.placeResidue(p.Node, sym, weight)
			}
			if err := g.AddEdge(prev, n, weight); err != nil {
				return Sequence{}, pkgerrors.Wrap(pkgerrors.ErrCodeGraphCorrupted, err, "threading %q", name)
			}
			prev = n
			path = append(path, n)
		}
	}

	if err := g.AddEdge(prev, endID, weight); err != nil {
		return Sequence{}, pkgerrors.Wrap(pkgerrors.ErrCodeGraphCorrupted, err, "threading %q", name)
	}

	seq := Sequence{Name: name, Residues: norm, Weight: weight, Path: path}
	g.sequences = append(g.sequences, seq)

	if err := g.Validate(); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

// checkAlignment verifies that pairs describe a global alignment of the
// residues: query positions are consumed contiguously from 0 through the
// last residue, no node is visited twice, and every referenced node exists
// and is not a sentinel. It runs before any mutation so a failed insertion
// leaves the graph untouched.
func (g *Graph) checkAlignment(residues string, pairs []AlignedPair) error {
	next := 0
	seen := make(map[NodeID]struct{}, len(pairs))
	for i, p := range pairs {
		if p.IsInsertion() && p.IsDeletion() {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment pair %d has neither a node nor a residue", i)
		}
		if !p.IsDeletion() {
			if p.Pos != next {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment pair %d consumes residue %d, want %d", i, p.Pos, next)
			}
			next++
		}
		if !p.IsInsertion() {
			if !g.has(p.Node) {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment pair %d references unknown node %d", i, p.Node)
			}
			if g.IsSentinel(p.Node) {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment pair %d references a sentinel", i)
			}
			if _, dup := seen[p.Node]; dup {
				return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment pair %d revisits node %d", i, p.Node)
			}
			seen[p.Node] = struct{}{}
		}
	}
	if next != len(residues) {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "alignment consumes %d of %d residues", next, len(residues))
	}
	return nil
}

// placeResidue resolves the node that receives a matched residue: the
// aligned node itself when the symbols agree, an existing column member
// with the right symbol, or a fresh node joined into the column.
func (g *Graph) placeResidue(v NodeID, sym byte, weight int) NodeID {
	node := g.nodes[v]
	if node.Symbol == sym {
		node.Weight += weight
		return v
	}
	for _, a := range node.AlignedTo {
		if alt := g.nodes[a]; alt.Symbol == sym {
			alt.Weight += weight
			return a
		}
	}
	n := g.AddNode(sym, weight)
	g.linkAligned(n, v)
	return n
}
