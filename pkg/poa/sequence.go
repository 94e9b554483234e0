package poa

import (
	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
)

// Sequence records one threaded input: the original residues, the uniform
// multiplicity weight applied at insertion, and the node path the sequence
// takes through the graph with exactly one node per residue. Paths never
// include the sentinels.
type Sequence struct {
	Name     string
	Residues string
	Weight   int
	Path     []NodeID
}

// AlignedPair is one column of a sequence-to-graph alignment. A matched or
// substituted residue carries both sides. An insertion (residue with no
// counterpart in the graph) carries InvalidNode. A deletion (graph node
// skipped by the sequence) carries position -1.
type AlignedPair struct {
	Node NodeID
	Pos  int
}

// IsInsertion reports whether the pair inserts a residue absent from the
// graph.
func (p AlignedPair) IsInsertion() bool { return p.Node == InvalidNode }

// IsDeletion reports whether the pair skips a graph node without consuming
// a residue.
func (p AlignedPair) IsDeletion() bool { return p.Pos < 0 }

// NormalizeResidues upper-cases a residue string and verifies every symbol
// against the supported alphabet. The alphabet is the ASCII letters A
// through Z, which covers both nucleotide and amino acid sequences.
// An empty string or any symbol outside the alphabet is rejected with an
// INVALID_SEQUENCE error.
func NormalizeResidues(s string) (string, error) {
	if len(s) == 0 {
		return "", pkgerrors.New(pkgerrors.ErrCodeInvalidSequence, "sequence cannot be empty")
	}
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
			out[i] = c - ('a' - 'A')
		default:
			return "", pkgerrors.New(pkgerrors.ErrCodeInvalidSequence, "unsupported symbol %q at position %d", c, i)
		}
	}
	return string(out), nil
}
