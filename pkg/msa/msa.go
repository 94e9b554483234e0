// Package msa derives a multiple sequence alignment from a partial order
// alignment graph. Columns follow the graph's topological order with the
// sentinels removed, and nodes merged into one aligned group share a
// single column, so every stored sequence renders as a string of equal
// width with Gap filling the columns its path does not touch.
package msa

import (
	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// Gap is the placeholder written into columns a sequence does not occupy.
const Gap = '-'

// Row is one aligned sequence: its name and its residues padded with Gap
// to the alignment width.
type Row struct {
	Name    string `json:"name"`
	Aligned string `json:"aligned"`
}

// Alignment is the rendered multiple sequence alignment. Rows appear in
// sequence insertion order and every Aligned string has length Width.
type Alignment struct {
	Rows  []Row `json:"rows"`
	Width int   `json:"width"`
}

// Strings returns the aligned rows without their names, in insertion
// order.
func (a Alignment) Strings() []string {
	out := make([]string, len(a.Rows))
	for i, row := range a.Rows {
		out[i] = row.Aligned
	}
	return out
}

// Build renders every sequence stored in the graph against a shared
// column order. The graph is not mutated; a graph without sequences
// yields an alignment of zero rows and zero width.
func Build(g *poa.Graph) (Alignment, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return Alignment{}, err
	}

	// Assign columns by walking the topological order: the first member
	// of an aligned group claims a fresh column and shares it with the
	// whole group, so substituted residues line up.
	colOf := make(map[poa.NodeID]int, len(order))
	width := 0
	for _, id := range order {
		if g.IsSentinel(id) {
			continue
		}
		if _, ok := colOf[id]; ok {
			continue
		}
		node, _ := g.Node(id)
		colOf[id] = width
		for _, member := range node.AlignedTo {
			if _, ok := colOf[member]; !ok {
				colOf[member] = width
			}
		}
		width++
	}

	seqs := g.Sequences()
	rows := make([]Row, 0, len(seqs))
	for _, seq := range seqs {
		aligned := make([]byte, width)
		for i := range aligned {
			aligned[i] = Gap
		}
		for i, id := range seq.Path {
			col, ok := colOf[id]
			if !ok {
				return Alignment{}, pkgerrors.New(pkgerrors.ErrCodeGraphCorrupted,
					"sequence %q passes through node %d outside the column order", seq.Name, id)
			}
			aligned[col] = seq.Residues[i]
		}
		rows = append(rows, Row{Name: seq.Name, Aligned: string(aligned)})
	}

	return Alignment{Rows: rows, Width: width}, nil
}
