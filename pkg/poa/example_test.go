package poa_test

import (
	"fmt"

	"github.com/poagraph/poagraph/pkg/poa"
)

func ExampleGraph_ThreadSequence() {
	g := poa.New()

	// The first sequence threads directly as a linear path.
	first, _ := g.ThreadSequence("s1", "ACGT", 1, nil)

	// A second identical sequence reuses that path completely, so the
	// graph does not grow; only the support weights do.
	pairs := make([]poa.AlignedPair, len(first.Path))
	for i, id := range first.Path {
		pairs[i] = poa.AlignedPair{Node: id, Pos: i}
	}
	_, _ = g.ThreadSequence("s2", "ACGT", 1, pairs)

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Sequences:", g.SequenceCount())
	// Output:
	// Nodes: 6
	// Edges: 5
	// Sequences: 2
}

func ExampleGraph_TopologicalOrder() {
	g := poa.New()
	_, _ = g.ThreadSequence("s1", "GAT", 1, nil)

	order, _ := g.TopologicalOrder()
	for _, id := range order {
		if g.IsSentinel(id) {
			continue
		}
		n, _ := g.Node(id)
		fmt.Printf("%c", n.Symbol)
	}
	fmt.Println()
	// Output:
	// GAT
}
