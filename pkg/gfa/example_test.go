package gfa_test

import (
	"fmt"

	"github.com/poagraph/poagraph/pkg/gfa"
	"github.com/poagraph/poagraph/pkg/poa"
)

func ExampleMarshalGraph() {
	g := poa.New()
	if _, err := g.ThreadSequence("seq_1", "GAT", 1, nil); err != nil {
		fmt.Println("thread:", err)
		return
	}

	data, err := gfa.MarshalGraph(g)
	if err != nil {
		fmt.Println("marshal:", err)
		return
	}
	fmt.Print(string(data))
	// Output:
	// H	VN:Z:1.0
	// S	2	G	RC:i:1
	// S	3	A	RC:i:1
	// S	4	T	RC:i:1
	// L	2	+	3	+	0M	RC:i:1
	// L	3	+	4	+	0M	RC:i:1
	// P	seq_1	2+,3+,4+	*	WT:i:1
}
