package align

import (
	"slices"
	"testing"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/poa"
)

// seed creates a graph holding a single linear sequence.
func seed(t *testing.T, residues string) *poa.Graph {
	t.Helper()
	g := poa.New()
	if _, err := g.ThreadSequence("seq_1", residues, 1, nil); err != nil {
		t.Fatalf("ThreadSequence: %v", err)
	}
	return g
}

// pairScore recomputes an alignment score from its pairs so tests can
// verify that the solver's traceback is consistent with its reported
// score.
func pairScore(t *testing.T, g *poa.Graph, sc Scoring, query string, pairs []poa.AlignedPair) int {
	t.Helper()
	const (
		gapNone = iota
		gapInsertion
		gapDeletion
	)
	score, gap := 0, gapNone
	for _, p := range pairs {
		switch {
		case p.IsInsertion():
			if gap == gapInsertion {
				score -= sc.GapExtend
			} else {
				score -= sc.GapOpen
			}
			gap = gapInsertion
		case p.IsDeletion():
			if gap == gapDeletion {
				score -= sc.GapExtend
			} else {
				score -= sc.GapOpen
			}
			gap = gapDeletion
		default:
			node, ok := g.Node(p.Node)
			if !ok {
				t.Fatalf("pair references unknown node %d", p.Node)
			}
			if node.Symbol == query[p.Pos] {
				score += sc.Match
			} else {
				score -= sc.Mismatch
			}
			gap = gapNone
		}
	}
	return score
}

func TestAlignIdentical(t *testing.T) {
	g := seed(t, "ACGT")

	got, err := Align(g, "ACGT", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if got.Score != 8 {
		t.Errorf("Score = %d, want 8", got.Score)
	}
	want := []poa.AlignedPair{{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: 2}, {Node: 5, Pos: 3}}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignSubstitution(t *testing.T) {
	g := seed(t, "ACGT")

	got, err := Align(g, "ACGA", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	// Three matches and one substitution beat any gap route.
	if got.Score != 2 {
		t.Errorf("Score = %d, want 2", got.Score)
	}
	want := []poa.AlignedPair{{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: 2}, {Node: 5, Pos: 3}}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignDeletion(t *testing.T) {
	g := seed(t, "ACGT")

	got, err := Align(g, "ACT", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if got.Score != -2 {
		t.Errorf("Score = %d, want -2", got.Score)
	}
	want := []poa.AlignedPair{{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: -1}, {Node: 5, Pos: 2}}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignInsertion(t *testing.T) {
	g := seed(t, "AT")

	got, err := Align(g, "ACT", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if got.Score != -4 {
		t.Errorf("Score = %d, want -4", got.Score)
	}
	want := []poa.AlignedPair{{Node: 2, Pos: 0}, {Node: poa.InvalidNode, Pos: 1}, {Node: 3, Pos: 2}}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignEmptyGraph(t *testing.T) {
	g := poa.New()

	got, err := Align(g, "ACG", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	// Every residue inserts into one affine gap between the sentinels.
	if got.Score != -12 {
		t.Errorf("Score = %d, want -12", got.Score)
	}
	want := []poa.AlignedPair{
		{Node: poa.InvalidNode, Pos: 0},
		{Node: poa.InvalidNode, Pos: 1},
		{Node: poa.InvalidNode, Pos: 2},
	}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignNormalizesCase(t *testing.T) {
	g := seed(t, "ACGT")

	got, err := Align(g, "acgt", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if got.Score != 8 {
		t.Errorf("Score = %d, want 8", got.Score)
	}
}

func TestAlignPrefersLowestNodeID(t *testing.T) {
	// Two parallel branches carry the same symbol, so both final cells
	// tie. The traceback must pick the branch through the lower node ID.
	g := poa.New()
	a1 := g.AddNode('A', 1)
	a2 := g.AddNode('A', 1)
	tail := g.AddNode('T', 1)
	for _, e := range []struct{ from, to poa.NodeID }{
		{g.Start(), a1}, {g.Start(), a2}, {a1, tail}, {a2, tail}, {tail, g.End()},
	} {
		if err := g.AddEdge(e.from, e.to, 1); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e.from, e.to, err)
		}
	}

	got, err := Align(g, "AT", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	want := []poa.AlignedPair{{Node: a1, Pos: 0}, {Node: tail, Pos: 1}}
	if !slices.Equal(got.Pairs, want) {
		t.Errorf("Pairs = %v, want %v", got.Pairs, want)
	}
}

func TestAlignDeterministic(t *testing.T) {
	g := seed(t, "ACGT")
	if _, err := g.ThreadSequence("seq_2", "AGGT", 1, []poa.AlignedPair{
		{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: 2}, {Node: 5, Pos: 3},
	}); err != nil {
		t.Fatalf("ThreadSequence: %v", err)
	}

	sc := NewScoring(4, 8, 2)
	first, err := Align(g, "AGCT", sc)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := Align(g, "AGCT", sc)
		if err != nil {
			t.Fatalf("Align: %v", err)
		}
		if next.Score != first.Score || !slices.Equal(next.Pairs, first.Pairs) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, next, first)
		}
	}
}

func TestAlignScoreMatchesPairs(t *testing.T) {
	sc := NewScoring(4, 8, 2)
	tests := []struct {
		name  string
		build func(t *testing.T) *poa.Graph
		query string
	}{
		{"Match", func(t *testing.T) *poa.Graph { return seed(t, "ACGT") }, "ACGT"},
		{"Substitution", func(t *testing.T) *poa.Graph { return seed(t, "ACGT") }, "ACGA"},
		{"Deletion", func(t *testing.T) *poa.Graph { return seed(t, "ACGTACGT") }, "ACGCGT"},
		{"Insertion", func(t *testing.T) *poa.Graph { return seed(t, "AT") }, "ACCCT"},
		{"Disjoint", func(t *testing.T) *poa.Graph { return seed(t, "GGGG") }, "TT"},
		{"Branching", func(t *testing.T) *poa.Graph {
			g := seed(t, "ACGT")
			if _, err := g.ThreadSequence("seq_2", "ATT", 1, []poa.AlignedPair{
				{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: -1}, {Node: 5, Pos: 2},
			}); err != nil {
				t.Fatalf("ThreadSequence: %v", err)
			}
			return g
		}, "ATGT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build(t)
			got, err := Align(g, tt.query, sc)
			if err != nil {
				t.Fatalf("Align: %v", err)
			}
			if want := pairScore(t, g, sc, tt.query, got.Pairs); got.Score != want {
				t.Errorf("Score = %d, but pairs sum to %d (%v)", got.Score, want, got.Pairs)
			}
		})
	}
}

func TestAlignPairsThreadable(t *testing.T) {
	g := seed(t, "ACGT")

	got, err := Align(g, "ACGA", NewScoring(4, 8, 2))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if _, err := g.ThreadSequence("seq_2", "ACGA", 1, got.Pairs); err != nil {
		t.Fatalf("ThreadSequence with aligner pairs: %v", err)
	}

	// The substitution column adds exactly one node to the graph.
	if got := g.NodeCount(); got != 7 {
		t.Errorf("NodeCount = %d, want 7", got)
	}
	if got := g.SequenceCount(); got != 2 {
		t.Errorf("SequenceCount = %d, want 2", got)
	}
}

func TestAlignErrors(t *testing.T) {
	tests := []struct {
		name     string
		build    func(t *testing.T) *poa.Graph
		query    string
		scoring  Scoring
		wantCode pkgerrors.Code
	}{
		{
			name:     "ZeroMismatch",
			build:    func(t *testing.T) *poa.Graph { return seed(t, "ACGT") },
			query:    "ACGT",
			scoring:  Scoring{Match: 2, Mismatch: 0, GapOpen: 8, GapExtend: 2},
			wantCode: pkgerrors.ErrCodeInvalidScoring,
		},
		{
			name:     "ExtendExceedsOpen",
			build:    func(t *testing.T) *poa.Graph { return seed(t, "ACGT") },
			query:    "ACGT",
			scoring:  NewScoring(4, 2, 8),
			wantCode: pkgerrors.ErrCodeInvalidScoring,
		},
		{
			name:     "EmptyQuery",
			build:    func(t *testing.T) *poa.Graph { return seed(t, "ACGT") },
			query:    "",
			scoring:  NewScoring(4, 8, 2),
			wantCode: pkgerrors.ErrCodeInvalidSequence,
		},
		{
			name:     "BadSymbol",
			build:    func(t *testing.T) *poa.Graph { return seed(t, "ACGT") },
			query:    "AC-T",
			scoring:  NewScoring(4, 8, 2),
			wantCode: pkgerrors.ErrCodeInvalidSequence,
		},
		{
			name: "CyclicGraph",
			build: func(t *testing.T) *poa.Graph {
				g := poa.New()
				a := g.AddNode('A', 1)
				c := g.AddNode('C', 1)
				if err := g.AddEdge(a, c, 1); err != nil {
					t.Fatalf("AddEdge: %v", err)
				}
				if err := g.AddEdge(c, a, 1); err != nil {
					t.Fatalf("AddEdge: %v", err)
				}
				return g
			},
			query:    "AC",
			scoring:  NewScoring(4, 8, 2),
			wantCode: pkgerrors.ErrCodeGraphCorrupted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.build(t)
			_, err := Align(g, tt.query, tt.scoring)
			if err == nil {
				t.Fatal("Align succeeded, want error")
			}
			if got := pkgerrors.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}
