package msa

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/poagraph/poagraph/pkg/align"
	"github.com/poagraph/poagraph/pkg/poa"
)

func mustThread(t *testing.T, g *poa.Graph, name, residues string, pairs []poa.AlignedPair) {
	t.Helper()
	if _, err := g.ThreadSequence(name, residues, 1, pairs); err != nil {
		t.Fatalf("ThreadSequence(%q): %v", name, err)
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	got, err := Build(poa.New())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got.Rows) != 0 || got.Width != 0 {
		t.Errorf("Build = %+v, want no rows and zero width", got)
	}
}

func TestBuildSingleSequence(t *testing.T) {
	g := poa.New()
	mustThread(t, g, "seq_1", "ACGT", nil)

	got, err := Build(g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := Alignment{Rows: []Row{{Name: "seq_1", Aligned: "ACGT"}}, Width: 4}
	if got.Width != want.Width || !slices.Equal(got.Rows, want.Rows) {
		t.Errorf("Build = %+v, want %+v", got, want)
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *poa.Graph
		want  []Row
		width int
	}{
		{
			name: "Substitution",
			build: func(t *testing.T) *poa.Graph {
				g := poa.New()
				mustThread(t, g, "seq_1", "ACGT", nil)
				mustThread(t, g, "seq_2", "ACGA", []poa.AlignedPair{
					{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: 2}, {Node: 5, Pos: 3},
				})
				return g
			},
			want:  []Row{{Name: "seq_1", Aligned: "ACGT"}, {Name: "seq_2", Aligned: "ACGA"}},
			width: 4,
		},
		{
			name: "Deletion",
			build: func(t *testing.T) *poa.Graph {
				g := poa.New()
				mustThread(t, g, "seq_1", "ACGT", nil)
				mustThread(t, g, "seq_2", "ACT", []poa.AlignedPair{
					{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: -1}, {Node: 5, Pos: 2},
				})
				return g
			},
			want:  []Row{{Name: "seq_1", Aligned: "ACGT"}, {Name: "seq_2", Aligned: "AC-T"}},
			width: 4,
		},
		{
			name: "Insertion",
			build: func(t *testing.T) *poa.Graph {
				g := poa.New()
				mustThread(t, g, "seq_1", "AT", nil)
				mustThread(t, g, "seq_2", "ACT", []poa.AlignedPair{
					{Node: 2, Pos: 0}, {Node: poa.InvalidNode, Pos: 1}, {Node: 3, Pos: 2},
				})
				return g
			},
			want:  []Row{{Name: "seq_1", Aligned: "A-T"}, {Name: "seq_2", Aligned: "ACT"}},
			width: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.build(t))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got.Width != tt.width {
				t.Errorf("Width = %d, want %d", got.Width, tt.width)
			}
			if !slices.Equal(got.Rows, tt.want) {
				t.Errorf("Rows = %v, want %v", got.Rows, tt.want)
			}
			for _, row := range got.Rows {
				if len(row.Aligned) != got.Width {
					t.Errorf("row %q has length %d, want %d", row.Name, len(row.Aligned), got.Width)
				}
			}
		})
	}
}

func TestBuildAfterAlignment(t *testing.T) {
	g := poa.New()
	sc := align.NewScoring(4, 8, 2)
	for i, residues := range []string{"ACGT", "ACGA", "ACT"} {
		var pairs []poa.AlignedPair
		if i > 0 {
			result, err := align.Align(g, residues, sc)
			if err != nil {
				t.Fatalf("Align(%q): %v", residues, err)
			}
			pairs = result.Pairs
		}
		mustThread(t, g, fmt.Sprintf("seq_%d", i+1), residues, pairs)
	}

	got, err := Build(g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{"ACGT", "ACGA", "AC-T"}
	if !slices.Equal(got.Strings(), want) {
		t.Errorf("Strings = %v, want %v", got.Strings(), want)
	}
}

func TestBuildRowOrderFollowsInsertion(t *testing.T) {
	g := poa.New()
	mustThread(t, g, "zulu", "ACGT", nil)
	mustThread(t, g, "alpha", "ACGT", []poa.AlignedPair{
		{Node: 2, Pos: 0}, {Node: 3, Pos: 1}, {Node: 4, Pos: 2}, {Node: 5, Pos: 3},
	})

	got, err := Build(g)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	names := make([]string, len(got.Rows))
	for i, row := range got.Rows {
		names[i] = row.Name
	}
	if want := []string{"zulu", "alpha"}; !slices.Equal(names, want) {
		t.Errorf("row names = %v, want %v", names, want)
	}
}

func TestStrings(t *testing.T) {
	a := Alignment{Rows: []Row{{Name: "a", Aligned: "AC-T"}, {Name: "b", Aligned: "ACGT"}}, Width: 4}

	got := a.Strings()
	if want := []string{"AC-T", "ACGT"}; !slices.Equal(got, want) {
		t.Errorf("Strings = %v, want %v", got, want)
	}
	if strings.IndexByte(got[0], Gap) != 2 {
		t.Errorf("gap column = %d, want 2", strings.IndexByte(got[0], Gap))
	}
}
