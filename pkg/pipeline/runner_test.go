package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/poagraph/poagraph/pkg/cache"
	"github.com/poagraph/poagraph/pkg/msa"
)

func quietRunner(t *testing.T, c cache.Cache) *Runner {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	r := NewRunner(c, nil, logger)
	t.Cleanup(func() { r.Close() })
	return r
}

func fileCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return c
}

func TestBuildSingleSequence(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, []Input{{Residues: "ACGT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Graph.NodeCount() != 6 { // 4 residues + 2 sentinels
		t.Errorf("NodeCount = %d, want 6", result.Graph.NodeCount())
	}
	if len(result.Added) != 1 {
		t.Fatalf("Added has %d entries, want 1", len(result.Added))
	}
	if result.Added[0].Aligned {
		t.Error("first sequence should thread without alignment")
	}
	if result.Added[0].Sequence.Name != "seq_1" {
		t.Errorf("auto name = %q, want seq_1", result.Added[0].Sequence.Name)
	}
	if len(result.GraphHash) != 64 {
		t.Errorf("GraphHash length = %d, want 64", len(result.GraphHash))
	}
	if result.Stats.NodeCount != 6 || result.Stats.EdgeCount != 5 {
		t.Errorf("Stats = %d nodes / %d edges, want 6/5", result.Stats.NodeCount, result.Stats.EdgeCount)
	}

	rows, err := r.MSA(ctx, result.Graph)
	if err != nil {
		t.Fatalf("MSA: %v", err)
	}
	if got := rows.Strings(); len(got) != 1 || got[0] != "ACGT" {
		t.Errorf("MSA = %v, want [ACGT]", got)
	}
}

func TestBuildIdenticalSequencesReuseNodes(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, []Input{{Residues: "ACGT"}, {Residues: "ACGT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Full node reuse: still four residue nodes.
	if result.Graph.NodeCount() != 6 {
		t.Errorf("NodeCount = %d, want 6", result.Graph.NodeCount())
	}
	if !result.Added[1].Aligned {
		t.Error("second sequence should be aligned")
	}
	if result.Added[1].Score != 8 { // four matches at +2
		t.Errorf("second score = %d, want 8", result.Added[1].Score)
	}

	// Both sequences share one path and its edge weights doubled.
	first, second := result.Added[0].Sequence.Path, result.Added[1].Sequence.Path
	if len(first) != len(second) {
		t.Fatalf("path lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("paths diverge at %d: %d vs %d", i, first[i], second[i])
		}
	}
	edge, ok := result.Graph.Edge(first[0], first[1])
	if !ok {
		t.Fatal("path edge missing")
	}
	if edge.Weight != 2 {
		t.Errorf("edge weight = %d, want 2", edge.Weight)
	}
}

func TestBuildAutoNamesFollowOrdinal(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, []Input{
		{Residues: "ACGT"},
		{Name: "patient_7", Residues: "ACGA"},
		{Residues: "ACT"},
	}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	names := []string{
		result.Added[0].Sequence.Name,
		result.Added[1].Sequence.Name,
		result.Added[2].Sequence.Name,
	}
	want := []string{"seq_1", "patient_7", "seq_3"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("name[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestBuildWeightedSequence(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, []Input{{Residues: "ACGT", Weight: 3}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := result.Added[0].Sequence.Path
	node, ok := result.Graph.Node(path[0])
	if !ok {
		t.Fatal("path node missing")
	}
	if node.Weight != 3 {
		t.Errorf("node weight = %d, want 3", node.Weight)
	}
	edge, _ := result.Graph.Edge(path[0], path[1])
	if edge.Weight != 3 {
		t.Errorf("edge weight = %d, want 3", edge.Weight)
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Graph.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2 (sentinels only)", result.Graph.NodeCount())
	}

	rows, err := r.MSA(ctx, result.Graph)
	if err != nil {
		t.Fatalf("MSA of empty graph: %v", err)
	}
	if len(rows.Rows) != 0 {
		t.Errorf("MSA rows = %d, want 0", len(rows.Rows))
	}
}

func TestAddSequenceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := quietRunner(t, nil)

	result, err := r.Build(context.Background(), []Input{{Residues: "ACGT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cancel()
	_, err = r.AddSequence(ctx, result.Graph, Input{Residues: "ACGA"}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	// The graph is unchanged: alignment ran but threading never started.
	if result.Graph.SequenceCount() != 1 {
		t.Errorf("SequenceCount = %d, want 1", result.Graph.SequenceCount())
	}
}

func TestMSAWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, fileCache(t))

	result, err := r.Build(ctx, []Input{{Residues: "ACGT"}, {Residues: "ACGA"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	first, hit, err := r.MSAWithCacheInfo(ctx, result.Graph)
	if err != nil {
		t.Fatalf("MSAWithCacheInfo: %v", err)
	}
	if hit {
		t.Error("first call should miss the cache")
	}

	second, hit, err := r.MSAWithCacheInfo(ctx, result.Graph)
	if err != nil {
		t.Fatalf("MSAWithCacheInfo (second): %v", err)
	}
	if !hit {
		t.Error("second call should hit the cache")
	}
	if !alignmentsEqual(first, second) {
		t.Error("cached MSA differs from computed MSA")
	}

	// Mutating the graph changes its hash, so the next read misses.
	if _, err := r.AddSequence(ctx, result.Graph, Input{Residues: "ACT"}, Options{}); err != nil {
		t.Fatalf("AddSequence: %v", err)
	}
	_, hit, err = r.MSAWithCacheInfo(ctx, result.Graph)
	if err != nil {
		t.Fatalf("MSAWithCacheInfo (after mutation): %v", err)
	}
	if hit {
		t.Error("read after mutation should miss the cache")
	}
}

func TestGFAWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, fileCache(t))

	result, err := r.Build(ctx, []Input{{Residues: "ACGT"}, {Residues: "ACT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	first, hit, err := r.GFAWithCacheInfo(ctx, result.Graph)
	if err != nil {
		t.Fatalf("GFAWithCacheInfo: %v", err)
	}
	if hit {
		t.Error("first call should miss the cache")
	}
	if !bytes.HasPrefix(first, []byte("H\t")) {
		t.Errorf("GFA output should start with a header line, got %q", first[:min(len(first), 20)])
	}

	second, hit, err := r.GFAWithCacheInfo(ctx, result.Graph)
	if err != nil {
		t.Fatalf("GFAWithCacheInfo (second): %v", err)
	}
	if !hit {
		t.Error("second call should hit the cache")
	}
	if !bytes.Equal(first, second) {
		t.Error("cached GFA differs from computed GFA")
	}
}

func TestRenderWithCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, fileCache(t))

	result, err := r.Build(ctx, []Input{{Residues: "GAT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	opts := Options{Format: "dot"}
	data, hit, err := r.RenderWithCacheInfo(ctx, result.Graph, opts)
	if err != nil {
		t.Fatalf("RenderWithCacheInfo: %v", err)
	}
	if hit {
		t.Error("first render should miss the cache")
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Error("dot output should start with the digraph header")
	}

	_, hit, err = r.RenderWithCacheInfo(ctx, result.Graph, Options{Format: "dot"})
	if err != nil {
		t.Fatalf("RenderWithCacheInfo (second): %v", err)
	}
	if !hit {
		t.Error("second render should hit the cache")
	}

	// Detailed renders are keyed separately.
	_, hit, err = r.RenderWithCacheInfo(ctx, result.Graph, Options{Format: "dot", Detailed: true})
	if err != nil {
		t.Fatalf("RenderWithCacheInfo (detailed): %v", err)
	}
	if hit {
		t.Error("detailed render should have its own cache key")
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	r := quietRunner(t, nil)

	result, err := r.Build(ctx, []Input{{Residues: "GAT"}}, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, _, err := r.RenderWithCacheInfo(ctx, result.Graph, Options{Format: "pdf"}); err == nil {
		t.Error("pdf should be rejected")
	}
}

func alignmentsEqual(a, b msa.Alignment) bool {
	if a.Width != b.Width || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		if a.Rows[i].Name != b.Rows[i].Name || a.Rows[i].Aligned != b.Rows[i].Aligned {
			return false
		}
	}
	return true
}
