// Package pkg provides the core libraries for poagraph partial order alignment.
//
// # Overview
//
// Poagraph aligns related sequences into a partial order graph instead of a
// flat consensus: each sequence is aligned against the graph built from its
// predecessors and threaded in, so shared runs collapse into single chains
// while substitutions and indels branch. The pkg directory is organized into
// five main areas:
//
//  1. [poa] - The graph itself (nodes, edges, aligned columns, threading)
//  2. [align] - Sequence-to-graph alignment (affine-gap dynamic programming)
//  3. [msa] / [gfa] / [dot] / [graphio] - Alignment, interchange, and render output
//  4. [pipeline] - Orchestration (align → thread → emit) with artifact caching
//  5. [cache] / [store] - Artifact caches and named graph persistence
//
// # Architecture
//
// The typical data flow through poagraph:
//
//	FASTA/FASTQ input
//	         ↓
//	    [fasta] package (parse records)
//	         ↓
//	    [align] package (score sequence against graph)
//	         ↓
//	    [poa] package (thread alignment into the graph)
//	         ↓
//	    MSA/GFA/DOT/SVG/PNG/JSON output
//
// # Quick Start
//
// Build a graph from two sequences and read off the alignment:
//
//	import (
//	    "fmt"
//	    "github.com/poagraph/poagraph/pkg/align"
//	    "github.com/poagraph/poagraph/pkg/msa"
//	    "github.com/poagraph/poagraph/pkg/poa"
//	)
//
//	// 1. Seed the graph with the first sequence
//	g := poa.New()
//	g.ThreadSequence("seq_1", "ACGTTGCA", 1, nil)
//
//	// 2. Align the next sequence and thread it in
//	sc := align.NewScoring(4, 8, 2)
//	res, _ := align.Align(g, "ACGTAGCA", sc)
//	g.ThreadSequence("seq_2", "ACGTAGCA", 1, res.Pairs)
//
//	// 3. Flatten into gapped rows
//	aln, _ := msa.Build(g)
//	for _, row := range aln.Rows {
//	    fmt.Printf("%s\t%s\n", row.Name, row.Aligned)
//	}
//
// # Main Packages
//
// ## Core Domain Logic
//
// [poa] - The partial order graph. Nodes carry one residue plus a support
// weight, edges carry traversal weights, and nodes aligned across sequences
// are linked into columns. ThreadSequence inserts an
// aligned sequence, fusing matches onto existing nodes and growing branches
// for mismatches and insertions.
//
// [align] - Global sequence-to-graph alignment. A dynamic programming sweep
// over the topological order with affine gap penalties, yielding the aligned
// (position, node) pairs ThreadSequence consumes.
//
// [msa] - Multiple sequence alignment extraction. Buckets nodes into columns
// by their aligned-node links and emits one gapped row per threaded sequence.
//
// ## Interchange
//
// [fasta] - FASTA and FASTQ record parsing and writing, with 60-column
// wrapped output.
//
// [gfa] - GFA v1 text form of a graph (header, segment, link, and path
// records) for pangenome tooling. Aligned columns have no GFA encoding, so
// graphio JSON is the lossless interchange form.
//
// [graphio] - JSON wire form of a graph, shared by the HTTP API and the
// graph stores.
//
// [dot] - Graphviz DOT emission plus SVG and PNG rasterization through an
// embedded Graphviz runtime, so no system binary is needed.
//
// ## Infrastructure
//
// [pipeline] - Complete alignment pipeline (align → thread → emit) used by
// CLI and API. The Runner caches derived artifacts (MSA, GFA, renders) under
// a content hash of the graph.
//
// [cache] - Artifact cache with file, Redis, and null backends. Keys are
// BLAKE3 content hashes; a ScopedKeyer prefixes keys so deployments can share
// one backend.
//
// [store] - Named graph persistence with SQLite and MongoDB backends behind
// one Store interface (Save, Load, List, Delete).
//
// [errors] - Coded errors (INVALID_INPUT, NOT_FOUND_GRAPH, ...) shared by
// every package; codes map to HTTP status in the API.
//
// [observability] - Pluggable hooks for pipeline stages, cache traffic, and
// store operations. No-op by default.
//
// [buildinfo] - Version, commit, and build date stamped in at link time.
//
// # Common Workflows
//
// Build a graph from a FASTA file via the pipeline:
//
//	recs, _ := fasta.ParseFile("reads.fasta")
//	inputs := make([]pipeline.Input, 0, len(recs))
//	for _, rec := range recs {
//	    inputs = append(inputs, pipeline.Input{Name: rec.Name, Residues: rec.Sequence, Weight: 1})
//	}
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Build(ctx, inputs, pipeline.Options{})
//
// Render the graph to SVG:
//
//	svg, _ := runner.Render(ctx, res.Graph, pipeline.Options{Format: "svg", Detailed: true})
//
// Persist and reload a graph by name:
//
//	st, _ := store.OpenSQLite("graphs.db")
//	info, _ := st.Save(ctx, "sample", res.Graph)
//	g, _ := st.Load(ctx, "sample")
//
// Exchange a graph with other tools:
//
//	gfa.WriteGraphFile(g, "sample.gfa")
//	g2, _ := gfa.ReadGraphFile("sample.gfa")
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...               # All tests
//	go test ./pkg/poa/...           # Specific package
//	go test -run TestAlign ./pkg/align
//
// [poa]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/poa
// [align]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/align
// [msa]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/msa
// [fasta]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/fasta
// [gfa]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/gfa
// [graphio]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/graphio
// [dot]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/dot
// [pipeline]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/cache
// [store]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/store
// [errors]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/poagraph/poagraph/pkg/buildinfo
package pkg
