// Package pipeline provides the core alignment pipeline for poagraph.
//
// This package implements the complete align → thread → emit pipeline that
// can be used by CLI and API components. By centralizing this logic, we
// ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Align: Run the affine-gap aligner of a sequence against the graph
//  2. Thread: Commit the alignment into the graph as a new path
//  3. Emit: Produce derived artifacts (MSA, GFA, DOT/SVG/PNG renders)
//
// Each stage can be run independently or as part of the complete pipeline.
// Derived artifacts are cached keyed by the graph's content hash, so
// repeated reads of an unchanged graph never recompute.
//
// # Usage
//
// Create a Runner and build a graph:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Build(ctx, []pipeline.Input{
//	    {Residues: "ACGT"},
//	    {Residues: "ACGA"},
//	}, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows, _, err := runner.MSAWithCacheInfo(ctx, result.Graph)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/poagraph/poagraph/pkg/align"
	"github.com/poagraph/poagraph/pkg/cache"
	"github.com/poagraph/poagraph/pkg/dot"
	"github.com/poagraph/poagraph/pkg/poa"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultMismatch is the default mismatch penalty magnitude.
	DefaultMismatch = 4

	// DefaultGapOpen is the default gap opening penalty magnitude.
	DefaultGapOpen = 8

	// DefaultGapExtend is the default gap extension penalty magnitude.
	DefaultGapExtend = 2

	// DefaultWeight is the default sequence weight (multiplicity).
	DefaultWeight = 1
)

// DefaultFormat is the default render format.
const DefaultFormat = string(dot.FormatSVG)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the alignment pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Scoring options (penalty magnitudes; the match reward is fixed)
	Mismatch  int `json:"mismatch,omitempty"`
	GapOpen   int `json:"gap_open,omitempty"`
	GapExtend int `json:"gap_extend,omitempty"`

	// Render options
	Format   string `json:"format,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Input is one sequence to add to a graph. An empty Name is replaced by
// an auto-generated "seq_N"; a zero Weight defaults to DefaultWeight.
type Input struct {
	Name     string `json:"name,omitempty"`
	Residues string `json:"residues"`
	Weight   int    `json:"weight,omitempty"`
}

// Result contains the outputs of building a graph from sequences.
type Result struct {
	// Graph is the partial order graph after all sequences are threaded.
	Graph *poa.Graph

	// GraphHash is the content hash of the graph.
	GraphHash string

	// Added describes each sequence's trip through the pipeline, in input
	// order.
	Added []AddResult

	// Stats contains timing and size information.
	Stats Stats
}

// AddResult describes one added sequence.
type AddResult struct {
	// Sequence is the committed sequence record, including its node path.
	Sequence poa.Sequence

	// Score is the alignment score. Zero when Aligned is false.
	Score int

	// Aligned reports whether the sequence was aligned before threading.
	// The first sequence of an empty graph threads directly.
	Aligned bool

	AlignTime  time.Duration
	ThreadTime time.Duration
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	AlignTime  time.Duration
	ThreadTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a render format is supported.
func ValidateFormat(format string) error {
	_, err := dot.ParseFormat(format)
	return err
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults for the full
// pipeline. This method is idempotent - calling it multiple times has the
// same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForAlign(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetScoringDefaults fills in default scoring penalties.
func (o *Options) SetScoringDefaults() {
	if o.Mismatch == 0 {
		o.Mismatch = DefaultMismatch
	}
	if o.GapOpen == 0 {
		o.GapOpen = DefaultGapOpen
	}
	if o.GapExtend == 0 {
		o.GapExtend = DefaultGapExtend
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForAlign validates scoring options, applying defaults first.
func (o *Options) ValidateForAlign() error {
	o.SetScoringDefaults()
	return o.Scoring().Validate()
}

// SetRenderDefaults fills in default render options.
func (o *Options) SetRenderDefaults() {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates render options, applying defaults first. The
// format is normalized so equivalent spellings share one cache key.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	format, err := dot.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = string(format)
	return nil
}

// Scoring returns the align.Scoring these options describe.
func (o *Options) Scoring() align.Scoring {
	return align.Scoring{
		Match:     align.DefaultMatch,
		Mismatch:  o.Mismatch,
		GapOpen:   o.GapOpen,
		GapExtend: o.GapExtend,
	}
}

// RenderKeyOpts returns cache key options for the render artifact.
func (o *Options) RenderKeyOpts() cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:   o.Format,
		Detailed: o.Detailed,
	}
}
