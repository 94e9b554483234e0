package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/fasta"
	"github.com/poagraph/poagraph/pkg/graphio"
	"github.com/poagraph/poagraph/pkg/msa"
	"github.com/poagraph/poagraph/pkg/pipeline"
	"github.com/poagraph/poagraph/pkg/poa"
)

// =============================================================================
// Command Definition
// =============================================================================

// Emit formats for the align and graphs export commands.
const (
	formatFASTA = "fasta"
	formatMSA   = "msa"
	formatGFA   = "gfa"
	formatJSON  = "json"
)

// emitFormats is the set of supported textual output formats.
var emitFormats = map[string]bool{formatFASTA: true, formatMSA: true, formatGFA: true, formatJSON: true}

// alignOpts holds the command-line flags for the align command.
type alignOpts struct {
	output  string // output file path, stdout when empty
	format  string // output format: fasta, msa, gfa, json
	weight  int    // weight applied to every input sequence
	save    string // store the graph under this name after aligning
	noCache bool   // disable artifact caching
}

// alignCommand creates the align command, the main entry point of the CLI.
// It reads sequences from FASTA/FASTQ files, threads them through a partial
// order graph in input order, and writes the alignment in the requested
// format.
func (c *CLI) alignCommand() *cobra.Command {
	opts := alignOpts{
		format: formatFASTA,
		weight: pipeline.DefaultWeight,
	}
	popts := pipeline.Options{
		Mismatch:  pipeline.DefaultMismatch,
		GapOpen:   pipeline.DefaultGapOpen,
		GapExtend: pipeline.DefaultGapExtend,
	}

	cmd := &cobra.Command{
		Use:   "align [flags] <input>...",
		Short: "Align sequences into a partial order graph",
		Long: `Align sequences into a partial order graph.

Inputs are FASTA or FASTQ files (glob patterns like 'reads/**/*.fasta' work).
Sequences are threaded into the graph in input order; each one is globally
aligned against the graph built so far. The default output is the multiple
sequence alignment as aligned FASTA.

Output formats:
  fasta  aligned rows under their '>name' headers (default)
  msa    plain rows, name and aligned string separated by a tab
  gfa    the graph in GFA v1 for genome graph tooling
  json   the graph document used by the store and the HTTP API

Use --save to keep the graph in the local store for later rendering or
serving.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !emitFormats[opts.format] {
				return errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q, want fasta, msa, gfa, or json", opts.format)
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}
			mergeScoring(cmd, cfg, &popts)
			return c.runAlign(cmd.Context(), args, opts, popts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: fasta (default), msa, gfa, json")
	cmd.Flags().IntVar(&opts.weight, "weight", opts.weight, "weight applied to every input sequence")
	cmd.Flags().IntVar(&popts.Mismatch, "mismatch", popts.Mismatch, "mismatch penalty")
	cmd.Flags().IntVar(&popts.GapOpen, "gap-open", popts.GapOpen, "gap opening penalty")
	cmd.Flags().IntVar(&popts.GapExtend, "gap-extend", popts.GapExtend, "gap extension penalty")
	cmd.Flags().StringVar(&opts.save, "save", "", "save the graph to the store under this name")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

// =============================================================================
// Command Execution
// =============================================================================

// runAlign reads the inputs, builds the graph, and writes the artifact.
func (c *CLI) runAlign(ctx context.Context, patterns []string, opts alignOpts, popts pipeline.Options) error {
	paths, err := expandInputs(patterns)
	if err != nil {
		return err
	}

	inputs, err := readInputs(paths, opts.weight)
	if err != nil {
		return err
	}
	c.Logger.Infof("Read %d sequences from %d files", len(inputs), len(paths))

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Aligning %d sequences...", len(inputs)))
	spinner.Start()

	result, err := runner.Build(ctx, inputs, popts)
	if err != nil {
		spinner.StopWithError("Alignment failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Aligned %d sequences", len(result.Added)))

	data, cached, err := emitArtifact(ctx, runner, result.Graph, opts.format)
	if err != nil {
		return err
	}

	if err := writeArtifact(data, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.Graph.SequenceCount(), cached)
		printFile(opts.output)
	}

	if opts.save != "" {
		if err := c.saveGraph(ctx, opts.save, result.Graph); err != nil {
			return err
		}
	}
	return nil
}

// saveGraph persists g under name in the configured store.
func (c *CLI) saveGraph(ctx context.Context, name string, g *poa.Graph) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	info, err := st.Save(ctx, name, g)
	if err != nil {
		return err
	}
	printSuccess("Saved graph %q", name)
	printDetail("Digest: %s", shortDigest(info.Digest))
	printNextStep("Render it", fmt.Sprintf("poagraph visualize --graph %s", name))
	return nil
}

// =============================================================================
// Input Handling
// =============================================================================

// expandInputs expands glob patterns into file paths. Plain paths pass
// through untouched so a missing file surfaces as a parse error with its
// name; a pattern matching nothing is an error here.
func expandInputs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[{") {
			paths = append(paths, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "bad input pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.New(errors.ErrCodeFileNotFound, "no files match %q", pattern)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// readInputs parses each FASTA/FASTQ file into pipeline inputs, keeping
// file order so auto-generated sequence names stay stable.
func readInputs(paths []string, weight int) ([]pipeline.Input, error) {
	var inputs []pipeline.Input
	for _, path := range paths {
		records, err := fasta.ParseFile(path)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			inputs = append(inputs, pipeline.Input{Name: rec.Name, Residues: rec.Sequence, Weight: weight})
		}
	}
	if len(inputs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no sequences found in input files")
	}
	return inputs, nil
}

// =============================================================================
// Artifact Emission
// =============================================================================

// emitArtifact produces the requested textual artifact for g. The bool
// reports whether the artifact came from the cache.
func emitArtifact(ctx context.Context, runner *pipeline.Runner, g *poa.Graph, format string) ([]byte, bool, error) {
	switch format {
	case formatFASTA:
		aln, cached, err := runner.MSAWithCacheInfo(ctx, g)
		if err != nil {
			return nil, false, err
		}
		data, err := msaAsFASTA(aln)
		return data, cached, err
	case formatMSA:
		aln, cached, err := runner.MSAWithCacheInfo(ctx, g)
		if err != nil {
			return nil, false, err
		}
		return msaAsText(aln), cached, nil
	case formatGFA:
		return runner.GFAWithCacheInfo(ctx, g)
	case formatJSON:
		data, err := graphio.MarshalGraph(g)
		return data, false, err
	default:
		return nil, false, errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q, want fasta, msa, gfa, or json", format)
	}
}

// msaAsFASTA renders the alignment rows as aligned FASTA records.
func msaAsFASTA(aln msa.Alignment) ([]byte, error) {
	records := make([]fasta.Record, 0, len(aln.Rows))
	for _, row := range aln.Rows {
		records = append(records, fasta.Record{Name: row.Name, Sequence: row.Aligned})
	}
	var buf bytes.Buffer
	if err := fasta.WriteFASTA(records, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// msaAsText renders the alignment as tab-separated name/row lines.
func msaAsText(aln msa.Alignment) []byte {
	var b strings.Builder
	for _, row := range aln.Rows {
		fmt.Fprintf(&b, "%s\t%s\n", row.Name, row.Aligned)
	}
	return []byte(b.String())
}

// =============================================================================
// Output Handling
// =============================================================================

// writeArtifact writes data to path, or stdout when path is empty.
func writeArtifact(data []byte, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = out.Write(data)
	return err
}

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// shortDigest abbreviates a content digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
