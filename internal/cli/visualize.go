package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/pipeline"
	"github.com/poagraph/poagraph/pkg/poa"
)

// =============================================================================
// Command Definition
// =============================================================================

// visualizeOpts holds the command-line flags for the visualize command.
type visualizeOpts struct {
	output   string // output file, derived from the input when empty
	format   string // render format: dot, svg, png
	graph    string // render this stored graph instead of aligning inputs
	detailed bool   // include edge weights and per-sequence paths
	noCache  bool   // disable artifact caching
}

// visualizeCommand creates the visualize command for rendering a graph
// with Graphviz.
func (c *CLI) visualizeCommand() *cobra.Command {
	opts := visualizeOpts{format: pipeline.DefaultFormat}
	popts := pipeline.Options{
		Mismatch:  pipeline.DefaultMismatch,
		GapOpen:   pipeline.DefaultGapOpen,
		GapExtend: pipeline.DefaultGapExtend,
	}

	cmd := &cobra.Command{
		Use:   "visualize [flags] [input]...",
		Short: "Render a partial order graph with Graphviz",
		Long: `Render a partial order graph with Graphviz.

The graph comes either from FASTA/FASTQ input files (aligned on the fly)
or from the store via --graph. Nodes are labeled with their residue and
weight; --detailed adds edge weights and per-sequence paths.

Renders are cached locally for faster subsequent runs.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.graph == "" && len(args) == 0 {
				return errors.New(errors.ErrCodeInvalidInput, "provide input files or --graph")
			}
			if opts.graph != "" && len(args) > 0 {
				return errors.New(errors.ErrCodeInvalidInput, "input files and --graph are mutually exclusive")
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}
			mergeScoring(cmd, cfg, &popts)
			return c.runVisualize(cmd.Context(), args, opts, popts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default derived from the input)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), png, dot")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "render a stored graph by name")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include edge weights and sequence paths")
	cmd.Flags().IntVar(&popts.Mismatch, "mismatch", popts.Mismatch, "mismatch penalty")
	cmd.Flags().IntVar(&popts.GapOpen, "gap-open", popts.GapOpen, "gap opening penalty")
	cmd.Flags().IntVar(&popts.GapExtend, "gap-extend", popts.GapExtend, "gap extension penalty")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

// =============================================================================
// Command Execution
// =============================================================================

// runVisualize builds or loads the graph and renders it.
func (c *CLI) runVisualize(ctx context.Context, patterns []string, opts visualizeOpts, popts pipeline.Options) error {
	popts.Format = opts.format
	popts.Detailed = opts.detailed
	if err := popts.ValidateForRender(); err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, paths, err := c.loadOrBuildGraph(ctx, runner, opts.graph, patterns, popts)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", popts.Format))
	spinner.Start()

	data, cached, err := runner.RenderWithCacheInfo(ctx, g, popts)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()

	out := outputName(opts.output, opts.graph, paths, popts.Format)
	if err := writeArtifact(data, out); err != nil {
		return err
	}

	printStats(g.NodeCount(), g.EdgeCount(), g.SequenceCount(), cached)
	printFile(out)
	return nil
}

// =============================================================================
// Graph Sources
// =============================================================================

// loadOrBuildGraph loads a stored graph by name, or aligns the given input
// files when name is empty. It returns the expanded input paths so callers
// can derive output names from them.
func (c *CLI) loadOrBuildGraph(ctx context.Context, runner *pipeline.Runner, name string, patterns []string, popts pipeline.Options) (*poa.Graph, []string, error) {
	if name != "" {
		st, err := c.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		defer st.Close()

		g, err := st.Load(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		c.Logger.Infof("Loaded graph %q with %d sequences", name, g.SequenceCount())
		return g, nil, nil
	}

	paths, err := expandInputs(patterns)
	if err != nil {
		return nil, nil, err
	}
	inputs, err := readInputs(paths, pipeline.DefaultWeight)
	if err != nil {
		return nil, nil, err
	}

	prog := newProgress(c.Logger)
	result, err := runner.Build(ctx, inputs, popts)
	if err != nil {
		return nil, nil, err
	}
	prog.done(fmt.Sprintf("Aligned %d sequences", len(result.Added)))
	return result.Graph, paths, nil
}

// outputName derives the output file name when -o is not given: the stored
// graph name or the first input's base name, with the format as extension.
func outputName(output, graphName string, paths []string, format string) string {
	if output != "" {
		return output
	}
	base := "graph"
	if graphName != "" {
		base = graphName
	} else if len(paths) > 0 {
		base = strings.TrimSuffix(filepath.Base(paths[0]), filepath.Ext(paths[0]))
	}
	return base + "." + format
}
