package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
	"github.com/poagraph/poagraph/pkg/pipeline"
)

// viewOpts holds the command-line flags for the view command.
type viewOpts struct {
	graph   string // view a stored graph instead of aligning inputs
	noCache bool   // disable artifact caching
}

// viewCommand creates the view command for browsing an alignment
// interactively.
func (c *CLI) viewCommand() *cobra.Command {
	opts := viewOpts{}
	popts := pipeline.Options{
		Mismatch:  pipeline.DefaultMismatch,
		GapOpen:   pipeline.DefaultGapOpen,
		GapExtend: pipeline.DefaultGapExtend,
	}

	cmd := &cobra.Command{
		Use:   "view [flags] [input]...",
		Short: "Browse an alignment interactively",
		Long: `Browse an alignment interactively.

The alignment comes either from FASTA/FASTQ input files (aligned on the
fly) or from the store via --graph. Rows scroll with the arrow keys and
wide alignments pan horizontally; residues are colored by symbol.`,
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
			return c.runView(cmd.Context(), args, opts, popts)
		},
	}

	cmd.Flags().StringVar(&opts.graph, "graph", "", "view a stored graph by name")
	cmd.Flags().IntVar(&popts.Mismatch, "mismatch", popts.Mismatch, "mismatch penalty")
	cmd.Flags().IntVar(&popts.GapOpen, "gap-open", popts.GapOpen, "gap opening penalty")
	cmd.Flags().IntVar(&popts.GapExtend, "gap-extend", popts.GapExtend, "gap extension penalty")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

// runView computes the alignment and hands it to the viewer.
func (c *CLI) runView(ctx context.Context, patterns []string, opts viewOpts, popts pipeline.Options) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, _, err := c.loadOrBuildGraph(ctx, runner, opts.graph, patterns, popts)
	if err != nil {
		return err
	}

	aln, err := runner.MSA(ctx, g)
	if err != nil {
		return err
	}
	if len(aln.Rows) == 0 {
		printInfo("Graph has no sequences")
		return nil
	}

	title := "Alignment"
	if opts.graph != "" {
		title = fmt.Sprintf("Alignment · %s", opts.graph)
	}

	p := tea.NewProgram(NewMSAViewerModel(title, aln))
	_, err = p.Run()
	return err
}
