package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/pkg/errors"
)

// =============================================================================
// Command Definition
// =============================================================================

// graphsCommand groups the stored graph management subcommands.
func (c *CLI) graphsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "Manage stored graphs",
	}

	cmd.AddCommand(c.graphsListCommand())
	cmd.AddCommand(c.graphsShowCommand())
	cmd.AddCommand(c.graphsExportCommand())
	cmd.AddCommand(c.graphsDeleteCommand())

	return cmd
}

// graphsListCommand creates the "graphs list" subcommand.
func (c *CLI) graphsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored graphs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No stored graphs")
				printNextStep("Save one", "poagraph align --save <name> <input>")
				return nil
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, []string{
					info.Name,
					fmt.Sprintf("%d", info.Sequences),
					fmt.Sprintf("%d", info.Nodes),
					sizeString(info.SizeBytes),
					formatRelativeTime(info.UpdatedAt),
				})
			}

			headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("Name", "Sequences", "Nodes", "Size", "Updated").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return headerStyle
					}
					if col == 0 {
						return lipgloss.NewStyle().Foreground(colorWhite)
					}
					return lipgloss.NewStyle().Foreground(colorGray)
				})

			fmt.Println(t.Render())
			return nil
		},
	}
}

// graphsShowCommand creates the "graphs show" subcommand.
func (c *CLI) graphsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show details of a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraphsShow(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runGraphsShow(ctx context.Context, name string) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := st.Load(ctx, name)
	if err != nil {
		return err
	}

	printKeyValue("Name", name)
	printKeyValue("Nodes", fmt.Sprintf("%d", g.NodeCount()-2)) // sentinels excluded
	printKeyValue("Edges", fmt.Sprintf("%d", g.EdgeCount()))
	printKeyValue("Sequences", fmt.Sprintf("%d", g.SequenceCount()))
	printNewline()
	for _, seq := range g.Sequences() {
		printDetail("%s (%d residues, weight %d)", seq.Name, len(seq.Residues), seq.Weight)
	}
	return nil
}

// graphsExportCommand creates the "graphs export" subcommand.
func (c *CLI) graphsExportCommand() *cobra.Command {
	var (
		output  string
		format  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a stored graph as FASTA, MSA, GFA, or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !emitFormats[format] {
				return errors.New(errors.ErrCodeInvalidFormat, "unknown output format %q, want fasta, msa, gfa, or json", format)
			}
			return c.runGraphsExport(cmd.Context(), args[0], output, format, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", formatFASTA, "output format: fasta (default), msa, gfa, json")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

func (c *CLI) runGraphsExport(ctx context.Context, name, output, format string, noCache bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := st.Load(ctx, name)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, cached, err := emitArtifact(ctx, runner, g, format)
	if err != nil {
		return err
	}
	if err := writeArtifact(data, output); err != nil {
		return err
	}
	if output != "" {
		printStats(g.NodeCount(), g.EdgeCount(), g.SequenceCount(), cached)
		printFile(output)
	}
	return nil
}

// graphsDeleteCommand creates the "graphs delete" subcommand.
func (c *CLI) graphsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted graph %q", args[0])
			return nil
		},
	}
}

// =============================================================================
// Helpers
// =============================================================================

// sizeString formats a byte count for display.
func sizeString(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// formatRelativeTime renders a timestamp as a relative age for recent
// times and a date for older ones.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
