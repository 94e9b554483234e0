package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/poagraph/poagraph/internal/server"
	"github.com/poagraph/poagraph/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string // listen address, config wins when the flag is unset
	noStore bool   // run without the graph store
	noCache bool   // disable artifact caching
}

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve the alignment API over HTTP",
		Long: `Serve the alignment API over HTTP.

Graphs live in memory under uuid handles; clients create them, add
sequences, and fetch the MSA, GFA, or a Graphviz rendering. With a store
configured, graphs can also be saved to and opened from it by name.

The cache and store backends come from the config file; --no-cache and
--no-store switch them off for this run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if opts.addr == "" {
				opts.addr = cfg.Server.Addr
			}
			if cfg.Store.Backend == backendNone {
				opts.noStore = true
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, then :8080)")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "run without the graph store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable artifact caching")

	return cmd
}

// runServe wires the runner and store into the HTTP server and blocks
// until the context is cancelled.
func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var st store.Store
	if !opts.noStore {
		st, err = c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	srv := server.New(runner, st, c.Logger)
	return srv.ListenAndServe(ctx, opts.addr)
}
