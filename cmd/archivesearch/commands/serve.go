package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/mcp"
)

// newServeCmd creates `archivesearch serve`, the MCP server over stdio
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive to MCP clients over stdio",
		Long: `Starts the Model Context Protocol server on stdin/stdout.
Logs are written to stderr. SIGINT or SIGTERM shuts the server down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmd.SetContext(ctx)

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			server := mcp.NewServer(a.searcher, a.cache, mcp.Options{
				DefaultPageSize: a.cfg.Search.DefaultPageSize,
			}, a.logger)

			err = server.Serve(ctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
}
