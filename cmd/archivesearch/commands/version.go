package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/mcp"
	"github.com/dshills/archivesearch/internal/storage"
)

// newVersionCmd creates `archivesearch version`
func newVersionCmd(version, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "archivesearch\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "MCP Server: %s %s\n", mcp.ServerName, mcp.ServerVersion)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
		},
	}
}
