// Package commands implements the archivesearch CLI with cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered
func NewRootCmd(version, buildTime string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "archivesearch",
		Short: "Hybrid keyword and semantic search over a newspaper archive",
		Long: `archivesearch searches a newspaper and magazine archive by keyword,
by meaning, or both fused with Reciprocal Rank Fusion.

Examples:
  archivesearch serve
  archivesearch search "rag week" --mode keyword --from 1990-01-01
  archivesearch trends "student housing" "tuition fees"
  archivesearch cache-stats`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newArticleCmd(),
		newSimilarCmd(),
		newRandomCmd(),
		newTrendsCmd(),
		newCacheStatsCmd(),
		newEmbedCmd(),
		newMigrateCmd(),
		newVersionCmd(version, buildTime),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "dotenv files to load (default .env, .env.local)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "override log.level (debug, info, warn, error)")

	return rootCmd
}
