package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheStatsCmd creates `archivesearch cache-stats`
func newCacheStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cache-stats",
		Short: "Show query embedding cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			stats, err := a.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, stats)
			}

			fmt.Fprintf(out, "Provider available: %v\n", stats.ProviderAvailable)
			fmt.Fprintf(out, "Hit rate this process: %.1f%% (%d hits, %d misses)\n",
				stats.HitRate()*100, stats.Hits+stats.L1Hits, stats.Misses)
			if stats.Persisted == nil {
				return nil
			}
			fmt.Fprintf(out, "Cached queries: %d\n", stats.Persisted.Entries)
			fmt.Fprintf(out, "Total uses: %d\n", stats.Persisted.TotalUsage)
			if len(stats.Persisted.TopQueries) > 0 {
				fmt.Fprintln(out, "\nMost used:")
				for _, q := range stats.Persisted.TopQueries {
					fmt.Fprintf(out, "  %6d  %s\n", q.UsageCount, q.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}
