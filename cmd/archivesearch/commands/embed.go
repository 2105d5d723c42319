package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/embedcache"
)

// previewValues is how many vector components embed prints
const previewValues = 5

// newEmbedCmd creates `archivesearch embed`, a check that the configured
// provider and the cache work end to end
func newEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>...",
		Short: "Resolve a query embedding through the cache",
		Long: `Resolves text to its query embedding the way a search would and reports
whether it came from the cache or the provider.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !a.cache.Available() {
				return fmt.Errorf("embedding provider disabled: %s", a.capability.Reason())
			}

			text := strings.Join(args, " ")
			before := a.cache.Counters()
			start := time.Now()
			vector, err := a.cache.Resolve(cmd.Context(), text)
			if err != nil {
				return err
			}
			after := a.cache.Counters()

			source := "provider"
			if after.Misses == before.Misses {
				source = "cache"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Text: %q\n", embedcache.NormalizeText(text))
			fmt.Fprintf(out, "Source: %s\n", source)
			fmt.Fprintf(out, "Dimension: %d\n", len(vector))
			fmt.Fprintf(out, "Duration: %s\n", time.Since(start).Round(time.Millisecond))

			n := min(previewValues, len(vector))
			values := make([]string, n)
			for i := range n {
				values[i] = fmt.Sprintf("%.4f", vector[i])
			}
			fmt.Fprintf(out, "Vector: [%s ...]\n", strings.Join(values, ", "))
			return nil
		},
	}
}
