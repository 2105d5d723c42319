package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// barWidth is the length of a 100% prevalence bar
const barWidth = 40

// newTrendsCmd creates `archivesearch trends`
func newTrendsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trends <topic>...",
		Short: "Show the yearly prevalence of one or more topics",
		Long: `For each topic, prints the share of every year's articles that are
related to it. Quote multi-word topics.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			trends, err := a.searcher.CompareTrends(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, trends)
			}
			for _, trend := range trends {
				fmt.Fprintf(out, "%s\n", trend.Topic)
				if len(trend.Years) == 0 {
					fmt.Fprintln(out, "  no qualifying years")
				}
				for _, year := range trend.Years {
					bar := strings.Repeat("#", int(year.Prevalence*barWidth+0.5))
					fmt.Fprintf(out, "  %d %6.2f%% %s\n", year.Year, year.Prevalence*100, bar)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the trends as JSON")
	return cmd
}
