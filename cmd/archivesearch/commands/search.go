package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/searcher"
)

// newSearchCmd creates `archivesearch search`
func newSearchCmd() *cobra.Command {
	var (
		mode     string
		page     int
		pageSize int
		from     string
		to       string
		rrfK     int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search the archive",
		Long: `Searches by keyword, by meaning, or both (hybrid, the default).
Queries use web search syntax: "quoted phrases", OR, and -exclusion.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !cmd.Flags().Changed("page-size") {
				pageSize = a.cfg.Search.DefaultPageSize
			}

			resp, err := a.searcher.Search(cmd.Context(), searcher.SearchRequest{
				Query:     strings.Join(args, " "),
				Page:      page,
				PageSize:  pageSize,
				Mode:      searcher.Mode(mode),
				StartDate: from,
				EndDate:   to,
				RRFK:      rrfK,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, resp)
			}

			fmt.Fprintf(out, "%d results for %q (%s, page %d, %s)\n\n",
				len(resp.Articles), resp.Query, resp.Mode, resp.Page, resp.Duration)
			for i, article := range resp.Articles {
				writeArticleLine(out, (resp.Page-1)*resp.PageSize+i+1, article)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(searcher.ModeHybrid), "keyword, semantic or hybrid")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "1-indexed page number")
	cmd.Flags().IntVarP(&pageSize, "page-size", "n", 20, "results per page")
	cmd.Flags().StringVar(&from, "from", "", "earliest publication date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest publication date, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&rrfK, "rrf-k", 0, "fusion constant for hybrid mode (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")

	return cmd
}
