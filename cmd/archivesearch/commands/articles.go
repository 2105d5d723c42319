package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newArticleCmd creates `archivesearch article <id>`
func newArticleCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "article <id>",
		Short: "Print one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			article, err := a.searcher.Article(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), article)
			}
			writeArticle(cmd.OutOrStdout(), article)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the article as JSON")
	return cmd
}

// newSimilarCmd creates `archivesearch similar <id>`
func newSimilarCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "List the articles closest in meaning to an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			articles, err := a.searcher.Similar(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, articles)
			}
			fmt.Fprintf(out, "%d articles similar to %s\n\n", len(articles), args[0])
			for i, article := range articles {
				writeArticleLine(out, i+1, article)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of articles (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the articles as JSON")
	return cmd
}

// newRandomCmd creates `archivesearch random`
func newRandomCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print a random article from the archive's past",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			article, err := a.searcher.RandomArticle(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), article)
			}
			writeArticle(cmd.OutOrStdout(), article)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the article as JSON")
	return cmd
}
