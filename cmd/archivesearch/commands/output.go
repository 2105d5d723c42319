package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/archivesearch/pkg/types"
)

// snippetLength bounds the text shown per article in listings
const snippetLength = 160

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeArticleLine prints one search result as a numbered listing entry
func writeArticleLine(w io.Writer, n int, a types.Article) {
	headline := a.Headline
	if headline == "" {
		headline = "(no headline)"
	}
	fmt.Fprintf(w, "%3d. %s  %s  [%s #%d p%d]\n", n, a.Date, headline, a.Publication, a.IssueNo, a.PageNo)

	var details []string
	if a.Score != 0 {
		details = append(details, fmt.Sprintf("score=%.5f", a.Score))
	}
	if a.KeywordRank > 0 {
		details = append(details, fmt.Sprintf("keyword_rank=%d", a.KeywordRank))
	}
	if a.VectorRank > 0 {
		details = append(details, fmt.Sprintf("vector_rank=%d", a.VectorRank))
	}
	details = append(details, "id="+a.ID)
	fmt.Fprintf(w, "     %s\n", strings.Join(details, " "))
	fmt.Fprintf(w, "     %s\n", snippet(a.Text, snippetLength))
}

// writeArticle prints a full article
func writeArticle(w io.Writer, a *types.Article) {
	fmt.Fprintf(w, "%s\n", a.Headline)
	if a.Strapline != "" {
		fmt.Fprintf(w, "%s\n", a.Strapline)
	}
	fmt.Fprintf(w, "%s, issue %d, page %d, %s\n", a.Publication, a.IssueNo, a.PageNo, a.Date)
	if a.Author != "" {
		fmt.Fprintf(w, "By %s\n", a.Author)
	}
	if a.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", a.Category)
	}
	fmt.Fprintf(w, "ID: %s\n\n%s\n", a.ID, a.Text)
}

// snippet collapses whitespace and cuts text to at most n runes
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
