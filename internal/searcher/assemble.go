package searcher

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

// retrievalMessage is the only detail callers see for storage failures
const retrievalMessage = "failed to retrieve articles, please try again later"

// assemble converts storage rows into articles in row order
func (s *Searcher) assemble(rows []storage.ArticleRow) ([]types.Article, error) {
	articles := make([]types.Article, 0, len(rows))
	for i := range rows {
		article, err := assembleRow(&rows[i])
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// assembleRow normalizes the stored date and maps NULL metadata to empty strings
func assembleRow(row *storage.ArticleRow) (types.Article, error) {
	date, err := types.NormalizeDate(row.ArticleDate)
	if err != nil {
		return types.Article{}, fmt.Errorf("article %s: %w", row.ID, err)
	}

	article := types.Article{
		ID:          row.ID,
		Publication: row.Publication,
		IssueNo:     row.IssueNo,
		PageNo:      row.PageNo,
		Date:        date,
		Headline:    row.Headline.String,
		Strapline:   row.Strapline.String,
		Author:      row.Author.String,
		Category:    row.Category.String,
		Text:        row.Text,
	}
	if row.Score.Valid {
		article.Score = row.Score.Float64
	}
	if row.KeywordRank.Valid {
		article.KeywordRank = int(row.KeywordRank.Int64)
	}
	if row.VectorRank.Valid {
		article.VectorRank = int(row.VectorRank.Int64)
	}
	return article, nil
}

// retrievalFailed logs the full statement for operators and returns a
// generic error for callers
func (s *Searcher) retrievalFailed(op, sqlText string, args []any, err error) error {
	s.logger.Error("retrieval failed",
		"operation", op,
		"error", err,
		"sql", sqlText,
		"args", abbreviateArgs(args))
	return types.NewSearchError(types.ErrRetrievalFailed, retrievalMessage)
}

// abbreviateArgs keeps log lines readable when arguments include vectors
func abbreviateArgs(args []any) []string {
	const maxLen = 64
	out := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case []byte:
			out[i] = fmt.Sprintf("<%d bytes>", len(v))
		case string:
			if len(v) > maxLen {
				cut := maxLen
				for cut > 0 && !utf8.RuneStart(v[cut]) {
					cut--
				}
				out[i] = fmt.Sprintf("%q...(%d chars)", v[:cut], utf8.RuneCountInString(v))
			} else {
				out[i] = fmt.Sprintf("%q", v)
			}
		default:
			out[i] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
