package searcher

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

func TestAssembleRow_Dates(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"time", time.Date(1987, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"time with offset", time.Date(1987, 2, 13, 23, 30, 0, 0, time.FixedZone("X", 3600))},
		{"text", "1987-02-13"},
		{"rfc3339", "1987-02-13T00:00:00Z"},
		{"bytes", []byte("1987-02-13")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := assembleRow(&storage.ArticleRow{ID: "x", ArticleDate: tt.raw})
			require.NoError(t, err)
			assert.Equal(t, "1987-02-13", a.Date.String())
			assert.Equal(t, time.UTC, a.Date.Location())
			assert.Zero(t, a.Date.Hour())
		})
	}

	t.Run("malformed", func(t *testing.T) {
		_, err := assembleRow(&storage.ArticleRow{ID: "x", ArticleDate: 42})
		assert.Error(t, err)
	})
}

func TestAssembleRow_Fields(t *testing.T) {
	row := &storage.ArticleRow{
		ID:          "id-1",
		Publication: "phoenix",
		IssueNo:     7,
		PageNo:      2,
		ArticleDate: "1970-05-01",
		Headline:    sql.NullString{String: "Sit-in", Valid: true},
		Category:    sql.NullString{String: "News", Valid: true},
		Text:        "body",
		Score:       sql.NullFloat64{Float64: 0.25, Valid: true},
		KeywordRank: sql.NullInt64{Int64: 4, Valid: true},
	}

	a, err := assembleRow(row)
	require.NoError(t, err)
	assert.Equal(t, types.Article{
		ID:          "id-1",
		Publication: "phoenix",
		IssueNo:     7,
		PageNo:      2,
		Date:        types.MustParseDate("1970-05-01"),
		Headline:    "Sit-in",
		Category:    "News",
		Text:        "body",
		Score:       0.25,
		KeywordRank: 4,
	}, a)
}

func TestAbbreviateArgs(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := abbreviateArgs([]any{make([]byte, 12288), "robots", long, 10, nil})

	assert.Equal(t, "<12288 bytes>", got[0])
	assert.Equal(t, `"robots"`, got[1])
	assert.Contains(t, got[2], "(100 chars)")
	assert.Less(t, len(got[2]), len(long))
	assert.Equal(t, "10", got[3])
	assert.Equal(t, "<nil>", got[4])

	// The 64-byte cut would fall inside the first "é"
	accented := strings.Repeat("a", 63) + strings.Repeat("é", 10)
	got = abbreviateArgs([]any{accented})
	assert.Equal(t, `"`+strings.Repeat("a", 63)+`"...(73 chars)`, got[0])
	assert.NotContains(t, got[0], `\x`)
}
