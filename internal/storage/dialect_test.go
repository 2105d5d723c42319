package storage

import (
	"testing"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchToFTS5(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single word", "robots", `"robots"`},
		{"implicit and", "student union", `"student" AND "union"`},
		{"phrase", `"student union" elections`, `"student union" AND "elections"`},
		{"or", "rag or charity week", `("rag" OR "charity") AND "week"`},
		{"uppercase or", "rag OR charity", `("rag" OR "charity")`},
		{"exclusion", "union -bar", `("union") NOT "bar"`},
		{"excluded phrase", `union -"student bar"`, `("union") NOT "student bar"`},
		{"leading or ignored", "or robots", `"robots"`},
		{"trailing or ignored", "robots or", `"robots"`},
		{"operators are quoted", "NEAR AND robots*", `"NEAR" AND "AND" AND "robots"`},
		{"punctuation trimmed", "robots! (ai)", `"robots" AND "ai"`},
		{"embedded quote in word", `don't`, `"don't"`},
		{"unterminated phrase", `"student union`, `"student union"`},
		{"only exclusions", "-bar", `""`},
		{"only punctuation", "?! --", `""`},
		{"whitespace", "   ", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WebSearchToFTS5(tt.input))
		})
	}
}

func TestDialectFor(t *testing.T) {
	pg, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, pg.Name())
	assert.Equal(t, "$3", pg.Placeholder(3))

	lite, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, lite.Name())
	assert.Equal(t, "?3", lite.Placeholder(3))

	_, err = DialectFor("mysql")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestDialect_RenderedExpressions(t *testing.T) {
	date := types.MustParseDate("1999-12-31")

	t.Run("postgres", func(t *testing.T) {
		d := PostgresDialect()
		b := query.NewBuilder()
		lex := d.Lexical("a", b.Bind(d.LexicalArg("robots")))
		vec := d.VectorParam(b.Bind(d.VectorArg([]float32{1, 0})))

		stmt, err := b.Render(lex.Match+" | "+lex.Score+" | "+d.CosineDistance("a.e", vec), d)
		require.NoError(t, err)
		assert.Equal(t,
			"a.search_vector @@ websearch_to_tsquery('english', $1) | "+
				"ts_rank_cd(a.search_vector, websearch_to_tsquery('english', $1)) | "+
				"(a.e <=> $2::vector)",
			stmt.SQL)
		assert.Equal(t, []any{"robots", "[1,0]"}, stmt.Args)
		assert.Empty(t, lex.Join)
		assert.Equal(t, date.Time, d.DateArg(date))
	})

	t.Run("sqlite", func(t *testing.T) {
		d := SQLiteDialect()
		b := query.NewBuilder()
		lex := d.Lexical("a", b.Bind(d.LexicalArg("robots")))
		vec := d.VectorParam(b.Bind(d.VectorArg([]float32{1, 0})))

		stmt, err := b.Render(lex.Match+" | "+d.CosineDistance("a.embedding", vec), d)
		require.NoError(t, err)
		assert.Equal(t, "articles_fts MATCH ?1 | vec_cosine_distance(a.embedding, ?2)", stmt.SQL)
		assert.Equal(t, `"robots"`, stmt.Args[0])
		assert.Equal(t, serializeVector([]float32{1, 0}), stmt.Args[1])
		assert.Contains(t, lex.Join, "articles_fts")
		assert.Equal(t, "1999-12-31", d.DateArg(date))
	})
}
