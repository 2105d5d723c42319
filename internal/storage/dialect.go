package storage

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/pkg/types"
)

// Dialect describes the SQL surface that differs between backends.
// Plans are written once against it and rendered with its placeholders.
type Dialect interface {
	query.Placeholder

	// Name is "postgres" or "sqlite"
	Name() string

	// EmbeddingColumn is the article embedding column
	EmbeddingColumn() string

	// Lexical returns how to match and score articles against a bound lexical query.
	// alias is the articles table alias.
	Lexical(alias string, q query.Param) Lexical

	// CosineDistance returns an expression for the cosine distance between two
	// vector expressions. NULL on either side yields NULL.
	CosineDistance(a, b string) string

	// VectorParam wraps a bound VectorArg for use as a vector expression
	VectorParam(vec query.Param) string

	// Float casts an expression to a double precision value
	Float(expr string) string

	// Year extracts the calendar year of a date column as an integer
	Year(column string) string

	// SampleClause is a table sampling clause for cheap random picks, or ""
	SampleClause() string

	// Argument encoders
	LexicalArg(text string) any
	VectorArg(vec []float32) any
	DateArg(d types.Date) any

	// DecodeVector reads a vector column value
	DecodeVector(raw []byte) ([]float32, error)
}

// Lexical is the full-text match for one plan
type Lexical struct {
	Join  string // extra FROM clause, may be empty
	Match string // WHERE predicate
	Score string // relevance, higher is better
}

// Dialect names
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type postgresDialect struct {
	query.PlaceholderFunc
}

// PostgresDialect renders for PostgreSQL with pgvector and tsvector search
func PostgresDialect() Dialect {
	return postgresDialect{query.Dollar}
}

func (postgresDialect) Name() string            { return DialectPostgres }
func (postgresDialect) EmbeddingColumn() string { return "gemini_embedding_001" }

func (postgresDialect) Lexical(alias string, q query.Param) Lexical {
	tsq := fmt.Sprintf("websearch_to_tsquery('english', %s)", q)
	return Lexical{
		Match: fmt.Sprintf("%s.search_vector @@ %s", alias, tsq),
		Score: fmt.Sprintf("ts_rank_cd(%s.search_vector, %s)", alias, tsq),
	}
}

func (postgresDialect) CosineDistance(a, b string) string {
	return "(" + a + " <=> " + b + ")"
}

func (postgresDialect) VectorParam(vec query.Param) string {
	return vec.String() + "::vector"
}

func (postgresDialect) Float(expr string) string {
	return "CAST(" + expr + " AS double precision)"
}

func (postgresDialect) Year(column string) string {
	return "CAST(EXTRACT(YEAR FROM " + column + ") AS integer)"
}

func (postgresDialect) SampleClause() string { return "TABLESAMPLE SYSTEM (1)" }

func (postgresDialect) LexicalArg(text string) any { return text }

func (postgresDialect) VectorArg(vec []float32) any { return formatPGVector(vec) }

func (postgresDialect) DateArg(d types.Date) any { return d.Time }

func (postgresDialect) DecodeVector(raw []byte) ([]float32, error) {
	return parsePGVector(string(raw))
}

type sqliteDialect struct {
	query.PlaceholderFunc
}

// SQLiteDialect renders for SQLite with FTS5 and the registered cosine function
func SQLiteDialect() Dialect {
	return sqliteDialect{query.Question}
}

func (sqliteDialect) Name() string            { return DialectSQLite }
func (sqliteDialect) EmbeddingColumn() string { return "embedding" }

func (sqliteDialect) Lexical(alias string, q query.Param) Lexical {
	return Lexical{
		Join:  fmt.Sprintf("JOIN articles_fts ON articles_fts.rowid = %s.rowid", alias),
		Match: fmt.Sprintf("articles_fts MATCH %s", q),
		// bm25 is lower-is-better
		Score: "(-bm25(articles_fts))",
	}
}

func (sqliteDialect) CosineDistance(a, b string) string {
	return CosineDistanceFunc + "(" + a + ", " + b + ")"
}

func (sqliteDialect) VectorParam(vec query.Param) string {
	return vec.String()
}

func (sqliteDialect) Float(expr string) string {
	return "CAST(" + expr + " AS REAL)"
}

func (sqliteDialect) Year(column string) string {
	return "CAST(strftime('%Y', " + column + ") AS INTEGER)"
}

func (sqliteDialect) SampleClause() string { return "" }

func (sqliteDialect) LexicalArg(text string) any { return WebSearchToFTS5(text) }

func (sqliteDialect) VectorArg(vec []float32) any { return serializeVector(vec) }

func (sqliteDialect) DateArg(d types.Date) any { return d.String() }

func (sqliteDialect) DecodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(raw))
	}
	return deserializeVector(raw), nil
}

// WebSearchToFTS5 translates web-style search syntax into an FTS5 expression.
//
// Unquoted words are ANDed, "quoted text" is a phrase, "or" between two terms
// makes an alternative and a leading "-" excludes a term. Every term is emitted
// as a quoted FTS5 string so user input can never reach FTS5 operators.
// Text with no positive term yields an expression that matches nothing.
func WebSearchToFTS5(text string) string {
	var (
		groups   [][]string
		excluded []string
		orNext   bool
	)

	for _, tok := range tokenizeWebSearch(text) {
		switch {
		case !tok.phrase && strings.EqualFold(tok.text, "or"):
			if len(groups) > 0 {
				orNext = true
			}
			continue
		case tok.negated:
			excluded = append(excluded, quoteFTS(tok.text))
			orNext = false
			continue
		}

		term := quoteFTS(tok.text)
		if orNext {
			last := len(groups) - 1
			groups[last] = append(groups[last], term)
		} else {
			groups = append(groups, []string{term})
		}
		orNext = false
	}

	if len(groups) == 0 {
		return `""`
	}

	clauses := make([]string, len(groups))
	for i, g := range groups {
		if len(g) == 1 {
			clauses[i] = g[0]
			continue
		}
		clauses[i] = "(" + strings.Join(g, " OR ") + ")"
	}
	expr := strings.Join(clauses, " AND ")
	for _, ex := range excluded {
		expr = "(" + expr + ") NOT " + ex
	}
	return expr
}

type webToken struct {
	text    string
	phrase  bool
	negated bool
}

func tokenizeWebSearch(text string) []webToken {
	var tokens []webToken
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		negated := false
		if runes[i] == '-' && i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			negated = true
			i++
		}

		if runes[i] == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if phrase := strings.TrimSpace(string(runes[i+1 : end])); phrase != "" {
				tokens = append(tokens, webToken{text: phrase, phrase: true, negated: negated})
			}
			i = end + 1
			continue
		}

		end := i
		for end < len(runes) && !unicode.IsSpace(runes[end]) && runes[end] != '"' {
			end++
		}
		word := strings.TrimFunc(string(runes[i:end]), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if word != "" {
			tokens = append(tokens, webToken{text: word, negated: negated})
		}
		i = end
	}
	return tokens
}

// quoteFTS wraps s in an FTS5 string literal
func quoteFTS(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
