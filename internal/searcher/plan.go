package searcher

import (
	"fmt"

	"github.com/dshills/archivesearch/internal/query"
	"github.com/dshills/archivesearch/internal/storage"
)

// planner renders the statement for one validated request.
// Every value travels as a bound parameter; the SQL text only ever
// contains markers produced by the builder.
type planner struct {
	d   storage.Dialect
	b   *query.Builder
	r   request
	cfg Config

	start, end query.Param
}

func (s *Searcher) plan(r request, vector []float32) (query.Statement, error) {
	p := &planner{
		d:   s.storage.Dialect(),
		b:   query.NewBuilder(),
		r:   r,
		cfg: s.cfg,
	}
	// Date bounds are bound once and shared by every condition list that
	// references them, so hybrid plans send each date a single time.
	if r.start != nil {
		p.start = p.b.Bind(p.d.DateArg(*r.start))
	}
	if r.end != nil {
		p.end = p.b.Bind(p.d.DateArg(*r.end))
	}

	var sqlText string
	switch r.mode {
	case ModeKeyword:
		sqlText = p.keyword()
	case ModeSemantic:
		sqlText = p.semantic(vector)
	case ModeHybrid:
		sqlText = p.hybrid(vector)
	default:
		return query.Statement{}, fmt.Errorf("unsupported search mode: %s", r.mode)
	}

	return p.b.Render(sqlText, p.d)
}

// dateBounds appends the optional date range after the primary condition
func (p *planner) dateBounds(conds *query.Conditions, alias string) {
	if p.r.start != nil {
		conds.Add(alias+".article_date >= %s", p.start)
	}
	if p.r.end != nil {
		conds.Add(alias+".article_date <= %s", p.end)
	}
}

// lexical binds the request text and returns the dialect's match and score
func (p *planner) lexical(alias string) (storage.Lexical, *query.Conditions) {
	lex := p.d.Lexical(alias, p.b.Bind(p.d.LexicalArg(p.r.query)))
	conds := p.b.Conditions()
	conds.Add(lex.Match)
	p.dateBounds(conds, alias)
	return lex, conds
}

// distance binds the query vector and returns the distance expression with
// its threshold condition
func (p *planner) distance(alias string, vector []float32) (string, *query.Conditions) {
	col := alias + "." + p.d.EmbeddingColumn()
	dist := p.d.CosineDistance(col, p.d.VectorParam(p.b.Bind(p.d.VectorArg(vector))))
	conds := p.b.Conditions()
	conds.Add(col + " IS NOT NULL")
	conds.Add(dist+" < %s", maxDistance(p.cfg.SimilarityThreshold))
	p.dateBounds(conds, alias)
	return dist, conds
}

// page renders LIMIT and OFFSET for the requested page
func (p *planner) page() string {
	return fmt.Sprintf("LIMIT %s OFFSET %s", p.b.Bind(p.r.pageSize), p.b.Bind(p.r.offset()))
}

// keyword ranks lexical matches by relevance, then date, then id
func (p *planner) keyword() string {
	lex, conds := p.lexical("a")
	return fmt.Sprintf(`
		SELECT %s, %s AS score, NULL AS keyword_rank, NULL AS vector_rank
		FROM articles a %s
		%s
		ORDER BY score DESC, a.article_date DESC, a.id
		%s`,
		storage.ArticleColumns("a"), p.d.Float(lex.Score), lex.Join,
		conds.Where(),
		p.page())
}

// semantic ranks articles within the similarity threshold by distance, then date, then id
func (p *planner) semantic(vector []float32) string {
	dist, conds := p.distance("a", vector)
	return fmt.Sprintf(`
		SELECT %s, %s AS score, NULL AS keyword_rank, NULL AS vector_rank
		FROM articles a
		%s
		ORDER BY score ASC, a.article_date DESC, a.id
		%s`,
		storage.ArticleColumns("a"), dist,
		conds.Where(),
		p.page())
}

// hybrid fuses keyword and vector candidate lists with Reciprocal Rank Fusion.
//
// Each candidate list is cut at the intermediate limit before ranking, the
// lists are full outer joined on id, and only the fused list is paged.
// Articles in neither list never appear.
func (p *planner) hybrid(vector []float32) string {
	limit := p.b.Bind(intermediateLimit(p.r.pageSize, p.cfg))
	k := p.b.Bind(p.r.rrfK)

	lex, keywordConds := p.lexical("a")
	dist, vectorConds := p.distance("a", vector)

	return fmt.Sprintf(`
		WITH keyword_scored AS MATERIALIZED (
			SELECT a.id, a.article_date, %[1]s AS score
			FROM articles a %[2]s
			%[3]s
			ORDER BY score DESC, a.article_date DESC, a.id
			LIMIT %[4]s
		),
		keyword_candidates AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY score DESC, article_date DESC, id) AS rank
			FROM keyword_scored
		),
		vector_scored AS MATERIALIZED (
			SELECT a.id, a.article_date, %[5]s AS distance
			FROM articles a
			%[6]s
			ORDER BY distance ASC, a.article_date DESC, a.id
			LIMIT %[4]s
		),
		vector_candidates AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY distance ASC, article_date DESC, id) AS rank
			FROM vector_scored
		),
		fused AS (
			SELECT COALESCE(k.id, v.id) AS id,
				k.rank AS keyword_rank,
				v.rank AS vector_rank,
				%[7]s AS score
			FROM keyword_candidates k
			FULL OUTER JOIN vector_candidates v ON k.id = v.id
		)
		SELECT %[8]s, f.score, f.keyword_rank, f.vector_rank
		FROM fused f
		JOIN articles a ON a.id = f.id
		ORDER BY f.score DESC, a.article_date DESC, a.id
		%[9]s`,
		p.d.Float(lex.Score), lex.Join, keywordConds.Where(), limit,
		dist, vectorConds.Where(),
		rrfScore(p.d, k, "k.rank", "v.rank"),
		storage.ArticleColumns("a"),
		p.page())
}
