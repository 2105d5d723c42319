// Package searcher plans and runs article searches over the archive.
//
// Three modes are supported:
//   - Keyword: lexical relevance only, no embedding required
//   - Semantic: cosine distance to the query embedding, within the similarity threshold
//   - Hybrid: keyword and semantic candidate lists fused with Reciprocal Rank Fusion (default)
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, cache, searcher.Config{}, logger)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:     "student union elections",
//	    Page:      1,
//	    PageSize:  20,
//	    Mode:      searcher.ModeHybrid,
//	    StartDate: "1990-01-01",
//	})
//
// # Reciprocal Rank Fusion
//
// Each signal produces a candidate list of max(50, pageSize*3) rows, ranked
// 1..N with ties broken by date (newest first) and then id. The lists are
// full outer joined on article id and scored
//
//	score = 1/(k + keyword_rank) + 1/(k + vector_rank)
//
// where a missing rank contributes 0 and k defaults to 60. Pagination applies
// to the fused list only, so pages are disjoint and stable for a fixed corpus.
//
// # Errors
//
// Every failure is a *types.SearchError, except context cancellation which is
// returned unchanged. Invalid input is rejected before any I/O. Storage
// failures are logged with the full statement and surface only as
// types.ErrRetrievalFailed.
package searcher
