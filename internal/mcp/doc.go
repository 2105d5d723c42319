// Package mcp implements the Model Context Protocol (MCP) server for archivesearch.
//
// The server exposes the archive to MCP clients over stdio:
//   - search_articles: keyword, semantic or hybrid search with date range and pagination
//   - get_article: one article by ID
//   - similar_articles: nearest articles by embedding
//   - random_article: a random article from at least ten years ago
//   - topic_trends: yearly prevalence of up to five topics
//   - cache_stats: query embedding cache statistics
//
// # Basic Usage
//
//	archivesearch serve
//
// The server reads MCP messages from stdin and writes responses to stdout, so
// all logging goes to stderr.
//
// # Tool: search_articles
//
//	Request:
//	{
//	  "name": "search_articles",
//	  "arguments": {
//	    "query": "student union elections",
//	    "mode": "hybrid",
//	    "page": 1,
//	    "page_size": 20,
//	    "start_date": "1990-01-01",
//	    "end_date": "1999-12-31"
//	  }
//	}
//
// Hybrid results carry keyword_rank and vector_rank (absent when the article
// was not a candidate for that signal) and the fused score.
//
// # Error Codes
//
//   - -32602: invalid parameters (empty query, bad page, malformed date or ID)
//   - -32003: embedding provider unavailable; keyword search still works
//   - -32004: article not found
//   - -32603: internal error; details are logged, never returned
package mcp
