package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/archivesearch/internal/searcher"
)

// searchArticlesTool returns the tool definition for search_articles
func searchArticlesTool() mcp.Tool {
	return mcp.NewTool("search_articles",
		mcp.WithDescription("Search the article archive by keyword, meaning, or both fused with Reciprocal Rank Fusion. Results are paginated and can be limited to a publication date range."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (web-style: quoted phrases, OR, -exclusion)"),
		),
		mcp.WithString("mode",
			mcp.Description("keyword (lexical only), semantic (embedding similarity) or hybrid (both, default)"),
			mcp.Enum(string(searcher.ModeHybrid), string(searcher.ModeSemantic), string(searcher.ModeKeyword)),
		),
		mcp.WithNumber("page",
			mcp.Description("1-indexed page number (default 1)"),
			mcp.Min(1),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Results per page (default 20, max 100)"),
			mcp.Min(1),
			mcp.Max(searcher.DefaultMaxPageSize),
		),
		mcp.WithString("start_date",
			mcp.Description("Earliest publication date, inclusive (YYYY-MM-DD)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Latest publication date, inclusive (YYYY-MM-DD)"),
		),
		mcp.WithNumber("rrf_k",
			mcp.Description("Reciprocal Rank Fusion constant for hybrid mode (default 60)"),
			mcp.Min(1),
		),
	)
}

// getArticleTool returns the tool definition for get_article
func getArticleTool() mcp.Tool {
	return mcp.NewTool("get_article",
		mcp.WithDescription("Fetch one article by ID"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Article UUID"),
		),
	)
}

// similarArticlesTool returns the tool definition for similar_articles
func similarArticlesTool() mcp.Tool {
	return mcp.NewTool("similar_articles",
		mcp.WithDescription("Find the articles closest in meaning to a given article"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Article UUID"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of articles (default 8)"),
			mcp.Min(1),
			mcp.Max(searcher.DefaultMaxPageSize),
		),
	)
}

// randomArticleTool returns the tool definition for random_article
func randomArticleTool() mcp.Tool {
	return mcp.NewTool("random_article",
		mcp.WithDescription("Pick a random article with a headline from at least ten years ago"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// topicTrendsTool returns the tool definition for topic_trends
func topicTrendsTool() mcp.Tool {
	return mcp.NewTool("topic_trends",
		mcp.WithDescription("Yearly share of articles related to each topic, for comparing how coverage changed over time"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("topics",
			mcp.Required(),
			mcp.Description("Topics to compare (1 to 5)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// cacheStatsTool returns the tool definition for cache_stats
func cacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Query embedding cache statistics: hit rate, provider calls and the most used queries"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
