package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/archivesearch/internal/searcher"
	"github.com/dshills/archivesearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeEmbeddingUnavailable = -32003 // Semantic features need an embedding provider
	ErrorCodeNotFound             = -32004 // Requested article does not exist
)

// handleSearchArticles handles the search_articles tool invocation
func (s *Server) handleSearchArticles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	page, err := intArg(args, "page", 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := intArg(args, "page_size", s.opts.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	rrfK, err := intArg(args, "rrf_k", 0)
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     query,
		Page:      page,
		PageSize:  pageSize,
		Mode:      searcher.Mode(getStringDefault(args, "mode", "")),
		StartDate: getStringDefault(args, "start_date", ""),
		EndDate:   getStringDefault(args, "end_date", ""),
		RRFK:      rrfK,
	})
	if err != nil {
		return nil, s.toolError("search_articles", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":       resp.Query,
		"mode":        resp.Mode,
		"page":        resp.Page,
		"page_size":   resp.PageSize,
		"start_date":  resp.StartDate,
		"end_date":    resp.EndDate,
		"rrf_k":       resp.RRFK,
		"count":       len(resp.Articles),
		"articles":    resp.Articles,
		"duration_ms": resp.Duration.Milliseconds(),
	})), nil
}

// handleGetArticle handles the get_article tool invocation
func (s *Server) handleGetArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(request.GetArguments(), "id")
	if err != nil {
		return nil, err
	}

	article, err := s.searcher.Article(ctx, id)
	if err != nil {
		return nil, s.toolError("get_article", err)
	}
	return mcp.NewToolResultText(formatJSON(article)), nil
}

// handleSimilarArticles handles the similar_articles tool invocation
func (s *Server) handleSimilarArticles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	limit, err := intArg(args, "limit", 0)
	if err != nil {
		return nil, err
	}

	articles, err := s.searcher.Similar(ctx, id, limit)
	if err != nil {
		return nil, s.toolError("similar_articles", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":       id,
		"count":    len(articles),
		"articles": articles,
	})), nil
}

// handleRandomArticle handles the random_article tool invocation
func (s *Server) handleRandomArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	article, err := s.searcher.RandomArticle(ctx)
	if err != nil {
		return nil, s.toolError("random_article", err)
	}
	return mcp.NewToolResultText(formatJSON(article)), nil
}

// handleTopicTrends handles the topic_trends tool invocation
func (s *Server) handleTopicTrends(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics, err := stringSliceArg(request.GetArguments(), "topics")
	if err != nil {
		return nil, err
	}

	trends, err := s.searcher.CompareTrends(ctx, topics)
	if err != nil {
		return nil, s.toolError("topic_trends", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"min_articles_per_year": s.searcher.Config().MinArticlesPerYear,
		"similarity_threshold":  s.searcher.Config().SimilarityThreshold,
		"topics":                trends,
	})), nil
}

// handleCacheStats handles the cache_stats tool invocation
func (s *Server) handleCacheStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cache == nil {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"enabled": false,
		})), nil
	}

	stats, err := s.cache.Stats(ctx)
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "failed to read cache statistics", nil)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"enabled":  true,
		"hit_rate": math.Round(stats.HitRate()*1000) / 1000,
		"stats":    stats,
	})), nil
}

// Helper functions

// toolError converts a searcher failure into an MCPError carrying only the
// caller-safe message
func (s *Server) toolError(tool string, err error) error {
	code := errorCode(err)
	if code == ErrorCodeInternalError {
		s.logger.Warn("tool failed", "tool", tool, "error", err)
	}
	return newMCPError(code, types.PublicMessage(err), map[string]interface{}{
		"status": types.StatusCode(err),
	})
}

// errorCode maps failure kinds to MCP error codes
func errorCode(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return ErrorCodeInvalidParams
	case errors.Is(err, types.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, types.ErrEmbeddingUnavailable):
		return ErrorCodeEmbeddingUnavailable
	default:
		return ErrorCodeInternalError
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// intArg extracts an integer parameter with a default value.
// JSON numbers arrive as float64; fractional or out of range values are rejected.
func intArg(args map[string]interface{}, key string, defaultValue int) (int, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return defaultValue, nil
	}
	switch val := raw.(type) {
	case float64:
		if val == math.Trunc(val) && val > float64(math.MinInt) && val < float64(math.MaxInt) {
			return int(val), nil
		}
	case int:
		return val, nil
	}
	return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
		"param": key,
		"value": raw,
	})
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// stringSliceArg extracts a required array of strings
func stringSliceArg(args map[string]interface{}, key string) ([]string, error) {
	invalid := newMCPError(ErrorCodeInvalidParams, key+" must be a non-empty array of strings", map[string]interface{}{
		"param": key,
	})

	switch val := args[key].(type) {
	case []string:
		if len(val) == 0 {
			return nil, invalid
		}
		return val, nil
	case []interface{}:
		if len(val) == 0 {
			return nil, invalid
		}
		out := make([]string, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, invalid
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, invalid
	}
}
