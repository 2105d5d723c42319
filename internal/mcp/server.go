package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/archivesearch/internal/embedcache"
	"github.com/dshills/archivesearch/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "archivesearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultPageSize applies when search_articles omits page_size
	DefaultPageSize = 20
)

// CacheStatsReporter reports embedding cache statistics.
// *embedcache.Cache implements it.
type CacheStatsReporter interface {
	Stats(ctx context.Context) (*embedcache.Stats, error)
}

// Options configures the tool surface
type Options struct {
	DefaultPageSize int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	searcher *searcher.Searcher
	cache    CacheStatsReporter
	opts     Options
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance.
// cache may be nil, in which case cache_stats reports the cache as disabled.
func NewServer(s *searcher.Searcher, cache CacheStatsReporter, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}

	srv := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		searcher: s,
		cache:    cache,
		opts:     opts,
		logger:   logger.With("component", "mcp"),
	}
	srv.registerTools()
	return srv
}

// Serve speaks MCP over in and out until ctx is done or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("serving MCP over stdio", "name", ServerName, "version", ServerVersion)
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchArticlesTool(), s.handleSearchArticles)
	s.mcp.AddTool(getArticleTool(), s.handleGetArticle)
	s.mcp.AddTool(similarArticlesTool(), s.handleSimilarArticles)
	s.mcp.AddTool(randomArticleTool(), s.handleRandomArticle)
	s.mcp.AddTool(topicTrendsTool(), s.handleTopicTrends)
	s.mcp.AddTool(cacheStatsTool(), s.handleCacheStats)
}
