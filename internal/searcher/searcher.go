package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dshills/archivesearch/internal/storage"
	"github.com/dshills/archivesearch/pkg/types"
)

// Mode defines how search is performed
type Mode string

const (
	ModeKeyword  Mode = "keyword"  // Lexical relevance only
	ModeSemantic Mode = "semantic" // Cosine distance to the query embedding
	ModeHybrid   Mode = "hybrid"   // Keyword + semantic with RRF
)

// ParseMode accepts the mode names and the archive's older sort names
// ("vector" for semantic, "rrf" for hybrid). Empty means hybrid.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeHybrid), "rrf":
		return ModeHybrid, nil
	case string(ModeSemantic), "vector":
		return ModeSemantic, nil
	case string(ModeKeyword):
		return ModeKeyword, nil
	default:
		return "", types.NewSearchError(types.ErrInvalidInput, fmt.Sprintf("unknown search mode %q", s))
	}
}

// Defaults for Config fields left at zero
const (
	DefaultMaxPageSize          = 100
	DefaultSimilarityThreshold  = 0.65
	DefaultRRFK                 = 60
	DefaultMinIntermediateLimit = 50
	DefaultCandidateMultiplier  = 3
	DefaultSimilarLimit         = 8
	DefaultRandomMinAgeYears    = 10
	DefaultMinArticlesPerYear   = 300
	DefaultMaxTrendTopics       = 5
)

// Config holds retrieval tuning
type Config struct {
	MaxPageSize int
	// SimilarityThreshold is the minimum cosine similarity for semantic
	// results and vector candidates, in (0, 1)
	SimilarityThreshold float64
	RRFK                int
	// Hybrid candidate lists hold max(MinIntermediateLimit, pageSize*CandidateMultiplier) rows
	MinIntermediateLimit int
	CandidateMultiplier  int
	SimilarLimit         int
	RandomMinAgeYears    int
	MinArticlesPerYear   int
	MaxTrendTopics       int

	// Now is the clock for the random article age cutoff
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = DefaultMaxPageSize
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	if c.MinIntermediateLimit <= 0 {
		c.MinIntermediateLimit = DefaultMinIntermediateLimit
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if c.SimilarLimit <= 0 {
		c.SimilarLimit = DefaultSimilarLimit
	}
	if c.RandomMinAgeYears <= 0 {
		c.RandomMinAgeYears = DefaultRandomMinAgeYears
	}
	if c.MinArticlesPerYear <= 0 {
		c.MinArticlesPerYear = DefaultMinArticlesPerYear
	}
	if c.MaxTrendTopics <= 0 {
		c.MaxTrendTopics = DefaultMaxTrendTopics
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// EmbeddingResolver resolves query text to a vector.
// *embedcache.Cache implements it.
type EmbeddingResolver interface {
	Resolve(ctx context.Context, text string) ([]float32, error)
	Available() bool
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query     string
	Page      int  // 1-indexed
	PageSize  int  // 1..MaxPageSize
	Mode      Mode // empty means hybrid
	StartDate string
	EndDate   string // YYYY-MM-DD, both bounds inclusive
	RRFK      int    // hybrid only, 0 means the configured default
}

// SearchResponse contains one page of ranked articles
type SearchResponse struct {
	Articles  []types.Article `json:"articles"`
	Query     string          `json:"query"`
	Mode      Mode            `json:"mode"`
	Page      int             `json:"page"`
	PageSize  int             `json:"page_size"`
	StartDate string          `json:"start_date,omitempty"`
	EndDate   string          `json:"end_date,omitempty"`
	RRFK      int             `json:"rrf_k,omitempty"`
	Duration  time.Duration   `json:"duration_ns"`
}

// Searcher plans and runs searches against the archive
type Searcher struct {
	storage    storage.Storage
	embeddings EmbeddingResolver
	cfg        Config
	logger     *slog.Logger
}

// NewSearcher creates a new Searcher instance.
// embeddings may be nil, in which case semantic and hybrid search fail with
// types.ErrEmbeddingUnavailable.
func NewSearcher(store storage.Storage, embeddings EmbeddingResolver, cfg Config, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Searcher{
		storage:    store,
		embeddings: embeddings,
		cfg:        cfg,
		logger:     logger.With("component", "searcher"),
	}
}

// Config returns the effective configuration
func (s *Searcher) Config() Config {
	return s.cfg
}

// request is a validated SearchRequest
type request struct {
	query    string
	page     int
	pageSize int
	mode     Mode
	start    *types.Date
	end      *types.Date
	rrfK     int
}

// offset saturates at math.MaxInt, so a page far past the end stays empty
func (r request) offset() int {
	if r.page-1 > math.MaxInt/r.pageSize {
		return math.MaxInt
	}
	return (r.page - 1) * r.pageSize
}

// Search performs a search based on the request parameters.
//
// Errors are *types.SearchError: ErrInvalidInput before any I/O,
// ErrEmbeddingUnavailable for semantic and hybrid search without a usable
// embedding, ErrRetrievalFailed for storage failures. A context error is
// returned as is.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	r, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	var vector []float32
	if r.mode != ModeKeyword {
		vector, err = s.resolveEmbedding(ctx, r.query)
		if err != nil {
			return nil, err
		}
	}

	stmt, err := s.plan(r, vector)
	if err != nil {
		return nil, s.retrievalFailed(string(r.mode), stmt.SQL, stmt.Args, err)
	}

	rows, err := s.storage.QueryArticles(ctx, stmt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.retrievalFailed(string(r.mode), stmt.SQL, stmt.Args, err)
	}

	articles, err := s.assemble(rows)
	if err != nil {
		return nil, s.retrievalFailed(string(r.mode), stmt.SQL, stmt.Args, err)
	}

	resp := &SearchResponse{
		Articles: articles,
		Query:    r.query,
		Mode:     r.mode,
		Page:     r.page,
		PageSize: r.pageSize,
		Duration: time.Since(startTime),
	}
	if r.start != nil {
		resp.StartDate = r.start.String()
	}
	if r.end != nil {
		resp.EndDate = r.end.String()
	}
	if r.mode == ModeHybrid {
		resp.RRFK = r.rrfK
	}

	s.logger.Debug("search completed",
		"mode", r.mode,
		"page", r.page,
		"page_size", r.pageSize,
		"results", len(articles),
		"duration_ms", resp.Duration.Milliseconds())

	return resp, nil
}

// resolveEmbedding maps every failure except cancellation to ErrEmbeddingUnavailable
func (s *Searcher) resolveEmbedding(ctx context.Context, text string) ([]float32, error) {
	if s.embeddings == nil || !s.embeddings.Available() {
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "semantic search is not configured")
	}
	vector, err := s.embeddings.Resolve(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *types.SearchError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "query embedding failed")
	}
	if len(vector) == 0 {
		return nil, types.NewSearchError(types.ErrEmbeddingUnavailable, "query embedding is empty")
	}
	return vector, nil
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req SearchRequest) (request, error) {
	invalid := func(format string, args ...any) (request, error) {
		return request{}, types.NewSearchError(types.ErrInvalidInput, fmt.Sprintf(format, args...))
	}

	r := request{
		query:    strings.TrimSpace(req.Query),
		page:     req.Page,
		pageSize: req.PageSize,
		rrfK:     req.RRFK,
	}

	if r.query == "" {
		return invalid("query cannot be empty")
	}
	if r.page < 1 {
		return invalid("page must be at least 1, got %d", r.page)
	}
	if r.pageSize < 1 || r.pageSize > s.cfg.MaxPageSize {
		return invalid("page size must be between 1 and %d, got %d", s.cfg.MaxPageSize, r.pageSize)
	}

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return request{}, err
	}
	r.mode = mode

	if r.rrfK < 0 {
		return invalid("rrf k must not be negative, got %d", r.rrfK)
	}
	if r.rrfK == 0 {
		r.rrfK = s.cfg.RRFK
	}

	if strings.TrimSpace(req.StartDate) != "" {
		d, err := types.ParseDate(req.StartDate)
		if err != nil {
			return invalid("start date %q is not YYYY-MM-DD", req.StartDate)
		}
		r.start = &d
	}
	if strings.TrimSpace(req.EndDate) != "" {
		d, err := types.ParseDate(req.EndDate)
		if err != nil {
			return invalid("end date %q is not YYYY-MM-DD", req.EndDate)
		}
		r.end = &d
	}
	if r.start != nil && r.end != nil && r.end.Before(*r.start) {
		return invalid("start date %s is after end date %s", r.start, r.end)
	}

	return r, nil
}
