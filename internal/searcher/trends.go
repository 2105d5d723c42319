package searcher

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/archivesearch/pkg/types"
)

// TopicTrend is the yearly prevalence of one topic
type TopicTrend struct {
	Topic string                 `json:"topic"`
	Years []types.YearPrevalence `json:"years"`
}

// Trends returns, for every year with more than Config.MinArticlesPerYear
// articles, the share of that year's articles similar to topic
func (s *Searcher) Trends(ctx context.Context, topic string) (*TopicTrend, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, types.NewSearchError(types.ErrInvalidInput, "topic cannot be empty")
	}

	vector, err := s.resolveEmbedding(ctx, topic)
	if err != nil {
		return nil, err
	}

	years, err := s.storage.TopicPrevalence(ctx, vector, maxDistance(s.cfg.SimilarityThreshold), s.cfg.MinArticlesPerYear)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, s.retrievalFailed("trends", "", []any{topic, s.cfg.MinArticlesPerYear}, err)
	}

	return &TopicTrend{Topic: topic, Years: years}, nil
}

// CompareTrends computes Trends for up to Config.MaxTrendTopics topics
// concurrently. Results keep the order of topics; the first failure cancels
// the rest.
func (s *Searcher) CompareTrends(ctx context.Context, topics []string) ([]TopicTrend, error) {
	if len(topics) == 0 {
		return nil, types.NewSearchError(types.ErrInvalidInput, "at least one topic is required")
	}
	if len(topics) > s.cfg.MaxTrendTopics {
		return nil, types.NewSearchError(types.ErrInvalidInput,
			fmt.Sprintf("at most %d topics can be compared, got %d", s.cfg.MaxTrendTopics, len(topics)))
	}

	trends := make([]TopicTrend, len(topics))
	g, gctx := errgroup.WithContext(ctx)
	for i, topic := range topics {
		g.Go(func() error {
			trend, err := s.Trends(gctx, topic)
			if err != nil {
				return err
			}
			trends[i] = *trend
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trends, nil
}
