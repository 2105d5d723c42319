package embedder

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the provider call budget
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit, <= 0 disables limiting
	RequestsPerSecond float64
	// BurstSize is the maximum burst size
	BurstSize int
}

// RateLimited wraps a Provider with a token bucket
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited returns p unchanged when cfg disables limiting
func NewRateLimited(p Provider, cfg RateLimitConfig) Provider {
	if cfg.RequestsPerSecond <= 0 {
		return p
	}
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Embed waits for a token, then calls the wrapped provider.
// A context that ends while waiting returns its error without a call.
func (r *RateLimited) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.Embed(ctx, text, task)
}
