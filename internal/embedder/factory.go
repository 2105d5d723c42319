package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/option"
)

// Config holds embedder configuration
type Config struct {
	// Provider is vertex, openai, local or none. Empty auto-detects.
	Provider  string
	Model     string
	Dimension int

	// Vertex AI
	Project         string
	Location        string
	CredentialsFile string

	// OpenAI-compatible
	APIKey  string
	BaseURL string

	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
	Burst             int
}

// DetectProvider returns the provider that New would build for cfg.
// Priority:
// 1. Explicit Provider
// 2. Vertex when project and location are set
// 3. OpenAI when an API key is set
// 4. none
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.Project != "" && cfg.Location != "" {
		return ProviderVertex
	}
	if cfg.APIKey != "" {
		return ProviderOpenAI
	}
	return ProviderNone
}

// New builds the embedding capability described by cfg.
// An unknown provider name is an error. A provider that is selected but
// cannot be constructed, for example because credentials are missing,
// yields a disabled Capability so keyword search keeps working.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Capability, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "embedder")

	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}

	var (
		p   Provider
		err error
	)
	name := DetectProvider(cfg)
	switch name {
	case ProviderVertex:
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		p, err = NewVertexProvider(ctx, VertexConfig{
			Project:   cfg.Project,
			Location:  cfg.Location,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Options:   opts,
			Retry:     retry,
		})
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
			Retry:     retry,
		})
	case ProviderLocal:
		p = NewLocalProvider(cfg.Dimension)
	case ProviderNone:
		logger.Info("embedding provider disabled, semantic and hybrid search unavailable")
		return Disabled(ErrNoProviderEnabled.Error()), nil
	default:
		return Capability{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}

	if err != nil {
		logger.Error("embedding provider unavailable", "provider", name, "error", err)
		return Disabled(err.Error()), nil
	}

	logger.Info("embedding provider ready",
		"provider", p.Name(),
		"model", p.Model(),
		"dimension", p.Dimension(),
		"rate_limit", cfg.RequestsPerSecond)

	return Enabled(NewRateLimited(p, RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		BurstSize:         cfg.Burst,
	})), nil
}
