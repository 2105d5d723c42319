package embedder

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Common errors
var (
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrEmptyVector         = errors.New("provider returned an empty vector")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
)

// TaskType tells the model how the embedding will be used
type TaskType string

// Task types understood by the providers
const (
	TaskRetrievalQuery     TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument  TaskType = "RETRIEVAL_DOCUMENT"
	TaskSemanticSimilarity TaskType = "SEMANTIC_SIMILARITY"
)

// Provider turns text into a dense vector
type Provider interface {
	// Embed returns the embedding of text for the given task.
	// A nil error always comes with a non-empty vector.
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)

	// Name returns the provider name
	Name() string

	// Model returns the model name
	Model() string

	// Dimension returns the configured vector dimension, 0 when the model decides
	Dimension() int

	// Close releases any resources held by the provider
	Close() error
}

// Capability is an optional Provider.
// The zero value is disabled, so components built without a provider
// fail fast instead of dereferencing nil.
type Capability struct {
	provider Provider
	reason   string
}

// Enabled wraps a configured provider
func Enabled(p Provider) Capability {
	if p == nil {
		return Disabled(ErrNoProviderEnabled.Error())
	}
	return Capability{provider: p}
}

// Disabled records why no provider is available
func Disabled(reason string) Capability {
	return Capability{reason: reason}
}

// Provider returns the provider and whether one is configured
func (c Capability) Provider() (Provider, bool) {
	return c.provider, c.provider != nil
}

// Available reports whether a provider is configured
func (c Capability) Available() bool {
	return c.provider != nil
}

// Reason explains a disabled capability
func (c Capability) Reason() string {
	if c.provider != nil {
		return ""
	}
	if c.reason == "" {
		return ErrNoProviderEnabled.Error()
	}
	return c.reason
}

// Close closes the provider, if any
func (c Capability) Close() error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Close()
}

// ValidateText rejects text that is empty after trimming
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// checkVector turns an empty provider response into an error
func checkVector(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}
	return v, nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
