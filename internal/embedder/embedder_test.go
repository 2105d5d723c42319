package embedder

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records calls and returns a fixed vector
type countingProvider struct {
	calls int
	err   error
}

func (c *countingProvider) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{1, 0}, nil
}

func (c *countingProvider) Name() string   { return "counting" }
func (c *countingProvider) Model() string  { return "counting-1" }
func (c *countingProvider) Dimension() int { return 2 }
func (c *countingProvider) Close() error   { return nil }

func TestCapability(t *testing.T) {
	t.Run("zero value is disabled", func(t *testing.T) {
		var c Capability
		p, ok := c.Provider()
		assert.False(t, ok)
		assert.Nil(t, p)
		assert.False(t, c.Available())
		assert.Equal(t, ErrNoProviderEnabled.Error(), c.Reason())
		assert.NoError(t, c.Close())
	})

	t.Run("enabled", func(t *testing.T) {
		c := Enabled(&countingProvider{})
		p, ok := c.Provider()
		require.True(t, ok)
		assert.Equal(t, "counting", p.Name())
		assert.Empty(t, c.Reason())
	})

	t.Run("enabled nil is disabled", func(t *testing.T) {
		assert.False(t, Enabled(nil).Available())
	})

	t.Run("disabled keeps reason", func(t *testing.T) {
		c := Disabled("GOOGLE_CLOUD_PROJECT not set")
		assert.False(t, c.Available())
		assert.Equal(t, "GOOGLE_CLOUD_PROJECT not set", c.Reason())
	})
}

func TestValidateText(t *testing.T) {
	assert.ErrorIs(t, ValidateText(""), ErrEmptyText)
	assert.ErrorIs(t, ValidateText(" \t\n"), ErrEmptyText)
	assert.NoError(t, ValidateText("robots"))
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name  string
		input []float32
		want  []float32
	}{
		{"unit already", []float32{1, 0}, []float32{1, 0}},
		{"scaled", []float32{3, 4}, []float32{0.6, 0.8}},
		{"zero vector unchanged", []float32{0, 0}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVector(tt.input)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-6)
			}
		})
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	errTransient := errors.New("transient")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			calls++
			return 0, errTransient
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent stops immediately", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			calls++
			return 0, permanent(errTransient)
		})
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero attempts means one", func(t *testing.T) {
		calls := 0
		_, _ = retryWithBackoff(ctx, RetryConfig{}, func() (int, error) {
			calls++
			return 0, errTransient
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		_, err := retryWithBackoff(cctx, cfg, func() (int, error) {
			calls++
			cancel()
			return 0, errTransient
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRateLimited(t *testing.T) {
	t.Run("disabled returns provider unchanged", func(t *testing.T) {
		p := &countingProvider{}
		assert.Same(t, Provider(p), NewRateLimited(p, RateLimitConfig{}))
	})

	t.Run("burst then wait", func(t *testing.T) {
		p := &countingProvider{}
		limited := NewRateLimited(p, RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

		_, err := limited.Embed(context.Background(), "a", TaskRetrievalQuery)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = limited.Embed(ctx, "b", TaskRetrievalQuery)
		assert.Error(t, err)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("delegates metadata", func(t *testing.T) {
		limited := NewRateLimited(&countingProvider{}, RateLimitConfig{RequestsPerSecond: math.MaxFloat64})
		assert.Equal(t, "counting", limited.Name())
		assert.Equal(t, 2, limited.Dimension())
	})
}
