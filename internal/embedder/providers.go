package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
	ProviderNone   = "none"

	// Default models
	DefaultVertexModel = "gemini-embedding-001"
	DefaultOpenAIModel = "text-embedding-3-small"
	LocalModel         = "local-hashing"

	// Dimensions
	VertexDimension = 3072
	OpenAIDimension = 1536
	LocalDimension  = 384

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultTimeout       = 30 * time.Second

	// Retry configuration
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// retryable keeps 429 and 5xx failures eligible for another attempt
func retryable(status int, err error) error {
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return err
	}
	return permanent(err)
}

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // default DefaultOpenAIBaseURL
	Model     string // default DefaultOpenAIModel
	Dimension int    // sent as "dimensions" when > 0
	Timeout   time.Duration
	Retry     RetryConfig
}

// OpenAIProvider implements Provider over the OpenAI embeddings API
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	retry      RetryConfig
	httpClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrNoProviderEnabled)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &OpenAIProvider{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		retry:     cfg.Retry,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Embed ignores task; the OpenAI API has no task hint
func (o *OpenAIProvider) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}

	vector, err := retryWithBackoff(ctx, o.retry, func() ([]float32, error) {
		return o.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return checkVector(vector)
}

func (o *OpenAIProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"input": text,
		"model": o.model,
	}
	if o.dimension > 0 {
		reqBody["dimensions"] = o.dimension
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, retryable(resp.StatusCode, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, permanent(fmt.Errorf("decode response: %w", err))
	}

	if len(apiResp.Data) == 0 {
		return nil, permanent(ErrEmptyVector)
	}
	return apiResp.Data[0].Embedding, nil
}

func (o *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Dimension() int {
	if o.dimension > 0 {
		return o.dimension
	}
	return OpenAIDimension
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider hashes words into a fixed number of buckets.
// It needs no network and gives texts that share words a small cosine
// distance, which is enough for development databases and tests.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local embedder, dimension <= 0 means LocalDimension
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) Embed(ctx context.Context, text string, _ TaskType) ([]float32, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, l.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, word := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vector[sum%uint64(l.dimension)] += sign
	}

	if len(words) == 0 {
		// Punctuation only: still return a usable direction
		vector[0] = 1
	}

	return NormalizeVector(vector), nil
}

func (l *LocalProvider) Name() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return LocalModel
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Close() error {
	return nil
}
