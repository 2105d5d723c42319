package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// VertexConfig configures the Vertex AI text embedding provider
type VertexConfig struct {
	Project   string
	Location  string
	Model     string // default DefaultVertexModel
	Dimension int    // outputDimensionality, 0 keeps the model default

	// Endpoint overrides https://{location}-aiplatform.googleapis.com/
	Endpoint string
	// Options are passed to the API client, e.g. credentials
	Options []option.ClientOption
	Retry   RetryConfig
}

// VertexProvider implements Provider with the Vertex AI predict API
type VertexProvider struct {
	service   *aiplatform.Service
	model     string
	resource  string
	dimension int
	retry     RetryConfig
}

// NewVertexProvider creates a Vertex AI embedder.
// Credentials come from the environment (Application Default Credentials)
// unless Options supply them.
func NewVertexProvider(ctx context.Context, cfg VertexConfig) (*VertexProvider, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("%w: vertex project and location are required", ErrNoProviderEnabled)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com/", cfg.Location)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	opts := append([]option.ClientOption{option.WithEndpoint(cfg.Endpoint)}, cfg.Options...)
	service, err := aiplatform.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vertex client: %w", err)
	}

	return &VertexProvider{
		service:   service,
		model:     cfg.Model,
		resource:  fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.Project, cfg.Location, cfg.Model),
		dimension: cfg.Dimension,
		retry:     cfg.Retry,
	}, nil
}

func (v *VertexProvider) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if task == "" {
		task = TaskRetrievalQuery
	}

	vector, err := retryWithBackoff(ctx, v.retry, func() ([]float32, error) {
		return v.predict(ctx, text, task)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return checkVector(vector)
}

func (v *VertexProvider) predict(ctx context.Context, text string, task TaskType) ([]float32, error) {
	req := &aiplatform.GoogleCloudAiplatformV1PredictRequest{
		Instances: []interface{}{
			map[string]interface{}{
				"content":   text,
				"task_type": string(task),
			},
		},
	}
	if v.dimension > 0 {
		req.Parameters = map[string]interface{}{
			"outputDimensionality": v.dimension,
		}
	}

	resp, err := v.service.Projects.Locations.Publishers.Models.Predict(v.resource, req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, retryable(apiErr.Code, fmt.Errorf("predict: %w", err))
		}
		return nil, fmt.Errorf("predict: %w", err)
	}

	if len(resp.Predictions) == 0 {
		return nil, permanent(ErrEmptyVector)
	}

	// Predictions are untyped JSON: {"embeddings": {"values": [...], "statistics": {...}}}
	raw, err := json.Marshal(resp.Predictions[0])
	if err != nil {
		return nil, permanent(fmt.Errorf("encode prediction: %w", err))
	}
	var prediction struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, permanent(fmt.Errorf("decode prediction: %w", err))
	}

	return prediction.Embeddings.Values, nil
}

func (v *VertexProvider) Name() string {
	return ProviderVertex
}

func (v *VertexProvider) Model() string {
	return v.model
}

func (v *VertexProvider) Dimension() int {
	if v.dimension > 0 {
		return v.dimension
	}
	return VertexDimension
}

func (v *VertexProvider) Close() error {
	return nil
}
