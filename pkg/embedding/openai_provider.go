package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible /embeddings endpoint and
// retries on rate limiting and server errors.
type OpenAIProvider struct {
	model      string
	client     *goopenai.Client
	maxRetries int
}

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	return &OpenAIProvider{
		model:      model,
		client:     goopenai.NewClientWithConfig(cfg),
		maxRetries: 3,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input: []string{Prefix(mode, text)},
		Model: goopenai.EmbeddingModel(p.model),
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}

		resp, err := p.client.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return nil, fmt.Errorf("openai embeddings: empty data")
			}
			return Normalize(resp.Data[0].Embedding), nil
		}
		if !retryable(ctx, err) {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("openai embeddings: giving up after %d attempts: %w", p.maxRetries+1, lastErr)
}

// retryable accepts 429, 5xx and transport failures.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// retryDelay grows exponentially from 250ms and is capped at 4s.
func retryDelay(attempt int) time.Duration {
	d := 250 * time.Millisecond << uint(attempt-1)
	if d > 4*time.Second {
		d = 4 * time.Second
	}
	return d
}
