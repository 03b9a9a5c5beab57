package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/meshworks/taskmesh/ratelimit"
)

// LimitResource names the rate limiter resource covering completion
// requests.
const LimitResource = "llm"

// OpenAICompatProvider implements Provider against any OpenAI-compatible
// chat completion endpoint. Pointing BaseURL at OpenRouter gives access
// to its whole model catalog with one client.
type OpenAICompatProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	retry     RetryConfig
	limiter   ratelimit.Limiter
}

// OpenAICompatConfig holds configuration for the provider.
type OpenAICompatConfig struct {
	APIKey    string
	BaseURL   string // e.g. https://openrouter.ai/api/v1
	Model     string
	MaxTokens int // 0 uses the backend default
	Retry     RetryConfig

	// Limiter, when set, paces requests against the LimitResource
	// resource and shrinks its capacity when the backend returns
	// rate limit errors. Unlimited when nil or when the resource has
	// no configured capacity.
	Limiter ratelimit.Limiter
}

// NewOpenAICompatProvider creates a provider using the official SDK.
func NewOpenAICompatProvider(cfg OpenAICompatConfig) (*OpenAICompatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAICompatProvider{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     cfg.Retry,
		limiter:   cfg.Limiter,
	}, nil
}

// Chat implements the Provider interface.
func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if p.limiter != nil && p.limiter.Snapshot(LimitResource) != nil {
		if err := p.limiter.Acquire(ctx, LimitResource); err != nil {
			return nil, fmt.Errorf("awaiting completion slot: %w", err)
		}
		defer p.limiter.Release(LimitResource)
	}

	// Make request with retry
	maxRetries, initBackoff, maxBackoff := p.retry.effective()
	var resp *openai.ChatCompletion
	var err error
	backoff := initBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err = p.client.Chat.Completions.New(ctx, params)
		if err == nil {
			break
		}

		if isBillingError(err) {
			return nil, fmt.Errorf("billing/payment error (fatal): %w", err)
		}

		if !isRetryableError(err) {
			return nil, fmt.Errorf("completion request failed: %w", err)
		}

		if p.limiter != nil && isRateLimitError(err) {
			p.limiter.Reduce(LimitResource, "backend rate limit")
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("completion request failed after %d retries: %w", maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	result := &ChatResponse{
		Model: resp.Model,
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		result.Content = choice.Message.Content
		result.StopReason = string(choice.FinishReason)
	}
	result.InputTokens = int(resp.Usage.PromptTokens)
	result.OutputTokens = int(resp.Usage.CompletionTokens)

	return result, nil
}
