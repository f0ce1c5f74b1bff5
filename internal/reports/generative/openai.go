package generative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medflow/report-explainer/pkg/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient talks to an OpenAI-compatible API for both chat
// completions and image generation. BaseURL includes the /v1 prefix.
type OpenAIClient struct {
	client     openai.Client
	textModel  string
	imageModel string
}

// NewOpenAIClient creates a client for the configured endpoint
func NewOpenAIClient(cfg *config.OpenAIConfig, timeout time.Duration) *OpenAIClient {
	return newOpenAIClient(cfg, option.WithRequestTimeout(timeout))
}

// NewOpenAIClientWithHTTP creates a client using the given HTTP client
func NewOpenAIClientWithHTTP(cfg *config.OpenAIConfig, httpClient *http.Client) *OpenAIClient {
	return newOpenAIClient(cfg, option.WithHTTPClient(httpClient))
}

func newOpenAIClient(cfg *config.OpenAIConfig, extra ...option.RequestOption) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
	}
}

// Complete sends a chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.textModel),
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxOutputTokens)),
	})
	if err != nil {
		return "", c.upstreamError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Synthesize generates a single image and returns its URL, or a data URI
// when the endpoint only returns base64 content.
func (c *OpenAIClient) Synthesize(ctx context.Context, prompt, size string) (string, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  openai.ImageModel(c.imageModel),
		Prompt: prompt,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(size),
	})
	if err != nil {
		return "", c.upstreamError(ctx, err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	if u := resp.Data[0].URL; u != "" {
		return u, nil
	}
	if b := resp.Data[0].B64JSON; b != "" {
		return "data:image/png;base64," + b, nil
	}
	return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
}

// upstreamError keeps caller cancellation distinguishable from provider
// failures. API errors carry the status code for logs.
func (c *OpenAIClient) upstreamError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: %w: status %d: %v", ErrUpstream, apiErr.StatusCode, err)
	}
	return fmt.Errorf("openai: %w: %v", ErrUpstream, err)
}
