// Package generative talks to the text completion and image synthesis
// providers. Clients are immutable after construction and safe for
// concurrent use.
package generative

import (
	"context"
	"errors"
	"fmt"

	"github.com/medflow/report-explainer/pkg/config"
)

// Provider errors. Callers never show these to end users.
var (
	ErrEmptyResponse = errors.New("provider returned an empty response")
	ErrUpstream      = errors.New("provider request failed")
)

// TextClient produces a completion for a system/user prompt pair
type TextClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error)
}

// ImageClient synthesizes one image and returns a URL or data URI
type ImageClient interface {
	Synthesize(ctx context.Context, prompt, size string) (string, error)
}

// NewTextClient builds the text client selected by ai.text_provider
func NewTextClient(ctx context.Context, cfg *config.AIConfig) (TextClient, error) {
	switch cfg.TextProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(&cfg.OpenAI, cfg.RequestTimeout), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(&cfg.Anthropic, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q", cfg.TextProvider)
	}
}

// NewImageClient builds the image client selected by ai.image_provider.
// It returns nil when image synthesis is disabled.
func NewImageClient(ctx context.Context, cfg *config.AIConfig) (ImageClient, error) {
	switch cfg.ImageProvider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(&cfg.OpenAI, cfg.RequestTimeout), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, &cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.ImageProvider)
	}
}

