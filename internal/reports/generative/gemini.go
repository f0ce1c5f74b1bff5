package generative

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/medflow/report-explainer/pkg/config"
	"google.golang.org/genai"
)

// GeminiClient uses the Gemini API for text and Imagen for images
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, cfg *config.GeminiConfig) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
	}, nil
}

// Complete generates text with the configured Gemini model
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel, contents, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("gemini: %w: %v", ErrUpstream, err)
	}

	var sb strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" && !part.Thought {
					sb.WriteString(part.Text)
				}
			}
			if sb.Len() > 0 {
				break
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

// Synthesize generates one image with Imagen and returns it as a data URI
func (c *GeminiClient) Synthesize(ctx context.Context, prompt, size string) (string, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio(size),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("gemini: %w: %v", ErrUpstream, err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return dataURI(img.MIMEType, img.ImageBytes), nil
}

// aspectRatio maps a WIDTHxHEIGHT size onto the ratios Imagen accepts
func aspectRatio(size string) string {
	w, h, ok := parseSize(size)
	if !ok || w == h {
		return "1:1"
	}
	r := float64(w) / float64(h)
	switch {
	case r >= 1.6:
		return "16:9"
	case r > 1:
		return "4:3"
	case r <= 0.6:
		return "9:16"
	default:
		return "3:4"
	}
}

func parseSize(size string) (int, int, bool) {
	ws, hs, found := strings.Cut(strings.ToLower(size), "x")
	if !found {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func dataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
