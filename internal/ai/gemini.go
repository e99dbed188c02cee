package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client. The API key is required.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Op: "gemini", Kind: KindConfig, Err: fmt.Errorf("API key not configured")}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Op: "gemini", Kind: KindConfig, Err: fmt.Errorf("create client: %w", err)}
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Complete sends the user text with system as the system instruction.
func (c *GeminiClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		return "", &Error{Op: "gemini", Kind: KindUpstream, Err: err}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Op: "gemini", Kind: KindEmpty, Err: ErrNoCompletion}
	}
	return text, nil
}
