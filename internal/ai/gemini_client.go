package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient runs prompts through Google's Gemini API.
type GeminiClient struct {
	apiKey  string
	timeout time.Duration

	client *genai.Client
}

// NewGeminiClient defers building the SDK client until the first request so
// that a missing key surfaces as a request error rather than at startup.
func NewGeminiClient(apiKey string, httpTimeout time.Duration) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, timeout: httpTimeout}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	cfg := &genai.ClientConfig{APIKey: c.apiKey, Backend: genai.BackendGeminiAPI}
	if c.timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: c.timeout}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

// Generate flattens the chat into one user prompt; system messages lead.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Content)
	}
	var gcfg *genai.GenerateContentConfig
	if req.Temperature > 0 || req.MaxTokens > 0 {
		gcfg = &genai.GenerateContentConfig{}
		if req.Temperature > 0 {
			t := float32(req.Temperature)
			gcfg.Temperature = &t
		}
		if req.MaxTokens > 0 {
			gcfg.MaxOutputTokens = int32(req.MaxTokens)
		}
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(strings.Join(parts, "\n\n")), gcfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	out := &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: resp.Text()}}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	out.RequestID = resp.ResponseID
	return out, nil
}
