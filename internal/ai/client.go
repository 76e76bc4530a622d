package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to any OpenAI-compatible /chat/completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retryPolicy
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the content of the first choice, or "".
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// NewOpenAIClient returns a client with a 60s timeout and three attempts.
func NewOpenAIClient(apiKey string) *Client {
	return NewClient(apiKey, 60*time.Second, 3, 500*time.Millisecond, 4*time.Second)
}

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
// Non-positive values fall back to the NewOpenAIClient settings.
func NewClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		retry:      retryPolicy{attempts: retryMax, base: baseDelay, max: maxDelay},
	}
}

// NewClientWithBaseURL points the client at another compatible endpoint
// (Azure, a proxy, a local gateway or a test server).
func NewClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *Client {
	c := NewClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out *GenerateResponse
	err = c.retry.run(ctx, func() (bool, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return false, fmt.Errorf("build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return transient(err), &CallError{Reason: ReasonUnreachable, Host: c.baseURL, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			ce := classify(decodeCallError(resp))
			return ce.Retryable(), ce
		}
		var r GenerateResponse
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
		r.RequestID = requestID(resp)
		out = &r
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeCallError reads an error body of either {"error": {...}} or
// {"error": "text"} shape.
func decodeCallError(resp *http.Response) *CallError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	ce := &CallError{
		Reason:     ReasonAPI,
		Status:     resp.StatusCode,
		Raw:        raw,
		RequestID:  requestID(resp),
		RetryAfter: retryAfter(resp.Header),
	}
	src := raw
	switch v := raw["error"].(type) {
	case map[string]any:
		src = v
	case string:
		ce.Message = v
	}
	if msg, ok := src["message"].(string); ok && ce.Message == "" {
		ce.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		ce.Code = code
	}
	return ce
}

// classify assigns a Reason from the status code, the provider's error
// code and, as a last resort, the message text.
func classify(ce *CallError) *CallError {
	msg := strings.ToLower(ce.Message)
	switch sc := ce.Status; {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		ce.Reason = ReasonAuth
	case sc == http.StatusTooManyRequests && (ce.Code == "insufficient_quota" || strings.Contains(msg, "quota")):
		ce.Reason = ReasonQuota
	case sc == http.StatusTooManyRequests:
		ce.Reason = ReasonRateLimited
	case sc == http.StatusNotFound && (ce.Code == "model_not_found" || strings.Contains(msg, "model")):
		ce.Reason = ReasonModelNotFound
	case sc == http.StatusBadRequest:
		ce.Reason = ReasonBadRequest
	case ce.Code == "quota_exceeded" || strings.Contains(msg, "billing"):
		ce.Reason = ReasonQuota
	case sc >= 500:
		ce.Reason = ReasonServer
	}
	return ce
}

// requestID pulls a best-effort request ID from common headers.
func requestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
