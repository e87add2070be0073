// Package groq adapts Groq's OpenAI-compatible chat completions endpoint to
// provider.Adapter. There is no first-party Groq SDK, so this is a thin
// net/http client the same shape as internal/provider/ollama, grounded on
// providers/groq.py's httpx-based adapter.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kparnell/intentd/internal/provider"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Options configures the Groq adapter.
type Options struct {
	// APIKey authenticates against the Groq API. Required.
	APIKey string
	// BaseURL overrides the Groq endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the client used for requests, for tests.
	HTTPClient *http.Client
	// Models lists the model identifiers this adapter answers for.
	Models []string
	// MaxTokens is the default completion cap when a request does not
	// specify one.
	MaxTokens int
}

// Client implements provider.Adapter on top of the Groq API.
type Client struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	models    []string
	maxTokens int
}

// New constructs a Groq-backed provider.Adapter.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	models := opts.Models
	if len(models) == 0 {
		models = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	}
	return &Client{apiKey: opts.APIKey, baseURL: baseURL, http: httpClient, models: models, maxTokens: maxTokens}
}

func (c *Client) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	start := time.Now()

	body := chatRequest{
		Model:       req.Model,
		Messages:    toGroqMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   firstPositive(req.MaxTokens, c.maxTokens),
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", 0, provider.ErrorKindInvalidRequest, "", "encode request", false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", 0, provider.ErrorKindInvalidRequest, "", "build request", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", 0, provider.ErrorKindUnavailable, "", err.Error(), true, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", httpResp.StatusCode, provider.ErrorKindUnavailable, "", "read response", true, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return provider.CompleteResponse{}, classifyStatus(httpResp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", httpResp.StatusCode, provider.ErrorKindUnknown, "", "decode response", false, err)
	}
	if len(parsed.Choices) == 0 {
		return provider.CompleteResponse{}, provider.NewError("groq", "chat.completions", httpResp.StatusCode, provider.ErrorKindUnknown, "", "empty choices in response", false, nil)
	}

	choice := parsed.Choices[0]
	return provider.CompleteResponse{
		Content:   choice.Message.Content,
		Model:     parsed.Model,
		Provider:  c.Name(),
		LatencyMS: time.Since(start).Milliseconds(),
		Usage: &provider.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
		FinishReason: choice.FinishReason,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) (provider.HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return provider.HealthStatus{Healthy: false, Detail: err.Error()}, nil
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return provider.HealthStatus{Healthy: false, Detail: err.Error()}, nil
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return provider.HealthStatus{Healthy: true}, nil
	case http.StatusUnauthorized:
		return provider.HealthStatus{Healthy: false, Detail: "invalid API key"}, nil
	default:
		return provider.HealthStatus{Healthy: false, Detail: fmt.Sprintf("status %d", resp.StatusCode)}, nil
	}
}

func (c *Client) Capabilities(model string) provider.Capabilities {
	return provider.Capabilities{
		StrictJSON:    true,
		ToolCalls:     true,
		MaxTokens:     c.maxTokens,
		ContextWindow: 128_000,
	}
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), c.models...), nil
}

func (c *Client) Close() error { return nil }

func toGroqMessages(msgs []provider.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func classifyStatus(status int, body []byte) error {
	msg := string(body)
	switch {
	case status == http.StatusTooManyRequests:
		return provider.NewError("groq", "chat.completions", status, provider.ErrorKindRateLimited, "", msg, true, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.NewError("groq", "chat.completions", status, provider.ErrorKindAuth, "", msg, false, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return provider.NewError("groq", "chat.completions", status, provider.ErrorKindInvalidRequest, "", msg, false, nil)
	case status >= 500:
		return provider.NewError("groq", "chat.completions", status, provider.ErrorKindUnavailable, "", msg, true, nil)
	default:
		return provider.NewError("groq", "chat.completions", status, provider.ErrorKindUnknown, "", msg, false, nil)
	}
}
