// Package ollama adapts a local Ollama server's /api/chat endpoint to
// provider.Adapter. There is no first-party Ollama SDK, and provider wire
// dialects are adapter-internal, so this adapter talks plain JSON over
// net/http (see DESIGN.md).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kparnell/intentd/internal/provider"
)

// Options configures the Ollama adapter.
type Options struct {
	// BaseURL is the Ollama server address, e.g. http://localhost:11434.
	BaseURL string
	// HTTPClient overrides the client used for requests, for tests.
	HTTPClient *http.Client
	// Models lists the model tags this adapter answers for.
	Models []string
}

// Client implements provider.Adapter against a local Ollama server.
type Client struct {
	baseURL string
	http    *http.Client
	models  []string
}

// New constructs an Ollama-backed provider.Adapter.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{baseURL: baseURL, http: httpClient, models: opts.Models}
}

func (c *Client) Name() string { return "ollama" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (c *Client) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	start := time.Now()

	body := chatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.JSONMode {
		body.Format = "json"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("ollama", "chat", 0, provider.ErrorKindInvalidRequest, "", "encode request", false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("ollama", "chat", 0, provider.ErrorKindInvalidRequest, "", "build request", false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("ollama", "chat", 0, provider.ErrorKindUnavailable, "", err.Error(), true, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return provider.CompleteResponse{}, provider.NewError("ollama", "chat", httpResp.StatusCode, provider.ErrorKindUnavailable, "", "read response", true, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return provider.CompleteResponse{}, classifyStatus(httpResp.StatusCode, data)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return provider.CompleteResponse{}, provider.NewError("ollama", "chat", httpResp.StatusCode, provider.ErrorKindUnknown, "", "decode response", false, err)
	}

	return provider.CompleteResponse{
		Content:   parsed.Message.Content,
		Model:     parsed.Model,
		Provider:  c.Name(),
		LatencyMS: time.Since(start).Milliseconds(),
		Usage: &provider.Usage{
			InputTokens:  parsed.PromptEvalCount,
			OutputTokens: parsed.EvalCount,
		},
		FinishReason: parsed.DoneReason,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) (provider.HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return provider.HealthStatus{Healthy: false, Detail: err.Error()}, nil
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return provider.HealthStatus{Healthy: false, Detail: err.Error()}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return provider.HealthStatus{Healthy: false, Detail: fmt.Sprintf("status %d", resp.StatusCode)}, nil
	}
	return provider.HealthStatus{Healthy: true}, nil
}

func (c *Client) Capabilities(model string) provider.Capabilities {
	return provider.Capabilities{
		StrictJSON:    false,
		ToolCalls:     false,
		Streaming:     true,
		MaxTokens:     4096,
		ContextWindow: 8192,
	}
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if len(c.models) > 0 {
		return append([]string(nil), c.models...), nil
	}
	return nil, errors.New("ollama: no models configured")
}

func (c *Client) Close() error { return nil }

func toOllamaMessages(msgs []provider.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func classifyStatus(status int, body []byte) error {
	msg := string(body)
	switch {
	case status == http.StatusTooManyRequests:
		return provider.NewError("ollama", "chat", status, provider.ErrorKindRateLimited, "", msg, true, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.NewError("ollama", "chat", status, provider.ErrorKindAuth, "", msg, false, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return provider.NewError("ollama", "chat", status, provider.ErrorKindInvalidRequest, "", msg, false, nil)
	case status >= 500:
		return provider.NewError("ollama", "chat", status, provider.ErrorKindUnavailable, "", msg, true, nil)
	default:
		return provider.NewError("ollama", "chat", status, provider.ErrorKindUnknown, "", msg, false, nil)
	}
}
