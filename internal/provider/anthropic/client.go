// Package anthropic adapts the Anthropic Messages API to provider.Adapter.
// Grounded on features/model/bedrock/client.go: a narrow
// RuntimeClient sub-interface over the SDK lets tests substitute a fake
// without pulling in network calls.
package anthropic

import (
	"context"
	"errors"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kparnell/intentd/internal/provider"
)

// MessagesClient is the subset of the Anthropic SDK's Messages service the
// adapter needs. It matches *anthropicsdk.MessageService so callers can pass
// either the real client or a fake in tests.
type MessagesClient interface {
	New(ctx context.Context, params anthropicsdk.MessageNewParams) (*anthropicsdk.Message, error)
}

// Client implements provider.Adapter on top of the Anthropic API.
type Client struct {
	messages  MessagesClient
	models    []string
	maxTokens int
}

// Options configures the Anthropic adapter.
type Options struct {
	// APIKey authenticates against the Anthropic API. Required unless
	// Messages is set directly (e.g. in tests).
	APIKey string
	// Messages overrides the underlying SDK client, for tests.
	Messages MessagesClient
	// Models lists the model identifiers this adapter answers for
	// (ListModels / Capabilities lookups).
	Models []string
	// MaxTokens is the default completion cap when a request does not
	// specify one.
	MaxTokens int
}

// New constructs an Anthropic-backed provider.Adapter.
func New(opts Options) *Client {
	messages := opts.Messages
	if messages == nil {
		sdk := anthropicsdk.NewClient(option.WithAPIKey(opts.APIKey))
		messages = &sdkMessages{client: sdk}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	models := opts.Models
	if len(models) == 0 {
		models = []string{"claude-3-5-sonnet-latest", "claude-3-5-haiku-latest"}
	}
	return &Client{messages: messages, models: models, maxTokens: maxTokens}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	start := time.Now()

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(req.Model),
		MaxTokens:   int64(firstPositive(req.MaxTokens, c.maxTokens)),
		Temperature: anthropicsdk.Float(req.Temperature),
		Messages:    toAnthropicMessages(req.Messages),
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return provider.CompleteResponse{}, classifyError(err)
	}

	latency := time.Since(start).Milliseconds()
	content := extractText(resp)
	return provider.CompleteResponse{
		Content:   content,
		Model:     req.Model,
		Provider:  c.Name(),
		LatencyMS: latency,
		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) (provider.HealthStatus, error) {
	if len(c.models) == 0 {
		return provider.HealthStatus{Healthy: false, Detail: "no models configured"}, nil
	}
	_, err := c.Complete(ctx, provider.CompleteRequest{
		Model:     c.models[0],
		Messages:  []provider.Message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return provider.HealthStatus{Healthy: false, Detail: err.Error()}, nil
	}
	return provider.HealthStatus{Healthy: true}, nil
}

func (c *Client) Capabilities(model string) provider.Capabilities {
	return provider.Capabilities{
		StrictJSON:    true,
		ToolCalls:     true,
		Streaming:     true,
		MaxTokens:     c.maxTokens,
		ContextWindow: 200_000,
	}
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), c.models...), nil
}

func (c *Client) Close() error { return nil }

func toAnthropicMessages(msgs []provider.Message) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			out = append(out, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}
	return out
}

func extractText(resp *anthropicsdk.Message) string {
	var out string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			out += text.Text
		}
	}
	return out
}

func classifyError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		kind := provider.ErrorKindUnknown
		retryable := false
		switch apiErr.StatusCode {
		case 401, 403:
			kind = provider.ErrorKindAuth
		case 429:
			kind = provider.ErrorKindRateLimited
			retryable = true
		case 400, 422:
			kind = provider.ErrorKindInvalidRequest
		default:
			if apiErr.StatusCode >= 500 {
				kind = provider.ErrorKindUnavailable
				retryable = true
			}
		}
		return provider.NewError("anthropic", "messages.new", apiErr.StatusCode, kind, "", apiErr.Error(), retryable, err)
	}
	return provider.NewError("anthropic", "messages.new", 0, provider.ErrorKindUnavailable, "", err.Error(), true, err)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// sdkMessages adapts *anthropicsdk.Client to MessagesClient.
type sdkMessages struct {
	client anthropicsdk.Client
}

func (s *sdkMessages) New(ctx context.Context, params anthropicsdk.MessageNewParams) (*anthropicsdk.Message, error) {
	return s.client.Messages.New(ctx, params)
}
