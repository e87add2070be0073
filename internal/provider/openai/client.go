// Package openai adapts the OpenAI Chat Completions API to provider.Adapter.
// Grounded on the same narrow-interface pattern as internal/provider/anthropic,
// itself grounded on features/model/bedrock/client.go.
package openai

import (
	"context"
	"errors"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kparnell/intentd/internal/provider"
)

// ChatClient is the subset of the OpenAI SDK's Chat Completions service the
// adapter needs.
type ChatClient interface {
	New(ctx context.Context, params openaisdk.ChatCompletionNewParams) (*openaisdk.ChatCompletion, error)
}

// Client implements provider.Adapter on top of the OpenAI API.
type Client struct {
	chat      ChatClient
	models    []string
	maxTokens int
}

// Options configures the OpenAI adapter.
type Options struct {
	APIKey    string
	BaseURL   string
	Chat      ChatClient
	Models    []string
	MaxTokens int
}

// New constructs an OpenAI-backed provider.Adapter.
func New(opts Options) *Client {
	chat := opts.Chat
	if chat == nil {
		clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
		if opts.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
		}
		sdk := openaisdk.NewClient(clientOpts...)
		chat = &sdkChat{client: sdk}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	models := opts.Models
	if len(models) == 0 {
		models = []string{"gpt-4o", "gpt-4o-mini"}
	}
	return &Client{chat: chat, models: models, maxTokens: maxTokens}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	start := time.Now()

	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(req.Model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openaisdk.Float(req.Temperature),
	}
	if mt := firstPositive(req.MaxTokens, c.maxTokens); mt > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(mt))
	}
	if req.JSONMode {
		params.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openaisdk.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return provider.CompleteResponse{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return provider.CompleteResponse{}, provider.NewError("openai", "chat.completions.new", 0, provider.ErrorKindUnknown, "", "empty choices in response", false, nil)
	}

	latency := time.Since(start).Milliseconds()
	choice := resp.Choices[0]
	return provider.CompleteResponse{
		Content:   choice.Message.Content,
		Model:     req.Model,
		Provider:  c.Name(),
		LatencyMS: latency,
		Usage: &provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		FinishReason: string(choice.FinishReason),
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
		ContextWindow: 128_000,
	}
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return append([]string(nil), c.models...), nil
}

func (c *Client) Close() error { return nil }

func toOpenAIMessages(msgs []provider.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openaisdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openaisdk.AssistantMessage(m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func classifyError(err error) error {
	var apiErr *openaisdk.Error
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
		return provider.NewError("openai", "chat.completions.new", apiErr.StatusCode, kind, "", apiErr.Error(), retryable, err)
	}
	return provider.NewError("openai", "chat.completions.new", 0, provider.ErrorKindUnavailable, "", err.Error(), true, err)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// sdkChat adapts *openaisdk.Client to ChatClient.
type sdkChat struct {
	client openaisdk.Client
}

func (s *sdkChat) New(ctx context.Context, params openaisdk.ChatCompletionNewParams) (*openaisdk.ChatCompletion, error) {
	return s.client.Chat.Completions.New(ctx, params)
}
