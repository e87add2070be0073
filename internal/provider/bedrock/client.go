// Package bedrock adapts the AWS Bedrock Converse API to provider.Adapter.
// Grounded directly on features/model/bedrock/client.go: the
// same RuntimeClient sub-interface, the same smithy-error rate-limit
// classification, and a simplified single-turn Converse call (this engine
// has no transcript ledger or tool_use/thinking support to carry over).
package bedrock

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/kparnell/intentd/internal/provider"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client the
// adapter needs. It matches *bedrockruntime.Client so callers can pass
// either the real client or a fake in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	// Runtime provides access to the Bedrock runtime. Required.
	Runtime RuntimeClient
	// Models lists the Bedrock model identifiers this adapter answers for.
	Models []string
	// MaxTokens is the default completion cap when a request does not
	// specify one.
	MaxTokens int
	// Temperature is used when a request does not specify one.
	Temperature float32
}

// Client implements provider.Adapter on top of AWS Bedrock Converse.
type Client struct {
	runtime   RuntimeClient
	models    []string
	maxTokens int
	temp      float32
}

// New constructs a Bedrock-backed provider.Adapter.
func New(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if len(opts.Models) == 0 {
		return nil, errors.New("bedrock: at least one model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		runtime:   opts.Runtime,
		models:    opts.Models,
		maxTokens: maxTokens,
		temp:      opts.Temperature,
	}, nil
}

func (c *Client) Name() string { return "bedrock" }

func (c *Client) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	start := time.Now()

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.Model),
		Messages: toBedrockMessages(req.Messages),
	}
	if cfg := c.inferenceConfig(req.MaxTokens, float32(req.Temperature)); cfg != nil {
		input.InferenceConfig = cfg
	}

	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return provider.CompleteResponse{}, classifyError(err)
	}

	latency := time.Since(start).Milliseconds()
	content, stopReason := extractText(output)
	resp := provider.CompleteResponse{
		Content:      content,
		Model:        req.Model,
		Provider:     c.Name(),
		LatencyMS:    latency,
		FinishReason: stopReason,
	}
	if usage := output.Usage; usage != nil {
		resp.Usage = &provider.Usage{
			InputTokens:  int(ptrValue(usage.InputTokens)),
			OutputTokens: int(ptrValue(usage.OutputTokens)),
		}
	}
	return resp, nil
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
		StrictJSON:    false,
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

func toBedrockMessages(msgs []provider.Message) []brtypes.Message {
	out := make([]brtypes.Message, 0, len(msgs))
	for _, m := range msgs {
		role := brtypes.ConversationRoleUser
		if m.Role == "assistant" {
			role = brtypes.ConversationRoleAssistant
		}
		out = append(out, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return out
}

func extractText(output *bedrockruntime.ConverseOutput) (string, string) {
	if output == nil {
		return "", ""
	}
	var text string
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
				text += t.Value
			}
		}
	}
	return text, string(output.StopReason)
}

func (c *Client) inferenceConfig(maxTokens int, temp float32) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	tokens := maxTokens
	if tokens <= 0 {
		tokens = c.maxTokens
	}
	if tokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(tokens))
	}
	t := temp
	if t <= 0 {
		t = c.temp
	}
	if t > 0 {
		cfg.Temperature = aws.Float32(t)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}
	return &cfg
}

// classifyError maps Bedrock failures onto provider error kinds: throttling
// API error codes and raw HTTP 429 responses become ErrorKindRateLimited,
// access-denied codes ErrorKindAuth, ValidationException
// ErrorKindInvalidRequest, and anything else ErrorKindUnavailable.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return provider.NewError("bedrock", "converse", 429, provider.ErrorKindRateLimited, apiErr.ErrorCode(), apiErr.ErrorMessage(), true, err)
		case "AccessDeniedException", "UnrecognizedClientException":
			return provider.NewError("bedrock", "converse", 403, provider.ErrorKindAuth, apiErr.ErrorCode(), apiErr.ErrorMessage(), false, err)
		case "ValidationException":
			return provider.NewError("bedrock", "converse", 400, provider.ErrorKindInvalidRequest, apiErr.ErrorCode(), apiErr.ErrorMessage(), false, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status == 429 {
			return provider.NewError("bedrock", "converse", status, provider.ErrorKindRateLimited, "", err.Error(), true, err)
		}
		if status >= 500 {
			return provider.NewError("bedrock", "converse", status, provider.ErrorKindUnavailable, "", err.Error(), true, err)
		}
	}
	return provider.NewError("bedrock", "converse", 0, provider.ErrorKindUnavailable, "", err.Error(), true, err)
}

func ptrValue[T ~int32 | ~int64](ptr *T) T {
	if ptr == nil {
		return 0
	}
	return *ptr
}
