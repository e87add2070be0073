// Package provider defines the capability-typed façade over a remote or
// local model endpoint. Concrete adapters (anthropic, openai,
// bedrock, ollama) are the only code that knows a provider's wire protocol;
// the rest of the engine sees Capabilities and the ProviderError taxonomy.
package provider

import "context"

// Message is a single turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompleteRequest is the provider-agnostic completion request shape.
type CompleteRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompleteResponse is the provider-agnostic completion response shape.
type CompleteResponse struct {
	Content      string
	Model        string
	Provider     string
	LatencyMS    int64
	Usage        *Usage
	FinishReason string
}

// Capabilities describes what a given model on a given provider supports.
type Capabilities struct {
	StrictJSON     bool
	ToolCalls      bool
	Streaming      bool
	MaxTokens      int
	ContextWindow  int
}

// HealthStatus is the result of a single health probe.
type HealthStatus struct {
	Healthy bool
	Detail  string
}

// Adapter is the capability-typed façade every provider implements. The
// engine never talks to a provider's wire protocol directly.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error)
	HealthCheck(ctx context.Context) (HealthStatus, error)
	Capabilities(model string) Capabilities
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}
