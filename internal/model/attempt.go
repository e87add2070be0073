package model

import "time"

// FallbackTrigger names the reason a model attempt failed, driving the
// fallback manager's retry/fallback decision.
type FallbackTrigger string

const (
	TriggerInvalidJSON         FallbackTrigger = "INVALID_JSON"
	TriggerValidationError     FallbackTrigger = "VALIDATION_ERROR"
	TriggerTimeout             FallbackTrigger = "TIMEOUT"
	TriggerRateLimit           FallbackTrigger = "RATE_LIMIT"
	TriggerProviderDown        FallbackTrigger = "PROVIDER_DOWN"
	TriggerCapabilityMismatch  FallbackTrigger = "CAPABILITY_MISMATCH"
)

// ModelAttempt records a single model call made while classifying intent.
// Attempts are append-only within a Receipt and counted per (Provider,
// Model) pair.
type ModelAttempt struct {
	Provider       string           `json:"provider"`
	Model          string           `json:"model"`
	AttemptNumber  int              `json:"attempt_number"`
	Success        bool             `json:"success"`
	FallbackTrigger *FallbackTrigger `json:"fallback_trigger,omitempty"`
	LatencyMS      *int64           `json:"latency_ms,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// ModelKey identifies a distinct (provider, model) pair.
type ModelKey struct {
	Provider string
	Model    string
}
