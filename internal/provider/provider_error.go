package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures into the small set the executor
// reacts to: RateLimit and ProviderDown, plus finer-grained kinds adapters
// may report for logging.
type ErrorKind string

const (
	ErrorKindAuth           ErrorKind = "auth"
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
	ErrorKindRateLimited    ErrorKind = "rate_limited"
	ErrorKindUnavailable    ErrorKind = "unavailable"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// Error describes a failure returned by a model provider. It crosses
// package boundaries so the executor can classify it into a
// model.FallbackTrigger without parsing strings.
type Error struct {
	Provider  string
	Operation string
	HTTP      int
	Kind      ErrorKind
	Code      string
	Message   string
	RequestID string
	Retryable bool
	Cause     error
}

// NewError constructs a provider Error. provider and kind are required.
func NewError(provider, operation string, httpStatus int, kind ErrorKind, code, message string, retryable bool, cause error) *Error {
	if provider == "" {
		panic("provider: provider is required")
	}
	if kind == "" {
		panic("provider: error kind is required")
	}
	return &Error{
		Provider:  provider,
		Operation: operation,
		HTTP:      httpStatus,
		Kind:      kind,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

func (e *Error) Error() string {
	op := e.Operation
	if op == "" {
		op = "request"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if msg == "" {
		msg = "provider error"
	}
	return fmt.Sprintf("%s %s (%s): %s", e.Provider, e.Kind, op, msg)
}

// Unwrap preserves the original error chain.
func (e *Error) Unwrap() error { return e.Cause }

// AsProviderError returns the first *Error in err's chain, if any.
func AsProviderError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRateLimited reports whether err is a provider Error with Kind
// RateLimited.
func IsRateLimited(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Kind == ErrorKindRateLimited
}

// IsProviderDown reports whether err should be treated as PROVIDER_DOWN:
// connection refusal, auth failure, non-2xx/non-429 status, or any
// unclassified error from the adapter.
func IsProviderDown(err error) bool {
	if err == nil {
		return false
	}
	pe, ok := AsProviderError(err)
	if !ok {
		return true
	}
	switch pe.Kind {
	case ErrorKindAuth, ErrorKindInvalidRequest, ErrorKindUnavailable, ErrorKindUnknown:
		return true
	default:
		return false
	}
}
