// Package tools defines the Tool contract and the dispatcher that gates
// tool invocation on confirmation, mirroring the closed (name, risk_level,
// description, execute) envelope the toolregistry gateway wraps around
// remote providers (runtime/toolregistry/messages.go's ToolCallMeta/
// ToolResultMessage), collapsed here to direct in-process calls.
package tools

import (
	"context"

	"github.com/kparnell/intentd/internal/model"
)

// Result is what a Tool returns on success: the payload to attach to the
// ToolCall plus any state mutations and their paired undo step.
type Result struct {
	Payload any
	Changes []model.Change
	Undo    []model.UndoStep
}

// Tool is a single deterministic, named operation a skill can invoke.
// RequiresConfirmation is derived from RiskLevel, never set independently:
// true iff RiskLevel is MEDIUM or HIGH.
type Tool interface {
	Name() string
	RiskLevel() model.RiskLevel
	Description() string
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// RequiresConfirmation reports whether a tool's risk level gates it behind
// manual confirmation before it runs.
func RequiresConfirmation(t Tool) bool {
	switch t.RiskLevel() {
	case model.RiskMedium, model.RiskHigh:
		return true
	default:
		return false
	}
}
