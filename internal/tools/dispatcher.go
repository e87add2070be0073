package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/kparnell/intentd/internal/model"
)

// Dispatcher implements the tool dispatch contract: look up the named
// tool, gate it behind confirmation when its risk level requires one, run
// it, and always produce exactly one ToolCall record.
type Dispatcher struct {
	registry *Registry
	now      func() time.Time
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, now: time.Now}
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	s := err.Error()
	return &s
}

// Dispatch runs toolName with args, honoring skipConfirmation for tools
// whose risk level would otherwise require manual confirmation. It returns
// the ToolCall record to append to the receipt and, on a successful run,
// the tool's Result (nil in every other branch).
func (d *Dispatcher) Dispatch(ctx context.Context, toolName string, args map[string]any, skipConfirmation bool) (model.ToolCall, *Result) {
	call := model.ToolCall{
		ToolName:  toolName,
		Args:      args,
		Timestamp: d.now().UTC(),
	}

	tool, ok := d.registry.Get(toolName)
	if !ok {
		call.Status = model.ToolCallFailed
		call.Error = errString(fmt.Errorf("unknown tool %q", toolName))
		return call, nil
	}

	if RequiresConfirmation(tool) && !skipConfirmation {
		call.Status = model.ToolCallPendingConfirm
		return call, nil
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		call.Status = model.ToolCallFailed
		call.Error = errString(err)
		return call, nil
	}

	call.Status = model.ToolCallOK
	call.Result = result.Payload
	return call, &result
}
