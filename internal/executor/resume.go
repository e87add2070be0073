package executor

import (
	"context"
	"fmt"

	"github.com/kparnell/intentd/internal/model"
)

// Resume re-invokes only the named PENDING_CONFIRM tool calls on a receipt
// with confirmation skipped, replaces their entries in place, merges any
// Changes/UndoSteps they produce, and recomputes Status from the resulting
// tool-call list via deriveToolCallStatus (not the post-skill finalStatus
// rule). The caller is responsible for persisting the returned receipt via
// Receipts store.Update.
func (e *Executor) Resume(ctx context.Context, receipt *model.Receipt, approvedIndices []int) (*model.Receipt, error) {
	if e.dispatcher == nil {
		return nil, fmt.Errorf("resume: no tool dispatcher configured")
	}

	approved := make(map[int]bool, len(approvedIndices))
	for _, idx := range approvedIndices {
		approved[idx] = true
	}

	for idx := range receipt.ToolCalls {
		if !approved[idx] {
			continue
		}
		call := receipt.ToolCalls[idx]
		if call.Status != model.ToolCallPendingConfirm {
			continue
		}
		newCall, result := e.dispatcher.Dispatch(ctx, call.ToolName, call.Args, true)
		receipt.ToolCalls[idx] = newCall
		if result != nil {
			receipt.Changes = append(receipt.Changes, result.Changes...)
			receipt.Undo = append(receipt.Undo, result.Undo...)
		}
	}

	receipt.Status = deriveToolCallStatus(receipt.ToolCalls)
	return receipt, nil
}
