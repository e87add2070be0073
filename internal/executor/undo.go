package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/model"
)

// Undo replays a receipt's UndoStep sequence in reverse order through the
// tool dispatcher, recording each step's outcome.
// It never mutates the original receipt's Changes — it returns a new,
// synthetic receipt referencing the original via
// parameters["source_receipt_id"]; persisting it is left to the caller.
func (e *Executor) Undo(ctx context.Context, original *model.Receipt) *model.Receipt {
	synthetic := &model.Receipt{
		ReceiptID:    uuid.New().String(),
		TimestampUTC: e.now().UTC(),
		ProfileID:    original.ProfileID,
		Status:       model.StatusFailed,
		UserInput:    fmt.Sprintf("undo %s", original.ReceiptID),
		IntentFinal: &model.Intent{
			Type: model.IntentUnknown,
			Parameters: map[string]any{
				"source_receipt_id": original.ReceiptID,
			},
		},
	}

	if e.dispatcher == nil {
		synthetic.Errors = append(synthetic.Errors, "no tool dispatcher configured; cannot execute undo steps")
		return synthetic
	}

	// Reverse order: the last Change made must be the first one undone.
	for i := len(original.Undo) - 1; i >= 0; i-- {
		step := original.Undo[i]
		call, _ := e.dispatcher.Dispatch(ctx, step.ToolName, step.Args, true)
		synthetic.ToolCalls = append(synthetic.ToolCalls, call)
		if call.Status == model.ToolCallFailed {
			synthetic.Errors = append(synthetic.Errors, fmt.Sprintf("undo step %q failed: %s", step.ToolName, derefErr(call.Error)))
		}
	}

	synthetic.Status = deriveToolCallStatus(synthetic.ToolCalls)
	return synthetic
}

func derefErr(e *string) string {
	if e == nil {
		return ""
	}
	return *e
}
