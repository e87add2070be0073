package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/executor"
	"github.com/kparnell/intentd/internal/fallback"
	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/providerregistry"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/tools"
)

func TestUndoRoundTripRestoresTaskCollection(t *testing.T) {
	dispatcher := taskDispatcher()
	reg := providerregistry.New()
	fb := fallback.New()
	e := executor.New(reg, fb, skillRegistryWithCaptureTasks(), dispatcher)

	original := &model.Receipt{ReceiptID: "r1"}
	for _, entity := range []string{"buy milk", "call dentist"} {
		call, out := dispatcher.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": entity}, true)
		original.ToolCalls = append(original.ToolCalls, call)
		require.NotNil(t, out)
		original.Changes = append(original.Changes, out.Changes...)
		original.Undo = append(original.Undo, out.Undo...)
	}

	before := listAllTasks(t, dispatcher)
	require.Len(t, before, 2)

	synthetic := e.Undo(context.Background(), original)

	after := listAllTasks(t, dispatcher)
	require.Empty(t, after)
	require.Equal(t, model.StatusSuccess, synthetic.Status)
	require.Equal(t, model.IntentUnknown, synthetic.IntentFinal.Type)
	require.Equal(t, "r1", synthetic.IntentFinal.Parameters["source_receipt_id"])
	require.Len(t, synthetic.ToolCalls, 2)
	require.NotEqual(t, original.ReceiptID, synthetic.ReceiptID)
	// The original receipt's own record of what it changed is untouched.
	require.Len(t, original.Changes, 2)
}

func TestUndoReplaysStepsInReverseOrder(t *testing.T) {
	dispatcher := taskDispatcher()
	reg := providerregistry.New()
	fb := fallback.New()
	e := executor.New(reg, fb, skills.NewRegistry(), dispatcher)

	_, firstOut := dispatcher.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "first"}, true)
	_, secondOut := dispatcher.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "second"}, true)

	original := &model.Receipt{ReceiptID: "r2"}
	original.Undo = append(original.Undo, firstOut.Undo...)
	original.Undo = append(original.Undo, secondOut.Undo...)

	synthetic := e.Undo(context.Background(), original)

	require.Len(t, synthetic.ToolCalls, 2)
	require.Equal(t, secondOut.Undo[0].Args["id"], synthetic.ToolCalls[0].Args["id"])
	require.Equal(t, firstOut.Undo[0].Args["id"], synthetic.ToolCalls[1].Args["id"])
}

func TestUndoWithNoDispatcherConfiguredFails(t *testing.T) {
	reg := providerregistry.New()
	fb := fallback.New()
	e := executor.New(reg, fb, nil, nil)

	original := &model.Receipt{
		ReceiptID: "r3",
		Undo: []model.UndoStep{
			{ToolName: "TASK_DELETE", Args: map[string]any{"id": "does-not-matter"}},
		},
	}

	synthetic := e.Undo(context.Background(), original)
	require.Equal(t, model.StatusFailed, synthetic.Status)
	require.NotEmpty(t, synthetic.Errors)
}

func listAllTasks(t *testing.T, d *tools.Dispatcher) []*tools.Task {
	t.Helper()
	_, out := d.Dispatch(context.Background(), "TASK_LIST", map[string]any{}, true)
	if out == nil {
		return nil
	}
	tasks, _ := out.Payload.([]*tools.Task)
	return tasks
}
