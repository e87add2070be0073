package skills_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/tools"
)

func newWorkflowDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	store := tools.NewWorkflowStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewWorkflowSave(store))
	reg.Register(tools.NewWorkflowEnable(store))
	reg.Register(tools.NewWorkflowDisable(store))
	reg.Register(tools.NewWorkflowDelete(store))
	return tools.NewDispatcher(reg)
}

func TestBuildWorkflowRequiresConfirmationByDefault(t *testing.T) {
	d := newWorkflowDispatcher(t)
	skill := skills.NewBuildWorkflow()

	intent := model.Intent{Type: model.IntentBuildWorkflow, Parameters: map[string]any{"name": "weekly digest"}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, false)
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, model.ToolCallPendingConfirm, res.ToolCalls[0].Status)
	assert.Empty(t, res.Changes)
}

func TestBuildWorkflowSavesDisabledWhenConfirmed(t *testing.T) {
	d := newWorkflowDispatcher(t)
	skill := skills.NewBuildWorkflow()

	intent := model.Intent{Type: model.IntentBuildWorkflow, Parameters: map[string]any{"name": "weekly digest"}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)

	wf, ok := res.Changes[0].After.(*tools.Workflow)
	require.True(t, ok)
	assert.False(t, wf.Enabled)
	require.Len(t, res.Undo, 1)
	assert.Equal(t, "WORKFLOW_DELETE", res.Undo[0].ToolName)
}
