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

func newPlanDayDispatcher(t *testing.T) (*tools.Dispatcher, *tools.CalendarStore, *tools.TaskStore) {
	t.Helper()
	calStore := tools.NewCalendarStore()
	taskStore := tools.NewTaskStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewCalendarGetDay(calStore))
	reg.Register(tools.NewCalendarCreateBlocks(calStore))
	reg.Register(tools.NewTaskList(taskStore))
	reg.Register(tools.NewTaskCreate(taskStore))
	return tools.NewDispatcher(reg), calStore, taskStore
}

func TestPlanDayAllocatesHighPriorityFirst(t *testing.T) {
	d, _, _ := newPlanDayDispatcher(t)
	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "low task", "priority": "low"}, true)
	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "high task", "priority": "high"}, true)

	skill := skills.NewPlanDay()
	intent := model.Intent{Type: model.IntentPlanDay, Parameters: map[string]any{"date": "2026-07-30"}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	// CALENDAR_CREATE_BLOCKS stays PENDING_CONFIRM, so the allocation order
	// is read from the proposed blocks in that call's args.
	createCall := res.ToolCalls[len(res.ToolCalls)-1]
	require.Equal(t, "CALENDAR_CREATE_BLOCKS", createCall.ToolName)
	proposed, _ := createCall.Args["blocks"].([]any)
	require.Len(t, proposed, 2)
	assert.Equal(t, "high task", proposed[0].(map[string]any)["title"])
	assert.Equal(t, "low task", proposed[1].(map[string]any)["title"])
}

func TestPlanDayAlwaysRequiresConfirmationRegardlessOfCallerFlag(t *testing.T) {
	d, _, _ := newPlanDayDispatcher(t)
	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "a task"}, true)

	skill := skills.NewPlanDay()
	intent := model.Intent{Type: model.IntentPlanDay, Parameters: map[string]any{"date": "2026-07-30"}}
	_, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	// The calendar block was not created synchronously because
	// CALENDAR_CREATE_BLOCKS is MEDIUM risk and plan_day never skips
	// confirmation for it; the day's schedule is still empty.
	call, out := d.Dispatch(context.Background(), "CALENDAR_GET_DAY", map[string]any{"date": "2026-07-30"}, true)
	require.Equal(t, model.ToolCallOK, call.Status)
	blocks, _ := out.Payload.([]*tools.CalendarBlock)
	assert.Empty(t, blocks)
}

func TestPlanDaySkipsSlotsAlreadyTaken(t *testing.T) {
	d, _, _ := newPlanDayDispatcher(t)
	var blocks []any
	for h := 9; h < 17; h++ {
		blocks = append(blocks, map[string]any{"title": "busy", "start_hour": h, "end_hour": h + 1})
	}
	call, _ := d.Dispatch(context.Background(), "CALENDAR_CREATE_BLOCKS", map[string]any{
		"date":   "2026-07-30",
		"blocks": blocks,
	}, true)
	require.Equal(t, model.ToolCallOK, call.Status)

	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "overflow task"}, true)

	skill := skills.NewPlanDay()
	intent := model.Intent{Type: model.IntentPlanDay, Parameters: map[string]any{"date": "2026-07-30"}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}
