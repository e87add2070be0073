package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/executor"
	"github.com/kparnell/intentd/internal/fallback"
	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/providerregistry"
	"github.com/kparnell/intentd/internal/tools"
)

func calendarDispatcher() *tools.Dispatcher {
	store := tools.NewCalendarStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewCalendarGetDay(store))
	reg.Register(tools.NewCalendarCreateBlocks(store))
	reg.Register(tools.NewCalendarDeleteBlock(store))
	return tools.NewDispatcher(reg)
}

func TestResumeReinvokesOnlyApprovedPendingCalls(t *testing.T) {
	dispatcher := calendarDispatcher()
	e := executor.New(providerregistry.New(), fallback.New(), nil, dispatcher)

	pendingCall, out := dispatcher.Dispatch(context.Background(), "CALENDAR_CREATE_BLOCKS", map[string]any{
		"date":   "2026-07-30",
		"blocks": []any{map[string]any{"title": "deep work", "start_hour": 9, "end_hour": 10}},
	}, false)
	require.Equal(t, model.ToolCallPendingConfirm, pendingCall.Status)
	require.Nil(t, out)

	receipt := &model.Receipt{
		ReceiptID: "r1",
		Status:    model.StatusPendingConfirm,
		ToolCalls: []model.ToolCall{pendingCall},
	}

	updated, err := e.Resume(context.Background(), receipt, []int{0})
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, updated.Status)
	require.Equal(t, model.ToolCallOK, updated.ToolCalls[0].Status)
	require.Len(t, updated.Changes, 1)
	require.Len(t, updated.Undo, 1)

	_, dayOut := dispatcher.Dispatch(context.Background(), "CALENDAR_GET_DAY", map[string]any{"date": "2026-07-30"}, true)
	require.NotNil(t, dayOut)
	blocks, _ := dayOut.Payload.([]*tools.CalendarBlock)
	require.Len(t, blocks, 1)
}

func TestResumeLeavesUnapprovedCallsPending(t *testing.T) {
	dispatcher := calendarDispatcher()
	e := executor.New(providerregistry.New(), fallback.New(), nil, dispatcher)

	firstPending, _ := dispatcher.Dispatch(context.Background(), "CALENDAR_CREATE_BLOCKS", map[string]any{
		"date":   "2026-07-30",
		"blocks": []any{map[string]any{"title": "deep work", "start_hour": 9, "end_hour": 10}},
	}, false)
	secondPending, _ := dispatcher.Dispatch(context.Background(), "CALENDAR_CREATE_BLOCKS", map[string]any{
		"date":   "2026-07-30",
		"blocks": []any{map[string]any{"title": "review", "start_hour": 11, "end_hour": 12}},
	}, false)

	receipt := &model.Receipt{
		ReceiptID: "r2",
		Status:    model.StatusPendingConfirm,
		ToolCalls: []model.ToolCall{firstPending, secondPending},
	}

	updated, err := e.Resume(context.Background(), receipt, []int{0})
	require.NoError(t, err)
	require.Equal(t, model.ToolCallOK, updated.ToolCalls[0].Status)
	require.Equal(t, model.ToolCallPendingConfirm, updated.ToolCalls[1].Status)
	require.Equal(t, model.StatusPendingConfirm, updated.Status)
}

func TestResumeIgnoresIndexNotPendingConfirm(t *testing.T) {
	dispatcher := calendarDispatcher()
	e := executor.New(providerregistry.New(), fallback.New(), nil, dispatcher)

	alreadyOK := model.ToolCall{ToolName: "CALENDAR_GET_DAY", Status: model.ToolCallOK}
	receipt := &model.Receipt{
		ReceiptID: "r3",
		Status:    model.StatusSuccess,
		ToolCalls: []model.ToolCall{alreadyOK},
	}

	updated, err := e.Resume(context.Background(), receipt, []int{0})
	require.NoError(t, err)
	require.Equal(t, model.ToolCallOK, updated.ToolCalls[0].Status)
	require.Equal(t, model.StatusSuccess, updated.Status)
}

func TestResumeWithNoDispatcherReturnsError(t *testing.T) {
	e := executor.New(providerregistry.New(), fallback.New(), nil, nil)
	receipt := &model.Receipt{ReceiptID: "r4"}

	_, err := e.Resume(context.Background(), receipt, []int{0})
	require.Error(t, err)
}
