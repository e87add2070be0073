package skills_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/tools"
)

func newTaskDispatcher(t *testing.T) (*tools.Dispatcher, *tools.TaskStore) {
	t.Helper()
	store := tools.NewTaskStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewTaskCreate(store))
	reg.Register(tools.NewTaskList(store))
	reg.Register(tools.NewTaskDelete(store))
	return tools.NewDispatcher(reg), store
}

func TestCaptureTasksCreatesOneTaskPerEntity(t *testing.T) {
	d, _ := newTaskDispatcher(t)
	skill := skills.NewCaptureTasks()

	intent := model.Intent{
		Type:        model.IntentCaptureTasks,
		RawEntities: []string{"buy milk urgent", "call the dentist by friday"},
	}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, false)
	require.NoError(t, err)
	require.Len(t, res.Changes, 2)
	require.Len(t, res.Undo, 2)
	for _, c := range res.Changes {
		require.Equal(t, model.ActionCreated, c.Action)
	}
}

func TestCaptureTasksDetectsUrgentPriority(t *testing.T) {
	d, _ := newTaskDispatcher(t)
	skill := skills.NewCaptureTasks()

	intent := model.Intent{
		Type:        model.IntentCaptureTasks,
		RawEntities: []string{"file taxes urgent"},
	}
	_, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, false)
	require.NoError(t, err)

	tasks := listAllTasks(d)
	require.Len(t, tasks, 1)
	require.Equal(t, "high", tasks[0].Priority)
}

func TestCaptureTasksSkipsEmptyEntries(t *testing.T) {
	d, _ := newTaskDispatcher(t)
	skill := skills.NewCaptureTasks()

	intent := model.Intent{Type: model.IntentCaptureTasks, RawEntities: []string{"   "}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, false)
	require.NoError(t, err)
	require.Empty(t, res.Changes)
}

func listAllTasks(d *tools.Dispatcher) []*tools.Task {
	_, out := d.Dispatch(context.Background(), "TASK_LIST", map[string]any{}, true)
	if out == nil {
		return nil
	}
	tasks, _ := out.Payload.([]*tools.Task)
	return tasks
}
