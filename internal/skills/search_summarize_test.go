package skills_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/tools"
)

func newSearchDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	noteStore := tools.NewNoteStore()
	taskStore := tools.NewTaskStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewNoteCreate(noteStore))
	reg.Register(tools.NewNoteSearch(noteStore))
	reg.Register(tools.NewTaskCreate(taskStore))
	reg.Register(tools.NewTaskList(taskStore))
	d := tools.NewDispatcher(reg)

	d.Dispatch(context.Background(), "NOTE_CREATE", map[string]any{"title": "Budget review", "content": "q3 numbers"}, true)
	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "Budget approval"}, true)
	d.Dispatch(context.Background(), "TASK_CREATE", map[string]any{"title": "unrelated errand"}, true)
	return d
}

func TestSearchSummarizeRanksAcrossSources(t *testing.T) {
	d := newSearchDispatcher(t)
	skill := skills.NewSearchSummarize()

	intent := model.Intent{Type: model.IntentSearchSummarize, Parameters: map[string]any{"query": "budget"}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	hits, ok := res.Results.([]skills.SearchResult)
	require.True(t, ok)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		require.Contains(t, []string{"note", "task"}, h.Source)
	}
}

func TestSearchSummarizeRespectsSourcesFilter(t *testing.T) {
	d := newSearchDispatcher(t)
	skill := skills.NewSearchSummarize()

	intent := model.Intent{
		Type:       model.IntentSearchSummarize,
		Parameters: map[string]any{"query": "budget", "sources": []any{"tasks"}},
	}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	hits, ok := res.Results.([]skills.SearchResult)
	require.True(t, ok)
	for _, h := range hits {
		require.Equal(t, "task", h.Source)
	}
}
