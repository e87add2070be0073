package skills_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/tools"
)

func newMeetingDispatcher(t *testing.T) *tools.Dispatcher {
	t.Helper()
	noteStore := tools.NewNoteStore()
	taskStore := tools.NewTaskStore()
	reg := tools.NewRegistry()
	reg.Register(tools.NewNoteCreate(noteStore))
	reg.Register(tools.NewTaskCreate(taskStore))
	return tools.NewDispatcher(reg)
}

func TestProcessMeetingNotesCreatesNoteAndActionItems(t *testing.T) {
	d := newMeetingDispatcher(t)
	skill := skills.NewProcessMeetingNotes()

	content := "Discussed Q3 roadmap.\naction: schedule follow-up with design\ntodo: send recap email\n- [ ] review budget doc\n- schedule kickoff\n- just a regular note line\n"
	intent := model.Intent{Type: model.IntentProcessMeetingNotes, Parameters: map[string]any{"content": content}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	// 1 note created + up to 4 action items (the plain bullet is excluded).
	require.Len(t, res.Changes, 5)
	require.Equal(t, "note", res.Changes[0].EntityType)
	for _, c := range res.Changes[1:] {
		require.Equal(t, "task", c.EntityType)
	}
}

func TestProcessMeetingNotesCapsAtTenActionItems(t *testing.T) {
	d := newMeetingDispatcher(t)
	skill := skills.NewProcessMeetingNotes()

	content := ""
	for i := 0; i < 15; i++ {
		content += "action: follow up item\n"
	}
	intent := model.Intent{Type: model.IntentProcessMeetingNotes, Parameters: map[string]any{"content": content}}
	res, err := skill.Execute(context.Background(), skills.Context{Intent: intent, Dispatcher: d}, true)
	require.NoError(t, err)

	// 1 note + at most 10 tasks.
	require.LessOrEqual(t, len(res.Changes), 11)
}
