// Package skills implements the intent-keyed deterministic programs that
// compose tool calls: capture_tasks, search_summarize, plan_day,
// process_meeting_notes, and build_workflow.
package skills

import (
	"context"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/tools"
)

// Context carries everything a skill needs to dispatch tool calls for a
// single validated intent. Skills never call tools directly; they go
// through the dispatcher so every call is recorded uniformly.
type Context struct {
	Intent     model.Intent
	Dispatcher *tools.Dispatcher
}

// Result is what a skill hands back to the executor: the tool calls it made
// (in order), the changes and undo steps those calls produced, and a short
// human-readable summary for the receipt.
type Result struct {
	ToolCalls []model.ToolCall
	Changes   []model.Change
	Undo      []model.UndoStep
	Summary   string
	// Results carries a skill-specific payload (e.g. search hits, a
	// day's allocated blocks) for callers that want more than the
	// summary string. Nil for skills with nothing structured to report.
	Results any
}

// Skill is a deterministic program that turns one validated Intent into a
// sequence of tool calls. A skill never talks to a model provider directly
// and never does its own fallback handling; it runs once the executor has
// committed to a final intent.
type Skill interface {
	// IntentType is the single intent this skill handles.
	IntentType() model.IntentType
	// RiskLevel matches model.RiskForIntent(IntentType()); skills do not
	// decide their own risk, they report the fixed mapping for assertions.
	RiskLevel() model.RiskLevel
	// Execute runs the skill's tool-call program. skipConfirmation is the
	// caller's confirmation flag; each skill decides which dispatch calls
	// receive it (build_workflow forwards it, plan_day never skips
	// confirmation for CALENDAR_CREATE_BLOCKS, and the other skills dispatch
	// their LOW-risk calls with confirmation skipped).
	Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error)
}

// record appends a dispatcher call's outcome to an in-progress Result.
func record(res *Result, call model.ToolCall, out *tools.Result) {
	res.ToolCalls = append(res.ToolCalls, call)
	if out == nil {
		return
	}
	res.Changes = append(res.Changes, out.Changes...)
	res.Undo = append(res.Undo, out.Undo...)
}
