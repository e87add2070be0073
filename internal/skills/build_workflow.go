package skills

import (
	"context"

	"github.com/kparnell/intentd/internal/model"
)

// BuildWorkflow implements the BUILD_WORKFLOW skill (HIGH risk). It saves
// the workflow disabled and never enables it itself:
// activation is a separate WORKFLOW_ENABLE call the caller must make
// explicitly once they've reviewed what was saved.
type BuildWorkflow struct{}

// NewBuildWorkflow constructs the BUILD_WORKFLOW skill.
func NewBuildWorkflow() *BuildWorkflow { return &BuildWorkflow{} }

func (s *BuildWorkflow) IntentType() model.IntentType { return model.IntentBuildWorkflow }
func (s *BuildWorkflow) RiskLevel() model.RiskLevel {
	return model.RiskForIntent(model.IntentBuildWorkflow)
}

func (s *BuildWorkflow) Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error) {
	name, _ := sc.Intent.Parameters["name"].(string)
	if name == "" {
		name = "Untitled workflow"
	}
	steps, _ := sc.Intent.Parameters["steps"].([]any)

	var res Result
	call, out := sc.Dispatcher.Dispatch(ctx, "WORKFLOW_SAVE", map[string]any{
		"name":  name,
		"steps": steps,
	}, skipConfirmation)
	record(&res, call, out)

	switch call.Status {
	case model.ToolCallOK:
		res.Summary = "saved workflow " + name + " (disabled; WORKFLOW_ENABLE is required to activate it)"
	case model.ToolCallPendingConfirm:
		res.Summary = "workflow " + name + " is pending confirmation before it is saved"
	default:
		res.Summary = "failed to save workflow " + name
	}
	return res, nil
}
