package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/model"
)

// Workflow is the default in-memory entity shape WORKFLOW_* tools operate
// on. It is created disabled; WORKFLOW_ENABLE is a separate, explicit step.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Steps     []any     `json:"steps,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowStore is a sync.RWMutex-guarded in-memory collection, same shape
// as the other entity stores in this package.
type WorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewWorkflowStore constructs an empty WorkflowStore.
func NewWorkflowStore() *WorkflowStore {
	return &WorkflowStore{workflows: make(map[string]*Workflow)}
}

func (s *WorkflowStore) save(w *Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[w.ID] = w
}

func (s *WorkflowStore) get(id string) (*Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	return w, ok
}

func (s *WorkflowStore) delete(id string) (*Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, false
	}
	delete(s.workflows, id)
	return w, true
}

// WorkflowSave implements WORKFLOW_SAVE: args {name, steps}. It is HIGH risk
// and always persists the workflow disabled.
type WorkflowSave struct {
	store *WorkflowStore
	now   func() time.Time
}

// NewWorkflowSave constructs the WORKFLOW_SAVE tool over store.
func NewWorkflowSave(store *WorkflowStore) *WorkflowSave {
	return &WorkflowSave{store: store, now: time.Now}
}

func (t *WorkflowSave) Name() string               { return "WORKFLOW_SAVE" }
func (t *WorkflowSave) RiskLevel() model.RiskLevel { return model.RiskHigh }
func (t *WorkflowSave) Description() string {
	return "saves a workflow definition in the disabled state"
}

func (t *WorkflowSave) Execute(ctx context.Context, args map[string]any) (Result, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return Result{}, fmt.Errorf("workflow_save: name is required")
	}
	steps, _ := args["steps"].([]any)

	wf := &Workflow{
		ID:        uuid.New().String(),
		Name:      name,
		Steps:     steps,
		Enabled:   false,
		CreatedAt: t.now().UTC(),
	}
	t.store.save(wf)

	return Result{
		Payload: wf,
		Changes: []model.Change{{
			EntityType: "workflow",
			EntityID:   wf.ID,
			Action:     model.ActionCreated,
			After:      wf,
		}},
		Undo: []model.UndoStep{{
			ToolName:    "WORKFLOW_DELETE",
			Args:        map[string]any{"id": wf.ID},
			Description: fmt.Sprintf("delete workflow %q created by this request", wf.Name),
		}},
	}, nil
}

// WorkflowEnable implements WORKFLOW_ENABLE: args {id}. Activation is a
// distinct, explicit step from WORKFLOW_SAVE.
type WorkflowEnable struct {
	store *WorkflowStore
}

// NewWorkflowEnable constructs the WORKFLOW_ENABLE tool over store.
func NewWorkflowEnable(store *WorkflowStore) *WorkflowEnable {
	return &WorkflowEnable{store: store}
}

func (t *WorkflowEnable) Name() string               { return "WORKFLOW_ENABLE" }
func (t *WorkflowEnable) RiskLevel() model.RiskLevel { return model.RiskHigh }
func (t *WorkflowEnable) Description() string        { return "activates a previously saved workflow" }

func (t *WorkflowEnable) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	wf, ok := t.store.get(id)
	if !ok {
		return Result{}, fmt.Errorf("workflow_enable: workflow %q not found", id)
	}
	before := *wf
	wf.Enabled = true
	t.store.save(wf)

	return Result{
		Payload: wf,
		Changes: []model.Change{{
			EntityType: "workflow",
			EntityID:   wf.ID,
			Action:     model.ActionUpdated,
			Before:     before,
			After:      wf,
		}},
		Undo: []model.UndoStep{{
			ToolName:    "WORKFLOW_DISABLE",
			Args:        map[string]any{"id": wf.ID},
			Description: fmt.Sprintf("disable workflow %q activated by this request", wf.Name),
		}},
	}, nil
}

// WorkflowDisable implements WORKFLOW_DISABLE: args {id}, the undo
// counterpart to WORKFLOW_ENABLE.
type WorkflowDisable struct {
	store *WorkflowStore
}

// NewWorkflowDisable constructs the WORKFLOW_DISABLE tool over store.
func NewWorkflowDisable(store *WorkflowStore) *WorkflowDisable {
	return &WorkflowDisable{store: store}
}

func (t *WorkflowDisable) Name() string               { return "WORKFLOW_DISABLE" }
func (t *WorkflowDisable) RiskLevel() model.RiskLevel { return model.RiskHigh }
func (t *WorkflowDisable) Description() string        { return "deactivates a workflow" }

func (t *WorkflowDisable) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	wf, ok := t.store.get(id)
	if !ok {
		return Result{}, fmt.Errorf("workflow_disable: workflow %q not found", id)
	}
	before := *wf
	wf.Enabled = false
	t.store.save(wf)

	return Result{
		Payload: wf,
		Changes: []model.Change{{
			EntityType: "workflow",
			EntityID:   wf.ID,
			Action:     model.ActionUpdated,
			Before:     before,
			After:      wf,
		}},
	}, nil
}

// WorkflowDelete implements WORKFLOW_DELETE: args {id}, the undo
// counterpart to WORKFLOW_SAVE.
type WorkflowDelete struct {
	store *WorkflowStore
}

// NewWorkflowDelete constructs the WORKFLOW_DELETE tool over store.
func NewWorkflowDelete(store *WorkflowStore) *WorkflowDelete {
	return &WorkflowDelete{store: store}
}

func (t *WorkflowDelete) Name() string               { return "WORKFLOW_DELETE" }
func (t *WorkflowDelete) RiskLevel() model.RiskLevel { return model.RiskHigh }
func (t *WorkflowDelete) Description() string        { return "deletes a workflow by id" }

func (t *WorkflowDelete) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	before, ok := t.store.delete(id)
	if !ok {
		return Result{}, fmt.Errorf("workflow_delete: workflow %q not found", id)
	}
	return Result{
		Payload: map[string]any{"id": id, "deleted": true},
		Changes: []model.Change{{
			EntityType: "workflow",
			EntityID:   id,
			Action:     model.ActionDeleted,
			Before:     before,
		}},
	}, nil
}
