package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/model"
)

// Task is the default in-memory entity shape TASK_* tools operate on.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskStore is a sync.RWMutex-guarded in-memory collection, adapted from
// registry/store/memory/memory.go's map-of-name store (swap the toolset key
// for a generated task ID).
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskStore constructs an empty TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

func (s *TaskStore) save(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *TaskStore) get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *TaskStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

func (s *TaskStore) list(status string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TaskCreate implements TASK_CREATE: args {title, description?, priority?,
// due_date?, tags?}.
type TaskCreate struct {
	store *TaskStore
	now   func() time.Time
}

// NewTaskCreate constructs the TASK_CREATE tool over store.
func NewTaskCreate(store *TaskStore) *TaskCreate {
	return &TaskCreate{store: store, now: time.Now}
}

func (t *TaskCreate) Name() string             { return "TASK_CREATE" }
func (t *TaskCreate) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *TaskCreate) Description() string {
	return "creates a task from a title, optional description, priority, due date, and tags"
}

func (t *TaskCreate) Execute(ctx context.Context, args map[string]any) (Result, error) {
	title, _ := args["title"].(string)
	if title == "" {
		return Result{}, fmt.Errorf("task_create: title is required")
	}
	priority, _ := args["priority"].(string)
	if priority == "" {
		priority = "medium"
	}
	description, _ := args["description"].(string)
	tags := stringSlice(args["tags"])

	task := &Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      "pending",
		Priority:    priority,
		Tags:        tags,
		CreatedAt:   t.now().UTC(),
	}
	if due, ok := args["due_date"].(time.Time); ok {
		task.DueDate = &due
	}
	t.store.save(task)

	return Result{
		Payload: task,
		Changes: []model.Change{{
			EntityType: "task",
			EntityID:   task.ID,
			Action:     model.ActionCreated,
			After:      task,
		}},
		Undo: []model.UndoStep{{
			ToolName:    "TASK_DELETE",
			Args:        map[string]any{"id": task.ID},
			Description: fmt.Sprintf("delete task %q created by this request", task.Title),
		}},
	}, nil
}

// TaskList implements TASK_LIST: args {status?}.
type TaskList struct {
	store *TaskStore
}

// NewTaskList constructs the TASK_LIST tool over store.
func NewTaskList(store *TaskStore) *TaskList {
	return &TaskList{store: store}
}

func (t *TaskList) Name() string             { return "TASK_LIST" }
func (t *TaskList) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *TaskList) Description() string      { return "lists tasks, optionally filtered by status" }

func (t *TaskList) Execute(ctx context.Context, args map[string]any) (Result, error) {
	status, _ := args["status"].(string)
	return Result{Payload: t.store.list(status)}, nil
}

// TaskDelete implements TASK_DELETE: args {id}. This is the undo
// counterpart to TASK_CREATE.
type TaskDelete struct {
	store *TaskStore
}

// NewTaskDelete constructs the TASK_DELETE tool over store.
func NewTaskDelete(store *TaskStore) *TaskDelete {
	return &TaskDelete{store: store}
}

func (t *TaskDelete) Name() string             { return "TASK_DELETE" }
func (t *TaskDelete) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *TaskDelete) Description() string      { return "deletes a task by id" }

func (t *TaskDelete) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return Result{}, fmt.Errorf("task_delete: id is required")
	}
	before, existed := t.store.get(id)
	if !existed {
		return Result{}, fmt.Errorf("task_delete: task %q not found", id)
	}
	t.store.delete(id)
	return Result{
		Payload: map[string]any{"id": id, "deleted": true},
		Changes: []model.Change{{
			EntityType: "task",
			EntityID:   id,
			Action:     model.ActionDeleted,
			Before:     before,
		}},
		Undo: []model.UndoStep{{
			ToolName: "TASK_CREATE",
			Args: map[string]any{
				"title":       before.Title,
				"description": before.Description,
				"priority":    before.Priority,
				"tags":        before.Tags,
			},
			Description: fmt.Sprintf("recreate task %q removed by this request", before.Title),
		}},
	}, nil
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
