package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/model"
)

// Note is the default in-memory entity shape NOTE_* tools operate on.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteStore is a sync.RWMutex-guarded in-memory collection, same shape as
// TaskStore.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]*Note
}

// NewNoteStore constructs an empty NoteStore.
func NewNoteStore() *NoteStore {
	return &NoteStore{notes: make(map[string]*Note)}
}

func (s *NoteStore) save(n *Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.ID] = n
}

func (s *NoteStore) all() []*Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	return out
}

func (s *NoteStore) delete(id string) (*Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, false
	}
	delete(s.notes, id)
	return n, true
}

// NoteCreate implements NOTE_CREATE: args {title?, content, tags?}.
type NoteCreate struct {
	store *NoteStore
	now   func() time.Time
}

// NewNoteCreate constructs the NOTE_CREATE tool over store.
func NewNoteCreate(store *NoteStore) *NoteCreate {
	return &NoteCreate{store: store, now: time.Now}
}

func (t *NoteCreate) Name() string               { return "NOTE_CREATE" }
func (t *NoteCreate) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *NoteCreate) Description() string        { return "creates a note from free-form content" }

func (t *NoteCreate) Execute(ctx context.Context, args map[string]any) (Result, error) {
	content, _ := args["content"].(string)
	if content == "" {
		return Result{}, fmt.Errorf("note_create: content is required")
	}
	title, _ := args["title"].(string)
	tags := stringSlice(args["tags"])

	note := &Note{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: t.now().UTC(),
	}
	t.store.save(note)

	return Result{
		Payload: note,
		Changes: []model.Change{{
			EntityType: "note",
			EntityID:   note.ID,
			Action:     model.ActionCreated,
			After:      note,
		}},
		Undo: []model.UndoStep{{
			ToolName:    "NOTE_DELETE",
			Args:        map[string]any{"id": note.ID},
			Description: "delete note created by this request",
		}},
	}, nil
}

// NoteDelete implements NOTE_DELETE: args {id}, the undo counterpart to
// NOTE_CREATE.
type NoteDelete struct {
	store *NoteStore
}

// NewNoteDelete constructs the NOTE_DELETE tool over store.
func NewNoteDelete(store *NoteStore) *NoteDelete {
	return &NoteDelete{store: store}
}

func (t *NoteDelete) Name() string               { return "NOTE_DELETE" }
func (t *NoteDelete) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *NoteDelete) Description() string        { return "deletes a note by id" }

func (t *NoteDelete) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	before, ok := t.store.delete(id)
	if !ok {
		return Result{}, fmt.Errorf("note_delete: note %q not found", id)
	}
	return Result{
		Payload: map[string]any{"id": id, "deleted": true},
		Changes: []model.Change{{
			EntityType: "note",
			EntityID:   id,
			Action:     model.ActionDeleted,
			Before:     before,
		}},
	}, nil
}

// NoteSearch implements NOTE_SEARCH: args {query}. Scores by simple
// substring matching consistent with search_summarize's task scoring (title
// 0.7, content 0.5, otherwise 0.3 when query is empty).
type NoteSearch struct {
	store *NoteStore
}

// NewNoteSearch constructs the NOTE_SEARCH tool over store.
func NewNoteSearch(store *NoteStore) *NoteSearch {
	return &NoteSearch{store: store}
}

func (t *NoteSearch) Name() string               { return "NOTE_SEARCH" }
func (t *NoteSearch) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *NoteSearch) Description() string        { return "searches notes by substring relevance" }

// NoteMatch pairs a note with its computed relevance score.
type NoteMatch struct {
	Note  *Note   `json:"note"`
	Score float64 `json:"score"`
}

func (t *NoteSearch) Execute(ctx context.Context, args map[string]any) (Result, error) {
	query, _ := args["query"].(string)
	q := strings.ToLower(strings.TrimSpace(query))

	var matches []NoteMatch
	for _, n := range t.store.all() {
		score := scoreNote(n, q)
		if score > 0 {
			matches = append(matches, NoteMatch{Note: n, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > 10 {
		matches = matches[:10]
	}
	return Result{Payload: matches}, nil
}

func scoreNote(n *Note, q string) float64 {
	if q == "" {
		return 0.3
	}
	if strings.Contains(strings.ToLower(n.Title), q) {
		return 0.7
	}
	if strings.Contains(strings.ToLower(n.Content), q) {
		return 0.5
	}
	return 0
}
