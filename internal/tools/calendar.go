package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/model"
)

// CalendarBlock is a single scheduled interval on a given day.
type CalendarBlock struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // YYYY-MM-DD
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarStore is a sync.RWMutex-guarded in-memory collection keyed by
// block ID, mirroring TaskStore/NoteStore.
type CalendarStore struct {
	mu     sync.RWMutex
	blocks map[string]*CalendarBlock
}

// NewCalendarStore constructs an empty CalendarStore.
func NewCalendarStore() *CalendarStore {
	return &CalendarStore{blocks: make(map[string]*CalendarBlock)}
}

func (s *CalendarStore) save(b *CalendarBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.ID] = b
}

func (s *CalendarStore) forDate(date string) []*CalendarBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*CalendarBlock, 0)
	for _, b := range s.blocks {
		if b.Date == date {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartHour < out[j].StartHour })
	return out
}

func (s *CalendarStore) delete(id string) (*CalendarBlock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, false
	}
	delete(s.blocks, id)
	return b, true
}

// CalendarGetDay implements CALENDAR_GET_DAY: args {date}. Returns the
// blocks already scheduled for that date, ascending by start hour.
type CalendarGetDay struct {
	store *CalendarStore
}

// NewCalendarGetDay constructs the CALENDAR_GET_DAY tool over store.
func NewCalendarGetDay(store *CalendarStore) *CalendarGetDay {
	return &CalendarGetDay{store: store}
}

func (t *CalendarGetDay) Name() string               { return "CALENDAR_GET_DAY" }
func (t *CalendarGetDay) RiskLevel() model.RiskLevel { return model.RiskLow }
func (t *CalendarGetDay) Description() string        { return "returns the calendar blocks scheduled for a date" }

func (t *CalendarGetDay) Execute(ctx context.Context, args map[string]any) (Result, error) {
	date, _ := args["date"].(string)
	if date == "" {
		return Result{}, fmt.Errorf("calendar_get_day: date is required")
	}
	return Result{Payload: t.store.forDate(date)}, nil
}

// CalendarCreateBlocks implements CALENDAR_CREATE_BLOCKS: args {date,
// blocks: [{title, start_hour, end_hour}]}. It is MEDIUM risk and therefore
// requires confirmation unless the caller skips it.
type CalendarCreateBlocks struct {
	store *CalendarStore
	now   func() time.Time
}

// NewCalendarCreateBlocks constructs the CALENDAR_CREATE_BLOCKS tool over store.
func NewCalendarCreateBlocks(store *CalendarStore) *CalendarCreateBlocks {
	return &CalendarCreateBlocks{store: store, now: time.Now}
}

func (t *CalendarCreateBlocks) Name() string               { return "CALENDAR_CREATE_BLOCKS" }
func (t *CalendarCreateBlocks) RiskLevel() model.RiskLevel { return model.RiskMedium }
func (t *CalendarCreateBlocks) Description() string {
	return "schedules one or more calendar blocks on a date"
}

func (t *CalendarCreateBlocks) Execute(ctx context.Context, args map[string]any) (Result, error) {
	date, _ := args["date"].(string)
	if date == "" {
		return Result{}, fmt.Errorf("calendar_create_blocks: date is required")
	}
	raw, _ := args["blocks"].([]any)
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("calendar_create_blocks: at least one block is required")
	}

	var created []*CalendarBlock
	var changes []model.Change
	var undo []model.UndoStep
	for _, item := range raw {
		spec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := spec["title"].(string)
		startHour := intFromAny(spec["start_hour"])
		endHour := intFromAny(spec["end_hour"])

		block := &CalendarBlock{
			ID:        uuid.New().String(),
			Title:     title,
			Date:      date,
			StartHour: startHour,
			EndHour:   endHour,
			CreatedAt: t.now().UTC(),
		}
		t.store.save(block)
		created = append(created, block)
		changes = append(changes, model.Change{
			EntityType: "calendar_block",
			EntityID:   block.ID,
			Action:     model.ActionCreated,
			After:      block,
		})
		undo = append(undo, model.UndoStep{
			ToolName:    "CALENDAR_DELETE_BLOCK",
			Args:        map[string]any{"id": block.ID},
			Description: fmt.Sprintf("remove calendar block %q created by this request", block.Title),
		})
	}

	return Result{Payload: created, Changes: changes, Undo: undo}, nil
}

// CalendarDeleteBlock implements CALENDAR_DELETE_BLOCK: args {id}, the undo
// counterpart to CALENDAR_CREATE_BLOCKS.
type CalendarDeleteBlock struct {
	store *CalendarStore
}

// NewCalendarDeleteBlock constructs the CALENDAR_DELETE_BLOCK tool over store.
func NewCalendarDeleteBlock(store *CalendarStore) *CalendarDeleteBlock {
	return &CalendarDeleteBlock{store: store}
}

func (t *CalendarDeleteBlock) Name() string               { return "CALENDAR_DELETE_BLOCK" }
func (t *CalendarDeleteBlock) RiskLevel() model.RiskLevel { return model.RiskMedium }
func (t *CalendarDeleteBlock) Description() string        { return "removes a scheduled calendar block by id" }

func (t *CalendarDeleteBlock) Execute(ctx context.Context, args map[string]any) (Result, error) {
	id, _ := args["id"].(string)
	before, ok := t.store.delete(id)
	if !ok {
		return Result{}, fmt.Errorf("calendar_delete_block: block %q not found", id)
	}
	return Result{
		Payload: map[string]any{"id": id, "deleted": true},
		Changes: []model.Change{{
			EntityType: "calendar_block",
			EntityID:   id,
			Action:     model.ActionDeleted,
			Before:     before,
		}},
	}, nil
}

func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
