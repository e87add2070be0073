package skills

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/tools"
)

// dayStartHour/dayEndHour bound the greedy allocation window plan_day
// searches for free one-hour slots in.
const (
	dayStartHour = 9
	dayEndHour   = 17
	maxBlocks    = 5
)

// PlanDay implements the PLAN_DAY skill (MEDIUM risk). It
// reads the existing schedule and pending tasks, greedily allocates up to
// five one-hour blocks into free slots ordered by task priority, and always
// requires confirmation: CALENDAR_CREATE_BLOCKS is dispatched without
// skip-confirmation regardless of what the caller passed in.
type PlanDay struct{}

// NewPlanDay constructs the PLAN_DAY skill.
func NewPlanDay() *PlanDay { return &PlanDay{} }

func (s *PlanDay) IntentType() model.IntentType { return model.IntentPlanDay }
func (s *PlanDay) RiskLevel() model.RiskLevel   { return model.RiskForIntent(model.IntentPlanDay) }

func (s *PlanDay) Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error) {
	var res Result

	date, _ := sc.Intent.Parameters["date"].(string)
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	dayCall, dayOut := sc.Dispatcher.Dispatch(ctx, "CALENDAR_GET_DAY", map[string]any{"date": date}, true)
	record(&res, dayCall, dayOut)
	var existing []*tools.CalendarBlock
	if dayOut != nil {
		if blocks, ok := dayOut.Payload.([]*tools.CalendarBlock); ok {
			existing = blocks
		}
	}

	listCall, listOut := sc.Dispatcher.Dispatch(ctx, "TASK_LIST", map[string]any{"status": "pending"}, true)
	record(&res, listCall, listOut)
	var pending []*tools.Task
	if listOut != nil {
		if tasks, ok := listOut.Payload.([]*tools.Task); ok {
			pending = tasks
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return priorityRank(pending[i].Priority) < priorityRank(pending[j].Priority)
	})

	free := freeHours(existing)
	var blocks []any
	for _, task := range pending {
		if len(blocks) >= maxBlocks || len(free) == 0 {
			break
		}
		hour := free[0]
		free = free[1:]
		blocks = append(blocks, map[string]any{
			"title":      task.Title,
			"start_hour": hour,
			"end_hour":   hour + 1,
		})
	}

	if len(blocks) == 0 {
		res.Summary = "no free slots or pending tasks to schedule"
		return res, nil
	}

	// PLAN_DAY always surfaces the new blocks for confirmation; the
	// caller's skipConfirmation is ignored on purpose.
	createCall, createOut := sc.Dispatcher.Dispatch(ctx, "CALENDAR_CREATE_BLOCKS", map[string]any{
		"date":   date,
		"blocks": blocks,
	}, false)
	record(&res, createCall, createOut)

	res.Summary = "proposed " + strconv.Itoa(len(blocks)) + " block(s) for " + date
	return res, nil
}

// priorityRank orders "high" before "medium" before "low", with anything
// unrecognized sorted last.
func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

// freeHours returns the whole hours in [dayStartHour, dayEndHour) not
// already covered by an existing block, in ascending order.
func freeHours(existing []*tools.CalendarBlock) []int {
	taken := make(map[int]bool)
	for _, b := range existing {
		for h := b.StartHour; h < b.EndHour; h++ {
			taken[h] = true
		}
	}
	var free []int
	for h := dayStartHour; h < dayEndHour; h++ {
		if !taken[h] {
			free = append(free, h)
		}
	}
	return free
}
