package skills

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/kparnell/intentd/internal/model"
)

// CaptureTasks implements the CAPTURE_TASKS skill (LOW risk).
// It turns raw_entities and parameters.tasks[] into one TASK_CREATE call per
// entry, parsing simple temporal and priority markers out of each string.
type CaptureTasks struct {
	now func() time.Time
}

// NewCaptureTasks constructs the CAPTURE_TASKS skill.
func NewCaptureTasks() *CaptureTasks {
	return &CaptureTasks{now: time.Now}
}

func (s *CaptureTasks) IntentType() model.IntentType { return model.IntentCaptureTasks }
func (s *CaptureTasks) RiskLevel() model.RiskLevel   { return model.RiskForIntent(model.IntentCaptureTasks) }

func (s *CaptureTasks) Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error) {
	entries := captureEntries(sc.Intent)

	var res Result
	created := 0
	for _, entry := range entries {
		title, priority, due := parseCaptureEntry(entry, s.now())
		if title == "" {
			continue
		}
		args := map[string]any{
			"title":    title,
			"priority": priority,
		}
		if due != nil {
			args["due_date"] = *due
		}
		// capture_tasks always skips confirmation: it is LOW risk by
		// definition, so there is nothing for the caller to confirm.
		call, out := sc.Dispatcher.Dispatch(ctx, "TASK_CREATE", args, true)
		record(&res, call, out)
		if call.Status == model.ToolCallOK {
			created++
		}
	}

	if created == 1 {
		res.Summary = "captured 1 task"
	} else {
		res.Summary = strconv.Itoa(created) + " tasks captured"
	}
	return res, nil
}

// captureEntries collects the raw strings to turn into tasks: every
// raw_entity plus any parameters.tasks[] strings.
func captureEntries(intent model.Intent) []string {
	entries := make([]string, 0, len(intent.RawEntities))
	entries = append(entries, intent.RawEntities...)
	if raw, ok := intent.Parameters["tasks"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				entries = append(entries, s)
			}
		}
	}
	return entries
}

// parseCaptureEntry extracts a clean title, a priority ("low"|"medium"|
// "high"), and an optional due date from one free-form task string. Marker
// words are stripped from the returned title.
func parseCaptureEntry(entry string, now time.Time) (title, priority string, due *time.Time) {
	priority = "medium"
	words := strings.Fields(entry)
	keep := make([]string, 0, len(words))

	lower := strings.ToLower(entry)
	switch {
	case strings.Contains(lower, "urgent"), strings.Contains(lower, "asap"):
		priority = "high"
	case strings.Contains(lower, "low priority"), strings.Contains(lower, "whenever"):
		priority = "low"
	}

	if d := parseTemporalMarker(lower, now); d != nil {
		due = d
	}

	skip := map[string]bool{
		"urgent": true, "asap": true, "whenever": true,
		"today": true, "tomorrow": true,
	}
	for i := 0; i < len(words); i++ {
		w := strings.ToLower(strings.Trim(words[i], ".,!"))
		if w == "low" && i+1 < len(words) && strings.ToLower(strings.Trim(words[i+1], ".,!")) == "priority" {
			i++
			continue
		}
		if w == "by" && i+1 < len(words) && isWeekday(strings.ToLower(strings.Trim(words[i+1], ".,!"))) {
			i++
			continue
		}
		if skip[w] {
			continue
		}
		keep = append(keep, words[i])
	}
	title = strings.TrimSpace(strings.Join(keep, " "))
	if title == "" {
		title = strings.TrimSpace(entry)
	}
	return title, priority, due
}

func parseTemporalMarker(lower string, now time.Time) *time.Time {
	switch {
	case strings.Contains(lower, "today"):
		d := now.Truncate(24 * time.Hour)
		return &d
	case strings.Contains(lower, "tomorrow"):
		d := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
		return &d
	}
	for _, wd := range weekdays {
		if strings.Contains(lower, "by "+wd) {
			d := nextWeekday(now, wd)
			return &d
		}
	}
	return nil
}

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func isWeekday(w string) bool {
	for _, wd := range weekdays {
		if wd == w {
			return true
		}
	}
	return false
}

func nextWeekday(now time.Time, name string) time.Time {
	target := time.Sunday
	for i, wd := range weekdays {
		if wd == name {
			target = time.Weekday(i)
		}
	}
	days := (int(target) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days).Truncate(24 * time.Hour)
}

