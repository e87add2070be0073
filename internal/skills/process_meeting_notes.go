package skills

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kparnell/intentd/internal/model"
)

// ProcessMeetingNotes implements the PROCESS_MEETING_NOTES skill (MEDIUM
// risk). It files the raw meeting content as a note, then
// scans it line by line for action-item patterns and turns up to 10 of them
// into tagged tasks.
type ProcessMeetingNotes struct{}

// NewProcessMeetingNotes constructs the PROCESS_MEETING_NOTES skill.
func NewProcessMeetingNotes() *ProcessMeetingNotes { return &ProcessMeetingNotes{} }

func (s *ProcessMeetingNotes) IntentType() model.IntentType {
	return model.IntentProcessMeetingNotes
}
func (s *ProcessMeetingNotes) RiskLevel() model.RiskLevel {
	return model.RiskForIntent(model.IntentProcessMeetingNotes)
}

const maxActionItems = 10

var actionVerbs = []string{"schedule", "send", "follow", "review", "update", "create", "prepare", "contact"}

var (
	actionPrefixRe   = regexp.MustCompile(`(?i)^(action|todo)\s*:\s*(.+)$`)
	checkboxPrefixRe = regexp.MustCompile(`^-\s*\[\s*\]\s*(.+)$`)
	bulletPrefixRe   = regexp.MustCompile(`^[-*]\s+(.+)$`)
)

func (s *ProcessMeetingNotes) Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error) {
	content, _ := sc.Intent.Parameters["content"].(string)
	if content == "" {
		content = strings.Join(sc.Intent.RawEntities, "\n")
	}

	var res Result
	noteCall, noteOut := sc.Dispatcher.Dispatch(ctx, "NOTE_CREATE", map[string]any{
		"title":   meetingTitle(sc.Intent),
		"content": content,
		"tags":    []any{"meeting"},
	}, true)
	record(&res, noteCall, noteOut)

	items := actionItems(content)
	created := 0
	for _, item := range items {
		if created >= maxActionItems {
			break
		}
		call, out := sc.Dispatcher.Dispatch(ctx, "TASK_CREATE", map[string]any{
			"title":    item,
			"priority": "medium",
			"tags":     []any{"meeting", "action-item"},
		}, true)
		record(&res, call, out)
		if call.Status == model.ToolCallOK {
			created++
		}
	}

	if created == 1 {
		res.Summary = "filed meeting note with 1 action item"
	} else {
		res.Summary = "filed meeting note with " + strconv.Itoa(created) + " action items"
	}
	return res, nil
}

func meetingTitle(intent model.Intent) string {
	if t, ok := intent.Parameters["title"].(string); ok && strings.TrimSpace(t) != "" {
		return t
	}
	return "Meeting notes"
}

// actionItems scans content line by line for action-item markers: an
// explicit "action:"/"todo:" prefix, a markdown checkbox, or a bullet whose
// text starts with a recognized action verb.
func actionItems(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := actionPrefixRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[2]))
			continue
		}
		if m := checkboxPrefixRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
			continue
		}
		if m := bulletPrefixRe.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[1])
			if startsWithActionVerb(text) {
				items = append(items, text)
			}
		}
	}
	return items
}

func startsWithActionVerb(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range actionVerbs {
		if strings.HasPrefix(lower, v) {
			return true
		}
	}
	return false
}
