package skills

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/tools"
)

// SearchSummarize implements the SEARCH_SUMMARIZE skill (LOW risk). It
// builds a query from parameters.query or the joined entities,
// searches notes and/or tasks depending on parameters.sources, scores tasks
// by substring match, and returns the top 10 ranked results with citations
// back to the tool call that produced them.
type SearchSummarize struct{}

// NewSearchSummarize constructs the SEARCH_SUMMARIZE skill.
func NewSearchSummarize() *SearchSummarize { return &SearchSummarize{} }

func (s *SearchSummarize) IntentType() model.IntentType {
	return model.IntentSearchSummarize
}
func (s *SearchSummarize) RiskLevel() model.RiskLevel {
	return model.RiskForIntent(model.IntentSearchSummarize)
}

// SearchResult is one ranked hit with a citation identifying which source
// tool call and entity it came from.
type SearchResult struct {
	Source   string  `json:"source"` // "note" | "task"
	EntityID string  `json:"entity_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
}

func (s *SearchSummarize) Execute(ctx context.Context, sc Context, skipConfirmation bool) (Result, error) {
	query := searchQuery(sc.Intent)
	sources := searchSources(sc.Intent)

	var res Result
	var hits []SearchResult

	if sources["notes"] {
		call, out := sc.Dispatcher.Dispatch(ctx, "NOTE_SEARCH", map[string]any{"query": query}, true)
		record(&res, call, out)
		if out != nil {
			if matches, ok := out.Payload.([]tools.NoteMatch); ok {
				for _, m := range matches {
					hits = append(hits, SearchResult{Source: "note", EntityID: m.Note.ID, Title: m.Note.Title, Score: m.Score})
				}
			}
		}
	}

	if sources["tasks"] {
		call, out := sc.Dispatcher.Dispatch(ctx, "TASK_LIST", map[string]any{}, true)
		record(&res, call, out)
		if out != nil {
			if taskList, ok := out.Payload.([]*tools.Task); ok {
				hits = append(hits, scoreTasks(taskList, query)...)
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > 10 {
		hits = hits[:10]
	}

	res.Summary = searchSummary(query, len(hits))
	res.Results = hits
	return res, nil
}

// scoreTasks ranks tasks by the same substring-relevance rule NOTE_SEARCH
// uses: title match 0.7, description match 0.5, otherwise 0.3 when the
// query is empty.
func scoreTasks(taskList []*tools.Task, query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []SearchResult
	for _, t := range taskList {
		score := 0.0
		switch {
		case q == "":
			score = 0.3
		case strings.Contains(strings.ToLower(t.Title), q):
			score = 0.7
		case strings.Contains(strings.ToLower(t.Description), q):
			score = 0.5
		}
		if score > 0 {
			out = append(out, SearchResult{Source: "task", EntityID: t.ID, Title: t.Title, Score: score})
		}
	}
	return out
}

func searchSummary(query string, n int) string {
	if query == "" {
		return "returned top " + strconv.Itoa(n) + " results across notes and tasks"
	}
	return "returned top " + strconv.Itoa(n) + ` results for "` + query + `"`
}

// searchQuery builds the search string from parameters.query, falling back
// to the joined raw entities.
func searchQuery(intent model.Intent) string {
	if q, ok := intent.Parameters["query"].(string); ok && strings.TrimSpace(q) != "" {
		return strings.TrimSpace(q)
	}
	return strings.TrimSpace(strings.Join(intent.RawEntities, " "))
}

// searchSources reads parameters.sources (a list of "notes"/"tasks"
// strings); an absent or empty list means search everything.
func searchSources(intent model.Intent) map[string]bool {
	raw, ok := intent.Parameters["sources"].([]any)
	if !ok || len(raw) == 0 {
		return map[string]bool{"notes": true, "tasks": true}
	}
	out := make(map[string]bool, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out[strings.ToLower(s)] = true
		}
	}
	return out
}
