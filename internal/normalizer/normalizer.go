// Package normalizer turns arbitrary model text into a structured mapping,
// tolerating the common ways models fail to produce clean JSON: Markdown
// fences, stray prose around a JSON blob, trailing commas, and unquoted
// keys. Normalize is a pure function: same input always yields the same
// output, with repairs applied in a fixed order so results are
// deterministic.
package normalizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Result is the outcome of a normalization attempt.
type Result struct {
	Success        bool
	Data           map[string]any
	Error          string
	RepairsApplied []string
}

var (
	fencedBlockRe = regexp.MustCompile("(?is)```(?:json)?\\s*\\n?(.*?)```")
	objectScoutRe = regexp.MustCompile("(?s)\\{.*\\}")
	arrayScoutRe  = regexp.MustCompile("(?s)\\[.*\\]")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
)

// Normalize runs the ordered extraction pipeline: direct parse, Markdown
// extraction, structure scouting, repair pass. The first step that yields a
// parseable mapping wins.
func Normalize(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Success: false, Error: "empty input"}
	}

	if res, ok := directParse(trimmed, nil); ok {
		return res
	}

	var repairs []string
	if body, ok := extractFencedJSON(trimmed); ok {
		repairs = append(repairs, "extracted_from_markdown")
		if res, ok := directParse(body, repairs); ok {
			return res
		}
		trimmed = body
	} else if body, ok := scoutStructure(trimmed); ok {
		repairs = append(repairs, "extracted_json_structure")
		if res, ok := directParse(body, repairs); ok {
			return res
		}
		trimmed = body
	}

	repaired, applied := repair(trimmed)
	repairs = append(repairs, applied...)
	if res, ok := directParse(repaired, repairs); ok {
		return res
	}

	return Result{
		Success:        false,
		Error:          fmt.Sprintf("unable to parse model output after repairs: %s", strings.Join(repairs, ", ")),
		RepairsApplied: repairs,
	}
}

// directParse attempts step 1 of the pipeline: trim, parse as JSON, lift
// arrays into {"items": [...]}, fail on any other scalar.
func directParse(s string, repairs []string) (Result, bool) {
	s = strings.TrimSpace(s)
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Result{}, false
	}
	switch t := v.(type) {
	case map[string]any:
		return Result{Success: true, Data: t, RepairsApplied: repairs}, true
	case []any:
		return Result{Success: true, Data: map[string]any{"items": t}, RepairsApplied: repairs}, true
	default:
		return Result{}, false
	}
}

// extractFencedJSON scans for fenced code blocks (```json optional tag),
// returning the first fenced body that begins with { or [.
func extractFencedJSON(s string) (string, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body, true
		}
	}
	return "", false
}

// scoutStructure finds the first {...} substring, else the first [...]
// substring, across newlines.
func scoutStructure(s string) (string, bool) {
	if m := objectScoutRe.FindString(s); m != "" {
		return m, true
	}
	if m := arrayScoutRe.FindString(s); m != "" {
		return m, true
	}
	return "", false
}

// repair applies, in fixed order: trailing-comma removal, bare-key
// quoting, and single-to-double quote conversion (only when the string has
// single quotes but no double quotes).
func repair(s string) (string, []string) {
	var applied []string

	if trailingCommaRe.MatchString(s) {
		s = trailingCommaRe.ReplaceAllString(s, "$1")
		applied = append(applied, "removed_trailing_commas")
	}

	if bareKeyRe.MatchString(s) {
		s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3`)
		applied = append(applied, "quoted_keys")
	}

	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		s = strings.ReplaceAll(s, "'", `"`)
		applied = append(applied, "single_to_double_quotes")
	}

	return s, applied
}
