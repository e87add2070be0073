// Package validator enforces the intent contract: field presence,
// closed-set type, confidence bounds, intent-specific parameter shapes, and
// raw_entities typing. It never panics on bad input; every finding is
// collected into Errors/Warnings so the caller can surface or attempt
// repair.
package validator

import (
	"fmt"
	"time"

	"github.com/kparnell/intentd/internal/model"
)

// FieldError names a single contract violation with a stable code so
// callers and tests can branch on failure kind without string matching.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

const (
	CodeMissingField       = "MISSING_FIELD"
	CodeInvalidIntentType  = "INVALID_INTENT_TYPE"
	CodeInvalidType        = "INVALID_TYPE"
	CodeOutOfRange         = "OUT_OF_RANGE"
)

// Result is the outcome of validating a normalized mapping.
type Result struct {
	Valid     bool
	Intent    *model.Intent
	Risk      model.RiskLevel
	Errors    []FieldError
	Warnings  []string
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

// ValidateIntent runs the ordered contract checks against a mapping
// produced by the normalizer.
func ValidateIntent(data map[string]any) Result {
	var errs []FieldError
	var warnings []string

	// Opportunistic structural pre-check: the compiled JSON Schema catches
	// gross shape violations (e.g. confidence as a string) before the
	// detailed per-field pass below runs. Schema failures do not short
	// circuit — the ordered checks still produce spec-exact error codes.
	if err := compiledSchema.Validate(data); err != nil {
		warnings = append(warnings, fmt.Sprintf("schema: %v", err))
	}

	rawType, hasType := data["type"]
	rawConfidence, hasConfidence := data["confidence"]

	if !hasType {
		errs = append(errs, FieldError{Field: "type", Code: CodeMissingField, Message: "type is required"})
	}
	if !hasConfidence {
		errs = append(errs, FieldError{Field: "confidence", Code: CodeMissingField, Message: "confidence is required"})
	}
	if !hasType {
		// Short-circuit: without a type, intent-specific parameter checks and
		// risk classification below are meaningless.
		return Result{Valid: false, Errors: errs, Warnings: warnings}
	}

	typeStr, ok := rawType.(string)
	intentType := model.IntentType(typeStr)
	if !ok || !isValidIntentType(intentType) {
		errs = append(errs, FieldError{Field: "type", Code: CodeInvalidIntentType, Message: fmt.Sprintf("unrecognized intent type %v", rawType)})
	}

	var confidence float64
	if hasConfidence {
		switch v := rawConfidence.(type) {
		case float64:
			confidence = v
		case int:
			confidence = float64(v)
		default:
			errs = append(errs, FieldError{Field: "confidence", Code: CodeInvalidType, Message: "confidence must be numeric"})
		}
		if isNumeric(rawConfidence) && (confidence < 0.0 || confidence > 1.0) {
			errs = append(errs, FieldError{Field: "confidence", Code: CodeOutOfRange, Message: "confidence must be within [0.0, 1.0]"})
		}
	}

	parameters, paramWarnings, paramErrs := validateParameters(intentType, data["parameters"])
	warnings = append(warnings, paramWarnings...)
	errs = append(errs, paramErrs...)

	rawEntities, entityErrs := validateRawEntities(data["raw_entities"])
	errs = append(errs, entityErrs...)

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs, Warnings: warnings}
	}

	intent := model.Intent{
		Type:        intentType,
		Confidence:  confidence,
		Parameters:  parameters,
		RawEntities: rawEntities,
	}
	return Result{
		Valid:    true,
		Intent:   &intent,
		Risk:     model.RiskForIntent(intentType),
		Warnings: warnings,
	}
}

func isValidIntentType(t model.IntentType) bool {
	for _, v := range model.ValidIntentTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, int:
		return true
	default:
		return false
	}
}

// validateParameters applies the intent-specific parameter checks.
// parameters defaults to {} when absent.
func validateParameters(t model.IntentType, raw any) (map[string]any, []string, []FieldError) {
	params := map[string]any{}
	if raw != nil {
		p, ok := raw.(map[string]any)
		if !ok {
			return nil, nil, []FieldError{{Field: "parameters", Code: CodeInvalidType, Message: "parameters must be an object"}}
		}
		params = p
	}

	var warnings []string
	var errs []FieldError

	switch t {
	case model.IntentPlanDay:
		if rawDate, present := params["date"]; present {
			dateStr, ok := rawDate.(string)
			if !ok || !parsesAsDate(dateStr) {
				errs = append(errs, FieldError{Field: "parameters.date", Code: CodeInvalidType, Message: "date must match YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS, or YYYY-MM-DDTHH:MM:SSZ"})
			}
		}
	case model.IntentProcessMeetingNotes:
		_, hasContent := params["content"]
		_, hasNotes := params["notes"]
		if !hasContent && !hasNotes {
			warnings = append(warnings, "process_meeting_notes: neither content nor notes present")
		}
	}

	return params, warnings, errs
}

func parsesAsDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// validateRawEntities checks raw_entities: defaults to [], must be a
// sequence of strings, and per-index type errors name raw_entities[i].
func validateRawEntities(raw any) ([]string, []FieldError) {
	if raw == nil {
		return []string{}, nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, []FieldError{{Field: "raw_entities", Code: CodeInvalidType, Message: "raw_entities must be a sequence"}}
	}

	var errs []FieldError
	out := make([]string, 0, len(seq))
	for i, v := range seq {
		s, ok := v.(string)
		if !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("raw_entities[%d]", i),
				Code:    CodeInvalidType,
				Message: "raw_entities elements must be strings",
			})
			continue
		}
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
