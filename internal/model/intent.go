// Package model defines the data types of the intent-execution engine: the
// closed-set Intent classification, its versioned envelope, and the enums
// shared across the normalizer, validator, fallback manager, and executor.
package model

import "time"

// IntentType is the closed set of natural-language request classifications
// the engine recognizes. The validator rejects any value outside this set.
type IntentType string

const (
	IntentCaptureTasks        IntentType = "CAPTURE_TASKS"
	IntentPlanDay             IntentType = "PLAN_DAY"
	IntentProcessMeetingNotes IntentType = "PROCESS_MEETING_NOTES"
	IntentSearchSummarize     IntentType = "SEARCH_SUMMARIZE"
	IntentBuildWorkflow       IntentType = "BUILD_WORKFLOW"
	IntentUnknown             IntentType = "UNKNOWN"
)

// ValidIntentTypes returns the closed set of recognized intent types.
func ValidIntentTypes() []IntentType {
	return []IntentType{
		IntentCaptureTasks,
		IntentPlanDay,
		IntentProcessMeetingNotes,
		IntentSearchSummarize,
		IntentBuildWorkflow,
		IntentUnknown,
	}
}

// RoutingProfile selects which model chains the fallback manager consults.
type RoutingProfile string

const (
	ProfileOffline  RoutingProfile = "OFFLINE"
	ProfileBalanced RoutingProfile = "BALANCED"
	ProfileAccuracy RoutingProfile = "ACCURACY"
)

// JobClass identifies the kind of sub-task being routed.
type JobClass string

const (
	JobIntentRouting    JobClass = "INTENT_ROUTING"
	JobPlanning         JobClass = "PLANNING"
	JobExtraction       JobClass = "EXTRACTION"
	JobSummarization    JobClass = "SUMMARIZATION"
	JobWorkflowBuilding JobClass = "WORKFLOW_BUILDING"
)

// RiskLevel gates whether a tool or skill requires confirmation before it
// mutates state.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskForIntent returns the fixed risk level for each closed-set intent type.
func RiskForIntent(t IntentType) RiskLevel {
	switch t {
	case IntentPlanDay, IntentProcessMeetingNotes:
		return RiskMedium
	case IntentBuildWorkflow:
		return RiskHigh
	default:
		return RiskLow
	}
}

// Intent is a tagged, validated classification of a user request. It is
// immutable once constructed by the validator.
type Intent struct {
	Type        IntentType     `json:"type"`
	Confidence  float64        `json:"confidence"`
	Parameters  map[string]any `json:"parameters"`
	RawEntities []string       `json:"raw_entities"`
}

// EnvelopeVersion is the only IntentEnvelope version this engine accepts.
// Widen the validator to a supported-version set to evolve the envelope.
const EnvelopeVersion = "2.1"

// IntentEnvelope wraps a validated Intent with request-level metadata.
type IntentEnvelope struct {
	Version        string         `json:"version"`
	Intent         Intent         `json:"intent"`
	UserText       string         `json:"user_text"`
	CreatedAtUTC   time.Time      `json:"created_at_utc"`
	ProfileID      *string        `json:"profile_id,omitempty"`
	RoutingProfile RoutingProfile `json:"routing_profile"`
}
