// Package fallback implements the reliability pipeline's decision function:
// given the trigger that ended the last model attempt and the attempts made
// so far, decide whether to retry the same model, fall back to the next one
// in the configured chain, or give up.
//
// The decision function itself is new (the planner loop in
// runtime/agent/planner/planner.go has no bounded-attempts state machine),
// but the shape, classify a failure via a small closed taxonomy then decide
// what to do next, is the same shape as the RetryReason/RetryHint
// classification in retryhint_provider.go, reused here for a different
// decision space.
package fallback

import (
	"fmt"

	"github.com/kparnell/intentd/internal/model"
)

// MaxAttemptsPerModel and MaxModelsPerRequest are spec-locked caps; they are
// not configuration and must never be changed at runtime.
const (
	MaxAttemptsPerModel = 2
	MaxModelsPerRequest = 3
)

// DecisionKind is the closed set of actions the executor can take after a
// model attempt fails.
type DecisionKind string

const (
	DecisionRetrySameModel    DecisionKind = "RETRY_SAME_MODEL"
	DecisionFallbackNextModel DecisionKind = "FALLBACK_NEXT_MODEL"
	DecisionFail              DecisionKind = "FAIL"
)

// Decision is the result of evaluating the decision function.
type Decision struct {
	Kind            DecisionKind
	Next            model.ModelKey
	UseRepairPrompt bool
	Reason          string
}

// chainKey identifies one row of the model-chain table.
type chainKey struct {
	Profile  model.RoutingProfile
	JobClass model.JobClass
}

// Manager holds the (routing_profile, job_class) → chain table and evaluates
// the decision function against it. Decide looks the chain up again on every
// call, so a reconfiguration (SetChain) is also seen by a request already in
// progress from its next decision on. Manager does no locking of its own.
type Manager struct {
	chains map[chainKey][]model.ModelKey
}

// New constructs a Manager pre-loaded with the default fallback chains.
func New() *Manager {
	m := &Manager{chains: make(map[chainKey][]model.ModelKey)}
	for key, chain := range defaultChains() {
		m.chains[key] = chain
	}
	return m
}

// defaultChains is the fixed (profile, job_class) -> chain table; every
// entry here is spec-locked and must not be edited to favor one adapter over
// another. The anthropic, bedrock, and groq adapters have no row in this
// table and are reachable only through SetChain reconfiguration, not through
// the shipped defaults.
func defaultChains() map[chainKey][]model.ModelKey {
	offlineChain := []model.ModelKey{
		{Provider: "ollama", Model: "llama3.2:1b"},
		{Provider: "ollama", Model: "llama3.2"},
		{Provider: "ollama", Model: "mistral"},
	}
	chains := map[chainKey][]model.ModelKey{
		{Profile: model.ProfileBalanced, JobClass: model.JobIntentRouting}: {
			{Provider: "openai", Model: "gpt-4o-mini"},
			{Provider: "openai", Model: "gpt-4o"},
			{Provider: "ollama", Model: "llama3.2:1b"},
		},
		{Profile: model.ProfileBalanced, JobClass: model.JobExtraction}: {
			{Provider: "openai", Model: "gpt-4o-mini"},
			{Provider: "ollama", Model: "llama3.2:1b"},
		},
		{Profile: model.ProfileAccuracy, JobClass: model.JobIntentRouting}: {
			{Provider: "openai", Model: "gpt-4o"},
			{Provider: "openai", Model: "gpt-4o-mini"},
			{Provider: "ollama", Model: "llama3.2:1b"},
		},
		{Profile: model.ProfileAccuracy, JobClass: model.JobPlanning}: {
			{Provider: "openai", Model: "gpt-4o"},
			{Provider: "openai", Model: "gpt-4o-mini"},
		},
		{Profile: model.ProfileAccuracy, JobClass: model.JobExtraction}: {
			{Provider: "openai", Model: "gpt-4o"},
			{Provider: "openai", Model: "gpt-4o-mini"},
		},
	}
	for _, jc := range []model.JobClass{
		model.JobIntentRouting, model.JobPlanning, model.JobExtraction,
		model.JobSummarization, model.JobWorkflowBuilding,
	} {
		chains[chainKey{Profile: model.ProfileOffline, JobClass: jc}] = offlineChain
	}
	return chains
}

// SetChain reconfigures the chain for a (profile, jobClass) pair. It stores a
// copy of chain; slices already returned by Chain are not changed, but every
// later Chain or Decide call, including one from a request in progress, uses
// the new chain.
func (m *Manager) SetChain(profile model.RoutingProfile, jobClass model.JobClass, chain []model.ModelKey) {
	m.chains[chainKey{Profile: profile, JobClass: jobClass}] = append([]model.ModelKey(nil), chain...)
}

// ultimateFallback is returned when no chain entry exists at all, even after
// falling back to the profile's INTENT_ROUTING chain.
func ultimateFallback() []model.ModelKey {
	return []model.ModelKey{{Provider: "ollama", Model: "llama3.2:1b"}}
}

// Chain resolves the ordered (provider, model) list for a (profile,
// jobClass) pair, falling back to the profile's INTENT_ROUTING chain and
// finally to the ultimate fallback.
func (m *Manager) Chain(profile model.RoutingProfile, jobClass model.JobClass) []model.ModelKey {
	if chain, ok := m.chains[chainKey{Profile: profile, JobClass: jobClass}]; ok {
		return chain
	}
	if chain, ok := m.chains[chainKey{Profile: profile, JobClass: model.JobIntentRouting}]; ok {
		return chain
	}
	return ultimateFallback()
}

// Decide implements the numbered fallback decision function exactly.
func (m *Manager) Decide(trigger model.FallbackTrigger, attempts []model.ModelAttempt, profile model.RoutingProfile, jobClass model.JobClass) Decision {
	// 1. If attempts is empty, emit FAIL("invalid state").
	if len(attempts) == 0 {
		return Decision{Kind: DecisionFail, Reason: "invalid state"}
	}

	// 2. current = attempts[-1]; n = #attempts with same (provider,model).
	current := attempts[len(attempts)-1]
	currentKey := model.ModelKey{Provider: current.Provider, Model: current.Model}
	n := 0
	for _, a := range attempts {
		if a.Provider == currentKey.Provider && a.Model == currentKey.Model {
			n++
		}
	}

	// 3. If n < max_attempts_per_model AND trigger is a content error, retry.
	if n < MaxAttemptsPerModel && isContentTrigger(trigger) {
		return Decision{Kind: DecisionRetrySameModel, Next: currentKey, UseRepairPrompt: true}
	}

	// 4. distinct = #unique (provider,model) across attempts.
	seen := make(map[model.ModelKey]struct{}, len(attempts))
	for _, a := range attempts {
		seen[model.ModelKey{Provider: a.Provider, Model: a.Model}] = struct{}{}
	}
	if len(seen) >= MaxModelsPerRequest {
		return Decision{Kind: DecisionFail, Reason: "exhausted models"}
	}

	// 5. Scan the chain top-to-bottom; fall back to the first pair not yet
	// attempted.
	chain := m.Chain(profile, jobClass)
	for _, candidate := range chain {
		if _, tried := seen[candidate]; !tried {
			return Decision{Kind: DecisionFallbackNextModel, Next: candidate}
		}
	}

	// 6. If none remains, emit FAIL("no more models").
	return Decision{Kind: DecisionFail, Reason: "no more models"}
}

func isContentTrigger(t model.FallbackTrigger) bool {
	return t == model.TriggerInvalidJSON || t == model.TriggerValidationError
}

func (d Decision) String() string {
	switch d.Kind {
	case DecisionRetrySameModel:
		return fmt.Sprintf("RETRY_SAME_MODEL(%s/%s)", d.Next.Provider, d.Next.Model)
	case DecisionFallbackNextModel:
		return fmt.Sprintf("FALLBACK_NEXT_MODEL(%s/%s)", d.Next.Provider, d.Next.Model)
	default:
		return fmt.Sprintf("FAIL(%s)", d.Reason)
	}
}
