package fallback_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/fallback"
	"github.com/kparnell/intentd/internal/model"
)

func attempt(provider, modelID string, n int, success bool, trigger *model.FallbackTrigger) model.ModelAttempt {
	return model.ModelAttempt{
		Provider:        provider,
		Model:           modelID,
		AttemptNumber:   n,
		Success:         success,
		FallbackTrigger: trigger,
		Timestamp:       time.Unix(0, 0),
	}
}

func trig(t model.FallbackTrigger) *model.FallbackTrigger { return &t }

func TestDecideEmptyAttemptsFails(t *testing.T) {
	m := fallback.New()
	d := m.Decide(model.TriggerInvalidJSON, nil, model.ProfileBalanced, model.JobIntentRouting)
	assert.Equal(t, fallback.DecisionFail, d.Kind)
	assert.Equal(t, "invalid state", d.Reason)
}

func TestDecideRetriesSameModelOnContentError(t *testing.T) {
	m := fallback.New()
	attempts := []model.ModelAttempt{
		attempt("openai", "gpt-4o-mini", 1, false, trig(model.TriggerInvalidJSON)),
	}
	d := m.Decide(model.TriggerInvalidJSON, attempts, model.ProfileBalanced, model.JobIntentRouting)
	require.Equal(t, fallback.DecisionRetrySameModel, d.Kind)
	assert.True(t, d.UseRepairPrompt)
	assert.Equal(t, "openai", d.Next.Provider)
	assert.Equal(t, "gpt-4o-mini", d.Next.Model)
}

func TestDecideCapsRetriesAtMaxAttemptsPerModel(t *testing.T) {
	m := fallback.New()
	attempts := []model.ModelAttempt{
		attempt("openai", "gpt-4o-mini", 1, false, trig(model.TriggerInvalidJSON)),
		attempt("openai", "gpt-4o-mini", 2, false, trig(model.TriggerInvalidJSON)),
	}
	d := m.Decide(model.TriggerInvalidJSON, attempts, model.ProfileBalanced, model.JobIntentRouting)
	require.Equal(t, fallback.DecisionFallbackNextModel, d.Kind)
	assert.Equal(t, "openai", d.Next.Provider)
	assert.Equal(t, "gpt-4o", d.Next.Model)
}

func TestDecideNeverRetriesOnTransportErrors(t *testing.T) {
	m := fallback.New()
	for _, tg := range []model.FallbackTrigger{model.TriggerTimeout, model.TriggerRateLimit, model.TriggerProviderDown, model.TriggerCapabilityMismatch} {
		attempts := []model.ModelAttempt{attempt("openai", "gpt-4o-mini", 1, false, trig(tg))}
		d := m.Decide(tg, attempts, model.ProfileBalanced, model.JobIntentRouting)
		assert.NotEqualf(t, fallback.DecisionRetrySameModel, d.Kind, "trigger %s should not retry same model", tg)
	}
}

func TestDecideFailsWhenModelsExhausted(t *testing.T) {
	m := fallback.New()
	attempts := []model.ModelAttempt{
		attempt("openai", "gpt-4o-mini", 1, false, trig(model.TriggerProviderDown)),
		attempt("openai", "gpt-4o-mini", 2, false, trig(model.TriggerProviderDown)),
		attempt("openai", "gpt-4o", 1, false, trig(model.TriggerProviderDown)),
		attempt("openai", "gpt-4o", 2, false, trig(model.TriggerProviderDown)),
		attempt("ollama", "llama3.2:1b", 1, false, trig(model.TriggerProviderDown)),
		attempt("ollama", "llama3.2:1b", 2, false, trig(model.TriggerProviderDown)),
	}
	d := m.Decide(model.TriggerProviderDown, attempts, model.ProfileBalanced, model.JobIntentRouting)
	require.Equal(t, fallback.DecisionFail, d.Kind)
	assert.Equal(t, "exhausted models", d.Reason)
}

func TestDecideFallsBackInChainOrder(t *testing.T) {
	m := fallback.New()
	attempts := []model.ModelAttempt{
		attempt("openai", "gpt-4o-mini", 1, false, trig(model.TriggerProviderDown)),
	}
	d := m.Decide(model.TriggerProviderDown, attempts, model.ProfileBalanced, model.JobIntentRouting)
	require.Equal(t, fallback.DecisionFallbackNextModel, d.Kind)
	assert.Equal(t, model.ModelKey{Provider: "openai", Model: "gpt-4o"}, d.Next)
}

func TestChainFallsBackToIntentRouting(t *testing.T) {
	m := fallback.New()
	chain := m.Chain(model.ProfileAccuracy, model.JobSummarization)
	assert.Equal(t, m.Chain(model.ProfileAccuracy, model.JobIntentRouting), chain)
}

func TestEmptyIntentRoutingChainIsInheritedAsEmpty(t *testing.T) {
	m := fallback.New()
	m.SetChain(model.ProfileAccuracy, model.JobIntentRouting, []model.ModelKey{})
	chain := m.Chain(model.ProfileAccuracy, model.JobSummarization)
	require.Len(t, chain, 0)
}

func TestFallbackMonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	contentTriggers := []model.FallbackTrigger{model.TriggerInvalidJSON, model.TriggerValidationError}

	properties.Property("appending another same-model attempt never yields a second RETRY_SAME_MODEL past the cap", prop.ForAll(
		func(idx int) bool {
			m := fallback.New()
			trigger := contentTriggers[idx%len(contentTriggers)]
			attempts := []model.ModelAttempt{
				attempt("openai", "gpt-4o-mini", 1, false, trig(trigger)),
			}
			first := m.Decide(trigger, attempts, model.ProfileBalanced, model.JobIntentRouting)
			if first.Kind != fallback.DecisionRetrySameModel {
				return true
			}
			attempts = append(attempts, attempt("openai", "gpt-4o-mini", 2, false, trig(trigger)))
			second := m.Decide(trigger, attempts, model.ProfileBalanced, model.JobIntentRouting)
			return second.Kind == fallback.DecisionFallbackNextModel || second.Kind == fallback.DecisionFail
		},
		gen.IntRange(0, 1),
	))

	properties.TestingRun(t)
}

func TestDistinctModelCapProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("distinct models attempted never exceeds MaxModelsPerRequest before FAIL", prop.ForAll(
		func(rounds int) bool {
			m := fallback.New()
			var attempts []model.ModelAttempt
			provider := "openai"
			models := []string{"gpt-4o-mini", "gpt-4o", "gpt-4o-extra", "gpt-4o-extra-2"}

			for i := 0; i < rounds && i < len(models); i++ {
				attempts = append(attempts, attempt(provider, models[i], 1, false, trig(model.TriggerProviderDown)))
				d := m.Decide(model.TriggerProviderDown, attempts, model.ProfileBalanced, model.JobIntentRouting)
				seen := map[model.ModelKey]struct{}{}
				for _, a := range attempts {
					seen[model.ModelKey{Provider: a.Provider, Model: a.Model}] = struct{}{}
				}
				if len(seen) > fallback.MaxModelsPerRequest {
					return false
				}
				if len(seen) >= fallback.MaxModelsPerRequest && d.Kind != fallback.DecisionFail {
					return false
				}
				if d.Kind == fallback.DecisionFail {
					break
				}
			}
			return true
		},
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
