// Package executor implements the attempt-loop state machine that turns a
// single user request into exactly one persisted Receipt: classify intent
// through the fallback-driven model loop, dispatch the matching skill, and
// assemble the result. Grounded on the single async-function-with-loop-and-
// explicit-state shape of runtime/agent/engine/engine.go: no continuation-
// passing, no per-call goroutine orchestration.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kparnell/intentd/internal/fallback"
	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/normalizer"
	"github.com/kparnell/intentd/internal/provider"
	"github.com/kparnell/intentd/internal/providerregistry"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/telemetry"
	"github.com/kparnell/intentd/internal/tools"
	"github.com/kparnell/intentd/internal/validator"
)

// basePrompt and repairSuffix are deliberately simple: prompt wording is out
// of scope beyond what makes the contract testable. The executor only needs
// the repair pass to differ from the first attempt.
const (
	basePrompt   = "Classify the following user request into a single intent. Respond with JSON only."
	repairSuffix = "\n\nYour previous response could not be parsed or failed validation. Return ONLY a single JSON object matching the intent contract, with no surrounding prose or Markdown fences."
)

// Executor orchestrates intent classification, skill dispatch, and receipt
// assembly for a single request.
type Executor struct {
	registry   *providerregistry.Registry
	fallback   *fallback.Manager
	skills     *skills.Registry
	dispatcher *tools.Dispatcher
	logger     telemetry.Logger
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New constructs an Executor. skillRegistry may be nil: with no skill
// registry attached, the executor still classifies intent and returns
// SUCCESS with a warning. dispatcher is unused in that case.
func New(registry *providerregistry.Registry, fb *fallback.Manager, skillRegistry *skills.Registry, dispatcher *tools.Dispatcher, opts ...Option) *Executor {
	e := &Executor{
		registry:   registry,
		fallback:   fb,
		skills:     skillRegistry,
		dispatcher: dispatcher,
		logger:     telemetry.NewNoopLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is a single execute() call's input.
type Request struct {
	UserInput        string
	ProfileID        *string
	RoutingProfile   model.RoutingProfile
	SkipConfirmation bool
}

// Execute runs the full pipeline and always returns a non-nil Receipt, even
// on catastrophic failure — this is the central catch-all boundary.
func (e *Executor) Execute(ctx context.Context, req Request) (r *model.Receipt) {
	receipt := &model.Receipt{
		ReceiptID:    uuid.New().String(),
		TimestampUTC: e.now().UTC(),
		ProfileID:    req.ProfileID,
		Status:       model.StatusFailed,
		UserInput:    req.UserInput,
	}

	defer func() {
		if rec := recover(); rec != nil {
			receipt.Status = model.StatusFailed
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("panic: %v", rec))
			e.logger.Error(ctx, "executor recovered from panic", "receipt_id", receipt.ReceiptID, "panic", rec)
		}
		r = receipt
	}()

	intent, ok := e.classify(ctx, receipt, req.RoutingProfile, req.UserInput)
	if !ok {
		receipt.Status = model.StatusFailed
		e.logger.Warn(ctx, "intent classification exhausted all models", "receipt_id", receipt.ReceiptID)
		return receipt
	}
	receipt.IntentFinal = &intent
	e.logger.Info(ctx, "intent classified", "receipt_id", receipt.ReceiptID, "intent_type", string(intent.Type))

	e.dispatchSkill(ctx, receipt, intent, req.SkipConfirmation)
	return receipt
}

// classify runs the attempt loop and returns the validated intent, or
// ok=false if every model in the chain was exhausted.
func (e *Executor) classify(ctx context.Context, receipt *model.Receipt, profile model.RoutingProfile, userInput string) (model.Intent, bool) {
	chain := e.fallback.Chain(profile, model.JobIntentRouting)
	if len(chain) == 0 {
		receipt.Errors = append(receipt.Errors, "no model chain configured for profile")
		return model.Intent{}, false
	}
	current := chain[0]

	for {
		adapter, found := e.registry.Get(current.Provider)
		// A provider marked unavailable by the registry's on-demand health
		// cache is skipped before an attempt is even made, recording a
		// synthetic PROVIDER_DOWN entry so the fallback budget still
		// accounts for it.
		if !found || !e.registry.IsAvailable(current.Provider) {
			e.recordAttempt(receipt, current, false, model.TriggerProviderDown, nil)
			decision := e.fallback.Decide(model.TriggerProviderDown, receipt.ModelsAttempted, profile, model.JobIntentRouting)
			if decision.Kind == fallback.DecisionFail {
				receipt.Errors = append(receipt.Errors, "fallback exhausted: "+decision.Reason)
				return model.Intent{}, false
			}
			current = decision.Next
			continue
		}

		attemptN := countAttempts(receipt.ModelsAttempted, current)
		prompt := basePrompt + "\n\n" + userInput
		if attemptN >= 1 {
			prompt += repairSuffix
		}

		start := e.now()
		resp, err := adapter.Complete(ctx, provider.CompleteRequest{
			Messages:    []provider.Message{{Role: "user", Content: prompt}},
			Model:       current.Model,
			Temperature: 0.3,
			JSONMode:    true,
		})
		latency := e.now().Sub(start).Milliseconds()

		if err != nil {
			trigger := classifyProviderError(err)
			e.recordAttempt(receipt, current, false, trigger, &latency)
			if trigger == model.TriggerProviderDown {
				receipt.Errors = append(receipt.Errors, err.Error())
			}
			decision := e.fallback.Decide(trigger, receipt.ModelsAttempted, profile, model.JobIntentRouting)
			if decision.Kind == fallback.DecisionFail {
				receipt.Errors = append(receipt.Errors, "fallback exhausted: "+decision.Reason)
				return model.Intent{}, false
			}
			current = decision.Next
			continue
		}

		norm := normalizer.Normalize(resp.Content)
		if !norm.Success {
			e.recordAttempt(receipt, current, false, model.TriggerInvalidJSON, &latency)
			decision := e.fallback.Decide(model.TriggerInvalidJSON, receipt.ModelsAttempted, profile, model.JobIntentRouting)
			if decision.Kind == fallback.DecisionFail {
				receipt.Errors = append(receipt.Errors, "fallback exhausted: "+decision.Reason)
				return model.Intent{}, false
			}
			current = decision.Next
			continue
		}

		val := validator.ValidateIntent(norm.Data)
		if !val.Valid {
			e.recordAttempt(receipt, current, false, model.TriggerValidationError, &latency)
			decision := e.fallback.Decide(model.TriggerValidationError, receipt.ModelsAttempted, profile, model.JobIntentRouting)
			if decision.Kind == fallback.DecisionFail {
				receipt.Errors = append(receipt.Errors, "fallback exhausted: "+decision.Reason)
				return model.Intent{}, false
			}
			current = decision.Next
			continue
		}

		e.recordAttempt(receipt, current, true, "", &latency)
		return *val.Intent, true
	}
}

func (e *Executor) recordAttempt(receipt *model.Receipt, key model.ModelKey, success bool, trigger model.FallbackTrigger, latencyMS *int64) {
	attempt := model.ModelAttempt{
		Provider:      key.Provider,
		Model:         key.Model,
		AttemptNumber: countAttempts(receipt.ModelsAttempted, key) + 1,
		Success:       success,
		LatencyMS:     latencyMS,
		Timestamp:     e.now().UTC(),
	}
	if trigger != "" {
		t := trigger
		attempt.FallbackTrigger = &t
	}
	receipt.ModelsAttempted = append(receipt.ModelsAttempted, attempt)
}

func countAttempts(attempts []model.ModelAttempt, key model.ModelKey) int {
	n := 0
	for _, a := range attempts {
		if a.Provider == key.Provider && a.Model == key.Model {
			n++
		}
	}
	return n
}

// classifyProviderError maps a provider-layer error into the
// model.FallbackTrigger taxonomy. Anything unclassified is treated as
// PROVIDER_DOWN, the catch-all branch.
func classifyProviderError(err error) model.FallbackTrigger {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.TriggerTimeout
	}
	if provider.IsRateLimited(err) {
		return model.TriggerRateLimit
	}
	return model.TriggerProviderDown
}

// dispatchSkill resolves a skill by intent type, runs it, and folds its
// outcome into the receipt. Status rule: if the skill itself completed
// (err == nil), SUCCESS — unless it left a confirmation pending without
// ever mutating anything, in which case PENDING_CONFIRM; if the skill
// itself failed, PARTIAL when at least one of its tool calls still
// succeeded, else FAILED.
func (e *Executor) dispatchSkill(ctx context.Context, receipt *model.Receipt, intent model.Intent, skipConfirmation bool) {
	if e.skills == nil {
		receipt.Status = model.StatusSuccess
		receipt.Warnings = append(receipt.Warnings, "no skill registry attached; intent classified only")
		return
	}

	skill, ok := e.skills.Get(intent.Type)
	if !ok {
		receipt.Status = model.StatusSuccess
		receipt.Warnings = append(receipt.Warnings, "no skill registered for intent type "+string(intent.Type))
		return
	}

	result, err := skill.Execute(ctx, skills.Context{Intent: intent, Dispatcher: e.dispatcher}, skipConfirmation)
	receipt.ToolCalls = append(receipt.ToolCalls, result.ToolCalls...)
	receipt.Changes = append(receipt.Changes, result.Changes...)
	receipt.Undo = append(receipt.Undo, result.Undo...)
	if result.Summary != "" {
		receipt.Warnings = append(receipt.Warnings, result.Summary)
	}

	if err != nil {
		receipt.Errors = append(receipt.Errors, err.Error())
		if anyToolCallOK(result.ToolCalls) {
			receipt.Status = model.StatusPartial
		} else {
			receipt.Status = model.StatusFailed
		}
		return
	}

	receipt.Status = finalStatus(result.ToolCalls, len(result.Changes) > 0)
}

func anyToolCallOK(calls []model.ToolCall) bool {
	for _, c := range calls {
		if c.Status == model.ToolCallOK {
			return true
		}
	}
	return false
}

// finalStatus covers the successful-skill path: SUCCESS, unless the skill
// left a tool call pending confirmation without any mutation having taken
// place yet, in which case the receipt as a whole is PENDING_CONFIRM.
func finalStatus(calls []model.ToolCall, mutated bool) model.ReceiptStatus {
	if len(calls) == 0 {
		return model.StatusSuccess
	}
	anyPending := false
	for _, c := range calls {
		if c.Status == model.ToolCallPendingConfirm {
			anyPending = true
			break
		}
	}
	if anyPending && !mutated {
		return model.StatusPendingConfirm
	}
	return model.StatusSuccess
}

// deriveToolCallStatus recomputes a receipt's status directly from a flat
// list of tool calls, independent of any skill-level success signal. Undo
// and resume both mutate a receipt's tool calls outside the normal
// classify-then-dispatch-skill path, so they recompute status this way
// instead of going through finalStatus.
func deriveToolCallStatus(calls []model.ToolCall) model.ReceiptStatus {
	if len(calls) == 0 {
		return model.StatusSuccess
	}
	anyOK, anyFailed, anyPending := false, false, false
	for _, c := range calls {
		switch c.Status {
		case model.ToolCallOK:
			anyOK = true
		case model.ToolCallFailed:
			anyFailed = true
		case model.ToolCallPendingConfirm:
			anyPending = true
		}
	}
	switch {
	case anyPending:
		return model.StatusPendingConfirm
	case anyOK && anyFailed:
		return model.StatusPartial
	case anyFailed:
		return model.StatusFailed
	default:
		return model.StatusSuccess
	}
}
