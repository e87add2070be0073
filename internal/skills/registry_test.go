package skills_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/skills"
)

func TestRegistryResolvesRegisteredSkill(t *testing.T) {
	reg := skills.NewRegistry()
	reg.Register(skills.NewCaptureTasks())

	got, ok := reg.Get(model.IntentCaptureTasks)
	assert.True(t, ok)
	assert.Equal(t, model.IntentCaptureTasks, got.IntentType())
}

func TestRegistryUnknownIntentNeverResolves(t *testing.T) {
	reg := skills.NewRegistry()
	reg.Register(skills.NewCaptureTasks())
	reg.Register(skills.NewBuildWorkflow())

	_, ok := reg.Get(model.IntentUnknown)
	assert.False(t, ok)
}

func TestRegistryLaterRegistrationReplacesEarlier(t *testing.T) {
	reg := skills.NewRegistry()
	first := skills.NewPlanDay()
	reg.Register(first)
	reg.Register(skills.NewPlanDay())

	got, ok := reg.Get(model.IntentPlanDay)
	assert.True(t, ok)
	assert.Equal(t, model.IntentPlanDay, got.IntentType())
}
