package skills

import "github.com/kparnell/intentd/internal/model"

// Registry is a closed intent-type → skill lookup. It is deliberately a flat
// map rather than a dispatch hierarchy, resolving behavior by a fixed key
// rather than by type-switching over an interface chain.
type Registry struct {
	skills map[model.IntentType]Skill
}

// NewRegistry constructs an empty skill registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[model.IntentType]Skill)}
}

// Register binds a skill to its IntentType. A later call for the same
// IntentType replaces the earlier binding.
func (r *Registry) Register(s Skill) {
	r.skills[s.IntentType()] = s
}

// Get resolves the skill for an intent type. UNKNOWN never resolves: there
// is no skill for it by construction, since no program is ever assigned to
// run for an unclassified intent.
func (r *Registry) Get(t model.IntentType) (Skill, bool) {
	s, ok := r.skills[t]
	return s, ok
}

// List returns every registered intent type, in no particular order.
func (r *Registry) List() []model.IntentType {
	types := make([]model.IntentType, 0, len(r.skills))
	for t := range r.skills {
		types = append(types, t)
	}
	return types
}
