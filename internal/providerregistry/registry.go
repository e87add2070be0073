// Package providerregistry keeps the set of configured model providers and
// a cached view of their health, so the fallback manager can skip providers
// it already knows are down without probing them on every attempt.
//
// Collapsed from registry.HealthTracker (registry/health_tracker.go), which
// coordinates ping/pong health across a Pulse-replicated cluster. This
// engine runs as a single process with no distributed pool, so the health
// contract is kept as Health/IsAvailable, backed by a local RWMutex-guarded map
// refreshed by direct HealthCheck calls instead of a ticker-driven ping loop.
package providerregistry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kparnell/intentd/internal/provider"
	"github.com/kparnell/intentd/internal/telemetry"
)

// DefaultStalenessThreshold is how long a cached health result is trusted.
// Past it, IsAvailable treats the provider as available without probing.
const DefaultStalenessThreshold = 30 * time.Second

// Health is the derived health state for one registered provider.
type Health struct {
	Healthy            bool
	Detail             string
	LastChecked        time.Time
	StalenessThreshold time.Duration
}

func (h Health) stale(now time.Time) bool {
	if h.LastChecked.IsZero() {
		return true
	}
	return now.Sub(h.LastChecked) > h.StalenessThreshold
}

// Registry holds the configured provider.Adapter instances keyed by name and
// caches their last-known health.
type Registry struct {
	mu                 sync.RWMutex
	adapters           map[string]provider.Adapter
	health             map[string]Health
	stalenessThreshold time.Duration
	logger             telemetry.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStalenessThreshold overrides DefaultStalenessThreshold.
func WithStalenessThreshold(d time.Duration) Option {
	return func(r *Registry) { r.stalenessThreshold = d }
}

// WithLogger attaches a telemetry.Logger for health transition logging.
func WithLogger(l telemetry.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New constructs an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		adapters:           make(map[string]provider.Adapter),
		health:             make(map[string]Health),
		stalenessThreshold: DefaultStalenessThreshold,
		logger:             telemetry.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces an adapter under its own Name(). The adapter
// starts with no cached health until CheckHealth or CheckAllHealth runs.
func (r *Registry) Register(a provider.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
	delete(r.health, a.Name())
}

// Unregister removes a provider and closes its adapter.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	a, ok := r.adapters[name]
	if ok {
		delete(r.adapters, name)
		delete(r.health, name)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return a.Close()
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (provider.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// List returns the names of all registered providers in no particular order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// ListModels aggregates ListModels across every registered provider.
func (r *Registry) ListModels(ctx context.Context) (map[string][]string, error) {
	r.mu.RLock()
	adapters := make(map[string]provider.Adapter, len(r.adapters))
	for name, a := range r.adapters {
		adapters[name] = a
	}
	r.mu.RUnlock()

	out := make(map[string][]string, len(adapters))
	for name, a := range adapters {
		models, err := a.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("list models for %s: %w", name, err)
		}
		out[name] = models
	}
	return out, nil
}

// CheckHealth probes a single provider and updates the cached result.
func (r *Registry) CheckHealth(ctx context.Context, name string) (Health, error) {
	r.mu.RLock()
	a, ok := r.adapters[name]
	r.mu.RUnlock()
	if !ok {
		return Health{}, fmt.Errorf("providerregistry: unknown provider %q", name)
	}

	status, err := a.HealthCheck(ctx)
	now := time.Now()
	h := Health{
		Healthy:            err == nil && status.Healthy,
		Detail:             status.Detail,
		LastChecked:        now,
		StalenessThreshold: r.stalenessThreshold,
	}
	if err != nil {
		h.Detail = err.Error()
	}

	r.mu.Lock()
	prev, hadPrev := r.health[name]
	r.health[name] = h
	r.mu.Unlock()

	if hadPrev && prev.Healthy && !h.Healthy {
		r.logger.Warn(ctx, "provider became unhealthy", "provider", name, "detail", h.Detail)
	} else if hadPrev && !prev.Healthy && h.Healthy {
		r.logger.Info(ctx, "provider recovered", "provider", name)
	}

	return h, nil
}

// CheckAllHealth probes every registered provider concurrently and returns
// the aggregate result keyed by provider name.
func (r *Registry) CheckAllHealth(ctx context.Context) map[string]Health {
	names := r.List()
	results := make(map[string]Health, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			h, err := r.CheckHealth(ctx, name)
			if err != nil {
				return
			}
			mu.Lock()
			results[name] = h
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// CachedHealth returns the last health result recorded for name without
// probing, along with whether an entry exists at all.
func (r *Registry) CachedHealth(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.health[name]
	return h, ok
}

// IsAvailable reports whether a provider should be attempted right now. It
// trusts a fresh cached health result; a stale or missing one is treated as
// available so the fallback manager still gets a chance to probe it live via
// a real Complete call rather than being starved by a cache miss.
func (r *Registry) IsAvailable(name string) bool {
	h, ok := r.CachedHealth(name)
	if !ok {
		return true
	}
	if h.stale(time.Now()) {
		return true
	}
	return h.Healthy
}

// CloseAll closes every registered adapter and returns the first error
// encountered, if any, after attempting to close them all.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	adapters := make([]provider.Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.adapters = make(map[string]provider.Adapter)
	r.health = make(map[string]Health)
	r.mu.Unlock()

	var firstErr error
	for _, a := range adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
