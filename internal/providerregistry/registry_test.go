package providerregistry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kparnell/intentd/internal/provider"
	"github.com/kparnell/intentd/internal/providerregistry"
)

type fakeAdapter struct {
	name    string
	healthy bool
	closed  bool
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Complete(ctx context.Context, req provider.CompleteRequest) (provider.CompleteResponse, error) {
	return provider.CompleteResponse{Provider: f.name}, nil
}
func (f *fakeAdapter) HealthCheck(ctx context.Context) (provider.HealthStatus, error) {
	return provider.HealthStatus{Healthy: f.healthy}, nil
}
func (f *fakeAdapter) Capabilities(model string) provider.Capabilities { return provider.Capabilities{} }
func (f *fakeAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"model-a"}, nil
}
func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	r := providerregistry.New()
	a := &fakeAdapter{name: "anthropic", healthy: true}
	r.Register(a)

	got, ok := r.Get("anthropic")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Contains(t, r.List(), "anthropic")
}

func TestCheckHealthCachesResult(t *testing.T) {
	r := providerregistry.New()
	a := &fakeAdapter{name: "openai", healthy: true}
	r.Register(a)

	h, err := r.CheckHealth(context.Background(), "openai")
	require.NoError(t, err)
	assert.True(t, h.Healthy)

	cached, ok := r.CachedHealth("openai")
	require.True(t, ok)
	assert.True(t, cached.Healthy)
}

func TestIsAvailableWithoutProbe(t *testing.T) {
	r := providerregistry.New()
	r.Register(&fakeAdapter{name: "bedrock", healthy: true})
	assert.True(t, r.IsAvailable("bedrock"))
}

func TestIsAvailableReflectsUnhealthyCache(t *testing.T) {
	r := providerregistry.New(providerregistry.WithStalenessThreshold(time.Hour))
	a := &fakeAdapter{name: "ollama", healthy: false}
	r.Register(a)

	_, err := r.CheckHealth(context.Background(), "ollama")
	require.NoError(t, err)
	assert.False(t, r.IsAvailable("ollama"))
}

func TestCheckAllHealth(t *testing.T) {
	r := providerregistry.New()
	r.Register(&fakeAdapter{name: "p1", healthy: true})
	r.Register(&fakeAdapter{name: "p2", healthy: false})

	results := r.CheckAllHealth(context.Background())
	require.Len(t, results, 2)
	assert.True(t, results["p1"].Healthy)
	assert.False(t, results["p2"].Healthy)
}

func TestUnregisterClosesAdapter(t *testing.T) {
	r := providerregistry.New()
	a := &fakeAdapter{name: "p1"}
	r.Register(a)

	require.NoError(t, r.Unregister("p1"))
	assert.True(t, a.closed)
	_, ok := r.Get("p1")
	assert.False(t, ok)
}

func TestCloseAll(t *testing.T) {
	r := providerregistry.New()
	a1 := &fakeAdapter{name: "p1"}
	a2 := &fakeAdapter{name: "p2"}
	r.Register(a1)
	r.Register(a2)

	require.NoError(t, r.CloseAll())
	assert.True(t, a1.closed)
	assert.True(t, a2.closed)
	assert.Empty(t, r.List())
}

func TestListModels(t *testing.T) {
	r := providerregistry.New()
	r.Register(&fakeAdapter{name: "p1"})

	models, err := r.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"model-a"}, models["p1"])
}
