package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps an Adapter with a per-provider token bucket so a
// provider that is already answering with RATE_LIMIT is not hammered again
// within the same attempt loop. Grounded on
// features/model/middleware/ratelimit.go.
type RateLimited struct {
	inner   Adapter
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter allowing burst requests
// immediately and refilling at rps requests/second thereafter.
func NewRateLimited(inner Adapter, rps float64, burst int) *RateLimited {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Name() string { return r.inner.Name() }

func (r *RateLimited) Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return CompleteResponse{}, NewError(r.inner.Name(), "complete", 0, ErrorKindRateLimited, "", "local rate limit exceeded", true, err)
	}
	return r.inner.Complete(ctx, req)
}

func (r *RateLimited) HealthCheck(ctx context.Context) (HealthStatus, error) {
	return r.inner.HealthCheck(ctx)
}

func (r *RateLimited) Capabilities(model string) Capabilities { return r.inner.Capabilities(model) }

func (r *RateLimited) ListModels(ctx context.Context) ([]string, error) {
	return r.inner.ListModels(ctx)
}

func (r *RateLimited) Close() error { return r.inner.Close() }
