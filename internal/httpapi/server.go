// Package httpapi exposes the intent-execution engine over plain net/http.
// No router library is pulled in: http.ServeMux's Go 1.22+ method+path
// patterns cover every route this surface needs, and the transport is
// treated as a swappable external collaborator rather than a core engine
// concern.
package httpapi

import (
	"net/http"
	"time"

	"github.com/kparnell/intentd/internal/executor"
	"github.com/kparnell/intentd/internal/providerregistry"
	"github.com/kparnell/intentd/internal/receipts"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/telemetry"
	"github.com/kparnell/intentd/internal/tools"
)

// Version is the build-reported version string, overridable via
// -ldflags "-X .../internal/httpapi.Version=...".
var Version = "dev"

// Deps wires every collaborator the HTTP surface needs. All fields are
// required except Logger, which defaults to a no-op, and Now, which defaults
// to time.Now.
type Deps struct {
	AppName   string
	APIToken  string
	Executor  *executor.Executor
	Receipts  receipts.Store
	Providers *providerregistry.Registry
	Skills    *skills.Registry
	Tools     *tools.Registry
	Logger    telemetry.Logger
	Now       func() time.Time
}

// NewServer builds the http.Handler for the entire surface: unauthenticated
// health/introspection routes plus the bearer-gated /v1/* API.
func NewServer(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = telemetry.NewNoopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /version", h.handleVersion)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/providers", h.handleProviders)
	mux.HandleFunc("GET /api/skills", h.handleSkills)
	mux.HandleFunc("GET /api/tools", h.handleTools)

	mux.Handle("POST /v1/execute", requireAuth(deps.APIToken, http.HandlerFunc(h.handleExecute)))
	mux.Handle("GET /v1/receipts", requireAuth(deps.APIToken, http.HandlerFunc(h.handleListReceipts)))
	mux.Handle("GET /v1/receipts/{id}", requireAuth(deps.APIToken, http.HandlerFunc(h.handleGetReceipt)))
	mux.Handle("POST /v1/receipts/{id}/undo", requireAuth(deps.APIToken, http.HandlerFunc(h.handleUndo)))
	mux.Handle("POST /v1/receipts/{id}/resume", requireAuth(deps.APIToken, http.HandlerFunc(h.handleResume)))

	return withLogging(deps.Logger, mux)
}

type handler struct {
	deps Deps
}

// withLogging records method, path, status, and latency for every request.
func withLogging(logger telemetry.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireAuth gates a handler behind Authorization: Bearer <token>. An empty
// configured token disables auth entirely (dev mode).
func requireAuth(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != token {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version, "app_name": h.deps.AppName})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]any{
		"app_name":  h.deps.AppName,
		"executor":  h.deps.Executor != nil,
		"providers": h.deps.Providers.CheckAllHealth(ctx),
	}
	if h.deps.Receipts != nil {
		if n, err := h.deps.Receipts.Count(ctx, ""); err == nil {
			status["receipt_count"] = n
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": h.deps.Providers.List()})
}

func (h *handler) handleSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"skills": h.deps.Skills.List()})
}

func (h *handler) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.deps.Tools.List()})
}
