// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 5 * time.Second

const (
	statusOK           = "ok"
	statusDegraded     = "degraded"
	statusUnavailable  = "unavailable"
	statusNotReady     = "not_ready"
	statusShuttingDown = "shutting_down"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a plain ping function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Dependency is something readiness pings. A failing Critical dependency
// takes the instance out of rotation; any other failure only marks it
// degraded, which suits Redis since the rate limiters fall back locally.
type Dependency struct {
	Name     string
	Checker  Checker
	Critical bool
}

type Handler struct {
	deps      []Dependency
	version   string
	startedAt time.Time
	ready     atomic.Bool
	shutdown  atomic.Bool
}

// NewHandler starts not ready; the server flips readiness once it is
// accepting connections.
func NewHandler(version string, deps ...Dependency) *Handler {
	return &Handler{
		deps:      deps,
		version:   version,
		startedAt: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	}

	writeStatus(w, http.StatusOK, StatusResponse{
		Status:  statusOK,
		Version: h.version,
		Uptime:  time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusShuttingDown})
		return
	case !h.ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: statusNotReady})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := h.runHealthChecks(ctx)
	status, code := summarize(h.deps, checks)

	writeStatus(w, code, ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}

// runHealthChecks pings every dependency concurrently. A failing check
// never cancels the others, so each slot is always filled.
func (h *Handler) runHealthChecks(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.deps))

	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			checks[i] = check(ctx, dep)
			return nil
		})
	}
	//nolint:errcheck // checks never return errors
	_ = g.Wait()

	return checks
}

func summarize(deps []Dependency, checks []HealthCheck) (string, int) {
	status := statusOK
	for i, c := range checks {
		if c.Healthy {
			continue
		}
		if deps[i].Critical {
			return statusUnavailable, http.StatusServiceUnavailable
		}
		status = statusDegraded
	}
	return status, http.StatusOK
}

func check(ctx context.Context, dep Dependency) HealthCheck {
	result := HealthCheck{
		Name:     dep.Name,
		Healthy:  true,
		Critical: dep.Critical,
	}

	if dep.Checker == nil {
		result.Healthy = false
		result.Message = dep.Name + " checker not configured"
		return result
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	result.Latency = time.Since(start).String()

	if err != nil {
		slog.WarnContext(ctx, "readiness check failed",
			"dependency", dep.Name,
			"critical", dep.Critical,
			"error", err,
		)
		result.Healthy = false
		result.Message = "ping failed"
	}

	return result
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
