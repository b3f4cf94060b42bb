// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func newReady(version string, deps ...Dependency) *Handler {
	h := NewHandler(version, deps...)
	h.SetReady(true)
	return h
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadinessAllHealthy(t *testing.T) {
	h := newReady("1.2.0",
		Dependency{Name: "database", Checker: CheckerFunc(ok), Critical: true},
		Dependency{Name: "redis", Checker: CheckerFunc(ok)},
	)

	rec := serve(h, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, "database", resp.Checks[0].Name)
	assert.True(t, resp.Checks[0].Critical)
	assert.Equal(t, "redis", resp.Checks[1].Name)
}

func TestReadinessNonCriticalFailureDegrades(t *testing.T) {
	h := newReady("1.2.0",
		Dependency{Name: "database", Checker: CheckerFunc(ok), Critical: true},
		Dependency{Name: "redis", Checker: CheckerFunc(down)},
		Dependency{Name: "kafka"},
	)

	rec := serve(h, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	require.Len(t, resp.Checks, 3)
	assert.True(t, resp.Checks[0].Healthy)
	assert.False(t, resp.Checks[1].Healthy)
	assert.Equal(t, "ping failed", resp.Checks[1].Message)
	assert.False(t, resp.Checks[2].Healthy)
	assert.Equal(t, "kafka checker not configured", resp.Checks[2].Message)
}

func TestReadinessCriticalFailureUnavailable(t *testing.T) {
	h := newReady("1.2.0",
		Dependency{Name: "database", Checker: CheckerFunc(down), Critical: true},
		Dependency{Name: "redis", Checker: CheckerFunc(ok)},
	)

	rec := serve(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Status)
}

func TestLivenessReportsVersion(t *testing.T) {
	rec := serve(NewHandler("1.2.0"), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1.2.0", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler("1.2.0", Dependency{Name: "database", Checker: CheckerFunc(ok)})

	assert.Equal(t, http.StatusOK, serve(h, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h, "/readyz").Code)

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)
	assert.Equal(t, http.StatusOK, serve(h, "/healthz").Code)

	h.SetShutdown(true)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/livez").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/readyz").Code)
}
