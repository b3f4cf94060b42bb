// AngelaMos | 2026
// handler_test.go

package customer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

func asCustomer(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &identity.Principal{Kind: identity.KindCustomer, ID: id, Active: true}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

func anonymous(next http.Handler) http.Handler { return next }

func newRouter(h *Handler, guard func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r, guard)
	return r
}

func TestHandlerGetMe(t *testing.T) {
	repo, mock := newMockRepo(t)
	h := NewHandler(NewService(repo))

	mock.ExpectQuery("FROM customers").
		WithArgs(int64(11)).
		WillReturnRows(customerRows().
			AddRow(int64(11), "Cee", "c@x.com", "digest", true, created, created, nil))

	rec := httptest.NewRecorder()
	newRouter(h, asCustomer(11)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/customers/me", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"c@x.com"`)
	assert.NotContains(t, rec.Body.String(), "digest")
}

func TestHandlerRequiresCustomerPrincipal(t *testing.T) {
	h := NewHandler(NewService(nil))

	rec := httptest.NewRecorder()
	newRouter(h, anonymous).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/customers/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_REQUIRED")
}

func TestHandlerUpdateMeValidation(t *testing.T) {
	h := NewHandler(NewService(nil))
	router := newRouter(h, asCustomer(11))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"name":`},
		{"name too long", `{"name":"` + strings.Repeat("x", 101) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/customers/me", strings.NewReader(tt.body))
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		})
	}
}
