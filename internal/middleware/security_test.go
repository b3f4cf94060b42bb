// AngelaMos | 2026
// security_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/storefront/backend/internal/config"
)

func TestCORSExposesConfiguredCSRFHeader(t *testing.T) {
	cfg := config.CORSConfig{
		AllowedOrigins:   []string{"https://shop.example"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "configured", header: "x-store-csrf", want: "X-Store-Csrf"},
		{name: "default", header: "", want: "X-Csrf-Token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(cfg, tt.header)(ok)

			req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
			req.Header.Set("Origin", "https://shop.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			exposed := rec.Header().Get("Access-Control-Expose-Headers")
			assert.Contains(t, exposed, tt.want)
			assert.Contains(t, exposed, http.CanonicalHeaderKey(RequestIDHeader))
		})
	}
}
