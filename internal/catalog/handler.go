// AngelaMos | 2026
// handler.go

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes mounts the public catalog surface. optionalCustomer
// attaches a customer when the caller presents a valid token and lets
// anonymous callers through otherwise.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	optionalCustomer func(http.Handler) http.Handler,
) {
	r.Route("/catalog", func(r chi.Router) {
		r.Use(optionalCustomer)
		r.Get("/ping", h.Ping)
	})
}

type PingResponse struct {
	Status     string `json:"status"`
	Anonymous  bool   `json:"anonymous"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	resp := PingResponse{Status: "ok", Anonymous: true}

	if principal, ok := identity.CustomerFrom(r.Context()); ok {
		id := principal.ID
		resp.Anonymous = false
		resp.CustomerID = &id
	}

	core.OK(w, resp)
}
