// AngelaMos | 2026
// handler.go

package customer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	requireCustomer func(http.Handler) http.Handler,
) {
	r.Route("/customers", func(r chi.Router) {
		r.Use(requireCustomer)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.CustomerFrom(r.Context())
	if !ok {
		core.JSONError(w, core.ErrTokenRequired)
		return
	}

	customer, err := h.service.GetMe(r.Context(), principal.ID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToCustomerResponse(customer))
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.CustomerFrom(r.Context())
	if !ok {
		core.JSONError(w, core.ErrTokenRequired)
		return
	}

	var req UpdateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	customer, err := h.service.UpdateMe(r.Context(), principal.ID, req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToCustomerResponse(customer))
}
