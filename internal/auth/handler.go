// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
	"github.com/carterperez-dev/storefront/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	cookies   *CookieWriter
	validator *validator.Validate
}

func NewHandler(service *Service, cookies *CookieWriter) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	//nolint:errcheck // tag name and func are static
	_ = v.RegisterValidation("bcryptlen", validBcryptLength)

	return &Handler{
		service:   service,
		cookies:   cookies,
		validator: v,
	}
}

// validBcryptLength bounds the password in bytes; max counts runes and
// bcrypt rejects anything past 72 bytes.
func validBcryptLength(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= core.MaxPasswordBytes
}

// RegisterRoutes mounts /auth. credentialLimit wraps the endpoints that
// accept passwords or refresh secrets.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	guard *middleware.Guard,
	credentialLimit func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", h.CSRF)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			if credentialLimit != nil {
				r.Use(credentialLimit)
			}
			r.Post("/admin/register", h.RegisterAdmin)
			r.Post("/admin/login", h.login(identity.KindAdmin))
			r.Post("/customer/register", h.RegisterCustomer)
			r.Post("/customer/login", h.login(identity.KindCustomer))
			r.Post("/refresh", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin)
			r.Get("/admin/sessions", h.Sessions)
			r.Post("/admin/logout-all", h.LogoutAll)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireCustomer)
			r.Get("/customer/sessions", h.Sessions)
			r.Post("/customer/logout-all", h.LogoutAll)
		})
	})
}

func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminRegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.register(w, r, identity.KindAdmin, RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
}

func (h *Handler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.register(w, r, identity.KindCustomer, RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
}

func (h *Handler) register(
	w http.ResponseWriter,
	r *http.Request,
	kind identity.Kind,
	in RegisterInput,
) {
	session, err := h.service.Register(r.Context(), kind, in, clientMeta(r))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	core.Created(w, h.authResponse(session))
}

func (h *Handler) login(kind identity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !h.decode(w, r, &req) {
			return
		}

		session, err := h.service.Login(
			r.Context(),
			kind,
			req.Email,
			req.Password,
			clientMeta(r),
		)
		if err != nil {
			core.JSONError(w, err)
			return
		}

		h.cookies.SetSession(w, session)
		core.OK(w, h.authResponse(session))
	}
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	plaintext := RefreshTokenFromRequest(r)
	if plaintext == "" {
		core.JSONError(w, core.ErrInvalidRefreshToken)
		return
	}

	session, err := h.service.Refresh(r.Context(), plaintext, clientMeta(r))
	if err != nil {
		if isDeadRefresh(err) {
			h.cookies.Clear(w)
		}
		core.JSONError(w, err)
		return
	}

	h.cookies.SetSession(w, session)
	core.OK(w, h.tokenResponse(session))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if plaintext := RefreshTokenFromRequest(r); plaintext != "" {
		if err := h.service.Logout(r.Context(), plaintext, clientMeta(r)); err != nil {
			core.JSONError(w, err)
			return
		}
	}

	h.cookies.Clear(w)
	core.NoContent(w)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrTokenRequired)
		return
	}

	if _, err := h.service.LogoutAll(r.Context(), principal, clientMeta(r)); err != nil {
		core.JSONError(w, err)
		return
	}

	h.cookies.Clear(w)
	core.NoContent(w)
}

func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		core.JSONError(w, core.ErrTokenRequired)
		return
	}

	sessions, err := h.service.Sessions(
		r.Context(),
		principal,
		RefreshTokenFromRequest(r),
	)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, SessionsResponse{Sessions: sessions})
}

// CSRF hands the double-submit token to clients that cannot read cookies
// directly.
func (h *Handler) CSRF(w http.ResponseWriter, r *http.Request) {
	core.OK(w, CSRFResponse{Token: middleware.CSRFToken(r.Context())})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) authResponse(s *Session) AuthResponse {
	return AuthResponse{
		Principal: ToPrincipalResponse(s.Principal),
		Tokens:    h.tokenResponse(s),
	}
}

func (h *Handler) tokenResponse(s *Session) TokenResponse {
	return TokenResponse{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.service.jwt.AccessTTL() / time.Second),
		ExpiresAt:   s.AccessExpiresAt,
	}
}

func isDeadRefresh(err error) bool {
	return errors.Is(err, core.ErrInvalidRefreshToken) ||
		errors.Is(err, core.ErrRefreshTokenExpired) ||
		errors.Is(err, core.ErrRefreshTokenReuse) ||
		errors.Is(err, core.ErrAccountDeactivated) ||
		errors.Is(err, core.ErrNotFound)
}

func clientMeta(r *http.Request) ClientMeta {
	return ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
	}
}
