// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/storefront/backend/internal/core"
	"github.com/carterperez-dev/storefront/backend/internal/customer"
	"github.com/carterperez-dev/storefront/backend/internal/identity"
)

// AccountService flips principal activation and revokes sessions on
// deactivation.
type AccountService interface {
	SetActive(
		ctx context.Context,
		kind identity.Kind,
		id int64,
		active bool,
	) (*identity.Principal, error)
}

type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id int64) (*customer.Customer, error)
	ListCustomers(
		ctx context.Context,
		params customer.ListCustomersParams,
	) ([]customer.Customer, int, error)
}

type Handler struct {
	admins     *Service
	customers  CustomerDirectory
	accounts   AccountService
	validator  *validator.Validate
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
}

type HandlerConfig struct {
	Admins     *Service
	Customers  CustomerDirectory
	Accounts   AccountService
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		admins:     cfg.Admins,
		customers:  cfg.Customers,
		accounts:   cfg.Accounts,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	requireAdmin func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin)

		r.Get("/me", h.GetMe)

		r.Get("/customers", h.ListCustomers)
		r.Get("/customers/{customerID}", h.GetCustomer)
		r.Put("/customers/{customerID}/active", h.SetCustomerActive)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.AdminFrom(r.Context())
	if !ok {
		core.JSONError(w, core.ErrTokenRequired)
		return
	}

	admin, err := h.admins.GetAdmin(r.Context(), principal.ID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToAdminResponse(admin))
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	params := customer.ListCustomersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			core.BadRequest(w, "active must be a boolean")
			return
		}
		params.Active = &active
	}
	params.Normalize()

	customers, total, err := h.customers.ListCustomers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		customer.ToCustomerResponseList(customers),
		params.Page,
		params.PageSize,
		total,
	)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := customerIDParam(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	c, err := h.customers.GetCustomer(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, customer.ToCustomerResponse(c))
}

// SetCustomerActive deactivating a customer also burns every refresh
// family they hold; outstanding access tokens die at the guard.
func (h *Handler) SetCustomerActive(w http.ResponseWriter, r *http.Request) {
	id, err := customerIDParam(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if _, err := h.accounts.SetActive(
		r.Context(),
		identity.KindCustomer,
		id,
		*req.Active,
	); err != nil {
		core.JSONError(w, err)
		return
	}

	c, err := h.customers.GetCustomer(r.Context(), id)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, customer.ToCustomerResponse(c))
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealthy := true
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			dbHealthy = false
		}
	}

	redisHealthy := true
	if h.redisPing != nil {
		if err := h.redisPing(ctx); err != nil {
			redisHealthy = false
		}
	}

	core.OK(w, SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntimeStats(),
	})
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func customerIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "customerID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid customer id %q", raw)
	}
	return id, nil
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
