// Package handler provides HTTP handlers for all API endpoints.
// Simulations run in-process per request; archived runs come from Postgres
// as stored JSON and are passed through byte for byte.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/config"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/team"
	"github.com/albapepper/copa-sim/internal/tournament"
)

// RunStore is the run archive. *db.Pool implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run *tournament.Run) error
	GetRun(ctx context.Context, id string) ([]byte, error)
	ListRuns(ctx context.Context, limit, offset int) ([]db.RunSummary, error)
	ChampionCounts(ctx context.Context, limit int) ([]db.ChampionCount, error)
	HealthCheck(ctx context.Context) error
}

// Deps are the handler's collaborators. Store may be nil when no database
// is configured; Publisher nil means events are dropped. Recent, when set,
// backs the event feed.
type Deps struct {
	Store     RunStore
	Cache     *cache.Cache
	Config    *config.Config
	Pots      []team.Pot
	Publisher events.Publisher
	Recent    *events.Memory
	Logger    *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store   RunStore
	cache   *cache.Cache
	cfg     *config.Config
	pots    []team.Pot
	pub     events.Publisher
	recent  *events.Memory
	logger  *slog.Logger
	workers int
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	pub := d.Publisher
	if pub == nil {
		pub = events.Nop{}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		store:   d.Store,
		cache:   d.Cache,
		cfg:     d.Config,
		pots:    d.Pots,
		pub:     pub,
		recent:  d.Recent,
		logger:  logger,
		workers: runtime.NumCPU(),
	}
}

// internalError logs err and sends a 500. The error text reaches the client
// only outside production.
func (h *Handler) internalError(w http.ResponseWriter, code, message string, err error) {
	h.logger.Error(message, "code", code, "error", err)
	detail := ""
	if !h.cfg.IsProduction() {
		detail = err.Error()
	}
	respond.WriteErrorDetail(w, http.StatusInternalServerError, code, message, detail)
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and enabled features.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":    "Copa Simulator API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"features": map[string]bool{
			"run_archive":  h.store != nil,
			"cache":        h.cfg.CacheEnabled,
			"rate_limited": h.cfg.RateLimitEnabled,
		},
		"defaults": map[string]any{
			"surprise": h.cfg.SurpriseLevel,
			"rng":      h.cfg.RNG,
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity. Reports "disabled" when no DATABASE_URL is set.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"database":  "disabled",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.store.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
