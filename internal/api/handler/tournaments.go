package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/tournament"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type tournamentRequest struct {
	simParams
	Format string        `json:"format,omitempty"`
	Pots   [][]teamInput `json:"pots,omitempty"`
}

func runKey(id string) string { return cache.Key("run", id) }

// CreateTournament plays a full tournament.
// @Summary Run a tournament
// @Description Plays a complete classic (groups + knockout) or keys (pot-seeded knockout) tournament. The run is cached, archived when a database is configured, and announced as a run.completed event.
// @Tags tournaments
// @Accept json
// @Produce json
// @Success 201 {object} tournament.Run
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Router /tournaments [post]
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if !decode(w, r, &req) {
		return
	}
	format, err := tournament.ParseFormat(req.Format)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be classic or keys", err.Error())
		return
	}
	pots, err := h.resolvePots(req.Pots)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	eng, seed, ok := h.engineFor(w, req.simParams)
	if !ok {
		return
	}

	var run *tournament.Run
	if format == tournament.FormatKeys {
		run, err = tournament.RunKeys(r.Context(), eng, pots, h.logger)
	} else {
		run, err = tournament.RunClassic(r.Context(), eng, pots, h.logger)
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, "TOURNAMENT_FAILED", "Tournament could not be completed", err.Error())
		return
	}
	run.Seed = seed

	data, err := json.Marshal(run)
	if err != nil {
		h.internalError(w, "ENCODE_ERROR", "Failed to encode run", err)
		return
	}
	etag := h.cache.Set(runKey(run.ID), data, cache.TTLRun)

	persisted := false
	if h.store != nil {
		if err := h.store.SaveRun(r.Context(), run); err != nil {
			h.logger.Error("Failed to archive run", "run", run.ID, "error", err)
		} else {
			persisted = true
			h.cache.DeletePrefix("runs:")
		}
	}
	if err := h.pub.Publish(r.Context(), events.RunCompleted(run)); err != nil {
		h.logger.Warn("Failed to publish run event", "run", run.ID, "error", err)
	}

	h.logger.Info("Tournament played", "summary", run.Summary(), "persisted", persisted)
	w.Header().Set("X-Run-Persisted", strconv.FormatBool(persisted))
	respond.WriteCreated(w, data, etag, "/api/v1/tournaments/"+run.ID)
}

// GetTournament returns a played run.
// @Summary Get a tournament run
// @Description Returns a run from the cache, or from the archive when a database is configured.
// @Tags tournaments
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} tournament.Run
// @Failure 404 {object} respond.ErrorResponse
// @Router /tournaments/{id} [get]
func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cacheKey := runKey(id)
	ttl := cache.TTLRun

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	if h.store == nil {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Run "+id+" not found")
		return
	}
	raw, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, db.ErrRunNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Run "+id+" not found")
		return
	}
	if err != nil {
		h.internalError(w, "DB_ERROR", "Failed to load run "+id, err)
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, raw, etag, ttl, false)
}

// ListTournaments returns archived runs, newest first.
// @Summary List archived runs
// @Description Lists archived runs newest first. Requires a database.
// @Tags tournaments
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} db.RunSummary
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /tournaments [get]
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}

	cacheKey := cache.Key("runs", strconv.Itoa(limit), strconv.Itoa(offset))
	ttl := cache.TTLRunList
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	runs, err := h.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, "DB_ERROR", "Failed to list runs", err)
		return
	}
	data, err := json.Marshal(runs)
	if err != nil {
		h.internalError(w, "ENCODE_ERROR", "Failed to encode run list", err)
		return
	}
	etag := h.cache.Set(cacheKey, data, ttl)
	respond.WriteJSON(w, data, etag, ttl, false)
}

// ListChampions tallies archived champions.
// @Summary Champion leaderboard
// @Description Counts how often each team won across archived runs. Requires a database.
// @Tags tournaments
// @Produce json
// @Param limit query int false "Rows (max 100)"
// @Success 200 {array} db.ChampionCount
// @Failure 503 {object} respond.ErrorResponse
// @Router /tournaments/champions [get]
func (h *Handler) ListChampions(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	limit, _, ok := pagination(w, r)
	if !ok {
		return
	}
	counts, err := h.store.ChampionCounts(r.Context(), limit)
	if err != nil {
		h.internalError(w, "DB_ERROR", "Failed to count champions", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, counts)
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "ARCHIVE_DISABLED", "Run archive requires DATABASE_URL")
		return false
	}
	return true
}

func pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultListLimit, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_OFFSET", "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
