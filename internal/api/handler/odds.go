package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/tournament"
)

const (
	defaultOddsRuns = 1000
	maxOddsRuns     = 20000
)

type oddsRequest struct {
	simParams
	Format string `json:"format,omitempty"`
	N      int    `json:"n,omitempty"`
}

// ComputeOdds runs a Monte-Carlo batch over the catalogue.
// @Summary Tournament odds
// @Description Plays n tournaments (default 1000, max 20000) and returns champion, finalist and semi-finalist counts per team. Seeded requests are cached.
// @Tags odds
// @Accept json
// @Produce json
// @Success 200 {object} tournament.Odds
// @Failure 400 {object} respond.ErrorResponse
// @Router /odds [post]
func (h *Handler) ComputeOdds(w http.ResponseWriter, r *http.Request) {
	var req oddsRequest
	if !decode(w, r, &req) {
		return
	}
	format, err := tournament.ParseFormat(req.Format)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_FORMAT", "format must be classic or keys", err.Error())
		return
	}
	n := req.N
	if n == 0 {
		n = defaultOddsRuns
	}
	if n < 1 || n > maxOddsRuns {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_RUNS", fmt.Sprintf("n must be between 1 and %d", maxOddsRuns))
		return
	}
	surprise := h.surprise(req.simParams)
	if err := engine.ValidateSurprise(surprise); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_SURPRISE", "surprise must be between 0 and 10", err.Error())
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = h.cfg.Seed
	}
	source := h.source(req.simParams)

	// Seeded batches replay identically for a fixed worker count.
	cacheKey := ""
	if seed != 0 {
		cacheKey = cache.Key("odds", string(format), source, fmt.Sprint(surprise), fmt.Sprint(seed), fmt.Sprint(n), fmt.Sprint(h.workers))
		if data, etag, ok := h.cache.Get(cacheKey); ok {
			if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
				respond.WriteNotModified(w, etag)
				return
			}
			respond.WriteJSON(w, data, etag, cache.TTLSeeded, true)
			return
		}
	}

	odds, err := tournament.Simulate(r.Context(), tournament.MonteCarloOptions{
		Pots:     h.pots,
		Format:   format,
		Surprise: surprise,
		Source:   source,
		Seed:     seed,
		N:        n,
		Workers:  h.workers,
		Logger:   h.logger,
	})
	if err != nil && r.Context().Err() != nil {
		h.logger.Debug("Odds request abandoned", "error", err)
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "ODDS_FAILED", "Monte-Carlo batch failed", err.Error())
		return
	}
	if err := h.pub.Publish(r.Context(), events.OddsCompleted(odds)); err != nil {
		h.logger.Warn("Failed to publish odds event", "error", err)
	}

	if cacheKey == "" {
		respond.WriteJSONObject(w, http.StatusOK, odds)
		return
	}
	data, err := json.Marshal(odds)
	if err != nil {
		h.internalError(w, "ENCODE_ERROR", "Failed to encode odds", err)
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLSeeded)
	respond.WriteJSON(w, data, etag, cache.TTLSeeded, false)
}
