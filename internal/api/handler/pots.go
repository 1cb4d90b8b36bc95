package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/team"
)

// PotView is one pot as served by the API.
type PotView struct {
	Name  string       `json:"name"`
	Teams []*team.Team `json:"teams"`
}

// GetPots returns the team catalogue grouped by pot.
// @Summary List pots
// @Description Returns the team catalogue the server simulates with, grouped by pot.
// @Tags teams
// @Produce json
// @Success 200 {array} PotView
// @Router /pots [get]
func (h *Handler) GetPots(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "pots"
	ttl := cache.TTLPots

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	views := make([]PotView, len(h.pots))
	for i, p := range h.pots {
		views[i] = PotView{Name: fmt.Sprintf("Pot %d", i+1), Teams: p}
	}
	data, err := json.Marshal(views)
	if err != nil {
		h.internalError(w, "ENCODE_ERROR", "Failed to encode pots", err)
		return
	}

	etag := h.cache.Set(cacheKey, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}
