package handler

import (
	"net/http"

	"github.com/albapepper/copa-sim/internal/api/respond"
)

// RecentEvents lists the latest lifecycle events, newest first.
// @Summary Recent events
// @Description Latest run, odds and prune events kept in memory by this server, newest first.
// @Tags events
// @Produce json
// @Param limit query int false "Rows (max 100)"
// @Success 200 {array} events.Event
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /events [get]
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.recent == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "EVENTS_DISABLED", "Event feed is not enabled")
		return
	}
	limit, _, ok := pagination(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respond.WriteJSONObject(w, http.StatusOK, h.recent.Recent(limit))
}
