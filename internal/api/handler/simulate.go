package handler

import (
	"net/http"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/bracket"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

type pairRequest struct {
	simParams
	TeamA teamInput `json:"teamA"`
	TeamB teamInput `json:"teamB"`
}

// MatchResponse is a single regulation match.
type MatchResponse struct {
	Seed     uint64             `json:"seed"`
	Surprise int                `json:"surprise"`
	Match    engine.MatchResult `json:"match"`
}

// KnockoutResponse is a decided tie.
type KnockoutResponse struct {
	Seed     uint64         `json:"seed"`
	Surprise int            `json:"surprise"`
	Matchup  engine.Matchup `json:"matchup"`
}

func (h *Handler) decodePair(w http.ResponseWriter, r *http.Request) (*pairRequest, *engine.Engine, uint64, bool) {
	var req pairRequest
	if !decode(w, r, &req) {
		return nil, nil, 0, false
	}
	eng, seed, ok := h.engineFor(w, req.simParams)
	if !ok {
		return nil, nil, 0, false
	}
	return &req, eng, seed, true
}

// SimulateMatch plays one regulation match.
// @Summary Simulate a match
// @Description Plays one regulation match between two teams. Teams are catalogue names or inline stats.
// @Tags simulate
// @Accept json
// @Produce json
// @Success 200 {object} MatchResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /simulate/match [post]
func (h *Handler) SimulateMatch(w http.ResponseWriter, r *http.Request) {
	req, eng, seed, ok := h.decodePair(w, r)
	if !ok {
		return
	}
	a, b, err := h.resolvePair(req)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, MatchResponse{
		Seed:     seed,
		Surprise: eng.Surprise(),
		Match:    eng.SimulateMatch(a, b),
	})
}

// SimulateKnockout decides a tie with extra time and penalties as needed.
// @Summary Simulate a knockout tie
// @Description Plays regulation, extra time if level and a penalty shootout if still level.
// @Tags simulate
// @Accept json
// @Produce json
// @Success 200 {object} KnockoutResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /simulate/knockout [post]
func (h *Handler) SimulateKnockout(w http.ResponseWriter, r *http.Request) {
	req, eng, seed, ok := h.decodePair(w, r)
	if !ok {
		return
	}
	a, b, err := h.resolvePair(req)
	if err != nil {
		writeTeamError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, KnockoutResponse{
		Seed:     seed,
		Surprise: eng.Surprise(),
		Matchup:  eng.ResolveKnockout(a, b),
	})
}

type groupInput struct {
	Name  string      `json:"name"`
	Teams []teamInput `json:"teams"`
}

type groupsRequest struct {
	simParams
	Groups []groupInput `json:"groups"`
}

// GroupsResponse holds the played groups. Groups without exactly four
// teams are listed under Skipped.
type GroupsResponse struct {
	Seed     uint64               `json:"seed"`
	Surprise int                  `json:"surprise"`
	Results  []engine.GroupResult `json:"results"`
	Skipped  []string             `json:"skipped"`
}

// SimulateGroups plays round-robin groups.
// @Summary Simulate group stage
// @Description Plays every group of four as a round robin over three matchdays and returns ordered standings.
// @Tags simulate
// @Accept json
// @Produce json
// @Success 200 {object} GroupsResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /simulate/groups [post]
func (h *Handler) SimulateGroups(w http.ResponseWriter, r *http.Request) {
	var req groupsRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Groups) == 0 {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_GROUPS", "groups must not be empty")
		return
	}
	eng, seed, ok := h.engineFor(w, req.simParams)
	if !ok {
		return
	}

	groups := make([]engine.Group, len(req.Groups))
	entrants := make([]team.Pot, len(req.Groups))
	for i, g := range req.Groups {
		teams, err := h.resolveTeams(g.Teams)
		if err != nil {
			writeTeamError(w, err)
			return
		}
		name := g.Name
		if name == "" {
			name = bracket.GroupName(i)
		}
		groups[i] = engine.Group{Name: name, Teams: teams}
		entrants[i] = teams
	}
	// A club may appear once across the whole stage.
	if err := team.Validate(entrants); err != nil {
		writeTeamError(w, err)
		return
	}

	skipped := []string{}
	for _, g := range groups {
		if !g.Full() {
			skipped = append(skipped, g.Name)
			h.logger.Debug("Skipping incomplete group", "group", g.Name, "teams", len(g.Teams))
		}
	}

	respond.WriteJSONObject(w, http.StatusOK, GroupsResponse{
		Seed:     seed,
		Surprise: eng.Surprise(),
		Results:  eng.SimulateGroupStage(groups),
		Skipped:  skipped,
	})
}

type drawRequest struct {
	simParams
	Pots [][]teamInput `json:"pots,omitempty"`
}

// DrawResponse is a completed group draw.
type DrawResponse struct {
	Seed   uint64         `json:"seed"`
	Groups []engine.Group `json:"groups"`
}

// DrawGroups runs a full group draw.
// @Summary Draw groups
// @Description Seeds one group per Pot 1 team, then fills the groups from the remaining pots. Uses the catalogue when no pots are given.
// @Tags draw
// @Accept json
// @Produce json
// @Success 200 {object} DrawResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /draw/groups [post]
func (h *Handler) DrawGroups(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if !decode(w, r, &req) {
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

	groups, err := bracket.DrawGroups(eng.Source(), pots)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, "DRAW_FAILED", "Group draw failed", err.Error())
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, DrawResponse{Seed: seed, Groups: groups})
}
