package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

const maxBodyBytes = 1 << 20

var errUnknownTeam = errors.New("unknown team")

// simParams are the knobs shared by every simulation request. Zero values
// fall back to the server defaults.
type simParams struct {
	Surprise *int   `json:"surprise,omitempty"`
	Seed     uint64 `json:"seed,omitempty"`
	Source   string `json:"source,omitempty"`
}

// teamInput names a catalogue team, or defines one inline when Stats is set.
type teamInput struct {
	Name  string      `json:"name"`
	Stats *team.Stats `json:"stats,omitempty"`
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// engineFor builds a fresh engine for one request and reports the seed used.
func (h *Handler) engineFor(w http.ResponseWriter, p simParams) (*engine.Engine, uint64, bool) {
	surprise := h.cfg.SurpriseLevel
	if p.Surprise != nil {
		surprise = *p.Surprise
	}
	if err := engine.ValidateSurprise(surprise); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_SURPRISE", "surprise must be between 0 and 10", err.Error())
		return nil, 0, false
	}

	seed := p.Seed
	if seed == 0 {
		seed = h.cfg.Seed
	}
	src, seed, err := engine.NewSource(h.source(p), seed)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_SOURCE", "unknown random source", err.Error())
		return nil, 0, false
	}
	eng, err := engine.New(src, surprise)
	if err != nil {
		h.internalError(w, "ENGINE_ERROR", "Engine setup failed", err)
		return nil, 0, false
	}
	return eng, seed, true
}

func (h *Handler) source(p simParams) string {
	if p.Source != "" {
		return p.Source
	}
	return h.cfg.RNG
}

func (h *Handler) surprise(p simParams) int {
	if p.Surprise != nil {
		return *p.Surprise
	}
	return h.cfg.SurpriseLevel
}

// resolveTeam turns an input into a team: inline stats are normalized,
// bare names are looked up in the catalogue.
func (h *Handler) resolveTeam(in teamInput) (*team.Team, error) {
	name := strings.TrimSpace(in.Name)
	if in.Stats != nil {
		t := &team.Team{Name: name, Stats: *in.Stats}
		team.Normalize(t)
		if t.Name == "" {
			return nil, team.ErrEmptyName
		}
		return t, nil
	}
	t, ok := team.Find(h.pots, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownTeam, name)
	}
	return t, nil
}

func (h *Handler) resolveTeams(in []teamInput) ([]*team.Team, error) {
	out := make([]*team.Team, 0, len(in))
	for _, ti := range in {
		t, err := h.resolveTeam(ti)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// resolvePair resolves both sides of a match. A team cannot face itself.
func (h *Handler) resolvePair(req *pairRequest) (*team.Team, *team.Team, error) {
	a, err := h.resolveTeam(req.TeamA)
	if err != nil {
		return nil, nil, err
	}
	b, err := h.resolveTeam(req.TeamB)
	if err != nil {
		return nil, nil, err
	}
	if err := team.Validate([]team.Pot{{a, b}}); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// resolvePots returns the request's pots, or the catalogue when none given.
func (h *Handler) resolvePots(in [][]teamInput) ([]team.Pot, error) {
	if len(in) == 0 {
		return h.pots, nil
	}
	pots := make([]team.Pot, len(in))
	for i, p := range in {
		teams, err := h.resolveTeams(p)
		if err != nil {
			return nil, err
		}
		pots[i] = teams
	}
	if err := team.Validate(pots); err != nil {
		return nil, err
	}
	return pots, nil
}

func writeTeamError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnknownTeam) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "UNKNOWN_TEAM", "Team not found in catalogue", err.Error())
		return
	}
	respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_TEAMS", "Invalid team list", err.Error())
}
