package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/albapepper/copa-sim/internal/api/handler"
	"github.com/albapepper/copa-sim/internal/api/respond"
	"github.com/albapepper/copa-sim/internal/cache"
	"github.com/albapepper/copa-sim/internal/config"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/team"
	"github.com/albapepper/copa-sim/internal/tournament"
)

// memStore is an in-memory run archive.
type memStore struct {
	mu   sync.Mutex
	runs map[string][]byte
	list []db.RunSummary
	err  error
}

func newMemStore() *memStore { return &memStore{runs: map[string][]byte{}} }

func (s *memStore) SaveRun(_ context.Context, run *tournament.Run) error {
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = data
	s.list = append([]db.RunSummary{{ID: run.ID, Format: string(run.Format), Champion: run.Champion.Name}}, s.list...)
	return nil
}

func (s *memStore) GetRun(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrRunNotFound, id)
	}
	return data, nil
}

func (s *memStore) ListRuns(_ context.Context, limit, offset int) ([]db.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if offset >= len(s.list) {
		return []db.RunSummary{}, nil
	}
	end := min(offset+limit, len(s.list))
	return s.list[offset:end], nil
}

func (s *memStore) ChampionCounts(_ context.Context, limit int) ([]db.ChampionCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, r := range s.list {
		counts[r.Champion]++
	}
	out := []db.ChampionCount{}
	for name, n := range counts {
		out = append(out, db.ChampionCount{Team: name, Count: n})
	}
	return out[:min(limit, len(out))], nil
}

func (s *memStore) HealthCheck(context.Context) error { return s.err }

type testServer struct {
	router http.Handler
	store  *memStore
	bus    *events.Memory
}

func testConfig() *config.Config {
	return &config.Config{
		CORSAllowOrigins:  []string{"http://localhost:3000"},
		RateLimitEnabled:  false,
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		CacheEnabled:      true,
		SurpriseLevel:     5,
		RNG:               "pcg",
	}
}

func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()
	return newTestServerConfig(t, testConfig(), withStore)
}

func newTestServerConfig(t *testing.T, cfg *config.Config, withStore bool) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts := &testServer{bus: events.NewMemory(0)}
	deps := handler.Deps{
		Cache:     cache.New(ctx, true),
		Config:    cfg,
		Pots:      team.DefaultPots(),
		Publisher: ts.bus,
		Recent:    ts.bus,
	}
	if withStore {
		ts.store = newMemStore()
		deps.Store = ts.store
	}
	ts.router = NewRouter(handler.New(deps), cfg)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	type errResp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	return decodeBody[errResp](t, rec).Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	for _, path := range []string{"/", "/health", "/health/db", "/health/cache"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
		if rec.Result().Header.Get("X-Process-Time") == "" {
			t.Errorf("GET %s missing X-Process-Time", path)
		}
	}

	ts = newTestServer(t, true)
	ts.store.err = errors.New("down")
	if rec := ts.do(t, http.MethodGet, "/health/db", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy db = %d", rec.Code)
	}
}

func TestGetPotsETag(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodGet, "/api/v1/pots", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first GET = %d %s", rec.Code, rec.Header().Get("X-Cache"))
	}
	pots := decodeBody[[]handler.PotView](t, rec)
	if len(pots) != team.PotCount || len(pots[0].Teams) != team.PotSize || pots[0].Name != "Pot 1" {
		t.Fatalf("unexpected pots %d", len(pots))
	}

	etag := rec.Header().Get("ETag")
	rec = ts.do(t, http.MethodGet, "/api/v1/pots", "", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/pots", "", nil)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Error("second GET should hit the cache")
	}
}

func TestSimulateMatch(t *testing.T) {
	ts := newTestServer(t, false)
	pots := team.DefaultPots()
	a, b := pots[0][0].Name, pots[3][0].Name
	body := fmt.Sprintf(`{"teamA":{"name":%q},"teamB":{"name":%q},"seed":42,"surprise":3}`, a, b)

	rec := ts.do(t, http.MethodPost, "/api/v1/simulate/match", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST match = %d %s", rec.Code, rec.Body.String())
	}
	first := decodeBody[handler.MatchResponse](t, rec)
	if first.Seed != 42 || first.Surprise != 3 || first.Match.TeamA.Name != a {
		t.Errorf("unexpected response %+v", first)
	}

	again := decodeBody[handler.MatchResponse](t, ts.do(t, http.MethodPost, "/api/v1/simulate/match", body, nil))
	if again.Match.ScoreA != first.Match.ScoreA || again.Match.ScoreB != first.Match.ScoreB {
		t.Error("same seed produced a different score")
	}
}

func TestSimulateKnockoutInlineTeams(t *testing.T) {
	ts := newTestServer(t, false)
	body := `{"teamA":{"name":"Home","stats":{"level":7,"goalCapacity":7,"defenseCapacity":6,"hierarchy":6}},
		"teamB":{"name":"Away","stats":{"level":7,"goalCapacity":7,"defenseCapacity":6,"hierarchy":6}},"seed":9}`
	rec := ts.do(t, http.MethodPost, "/api/v1/simulate/knockout", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST knockout = %d %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[handler.KnockoutResponse](t, rec)
	res := resp.Matchup.Result
	if res == nil || res.Winner == nil {
		t.Fatal("tie not decided")
	}
	if res.ScoreA == res.ScoreB && res.Penalties == nil {
		t.Error("level score without penalties")
	}
}

func TestSimulateBadRequests(t *testing.T) {
	ts := newTestServer(t, false)
	tests := []struct {
		path, body, code string
	}{
		{"/api/v1/simulate/match", `{"teamA":`, "INVALID_BODY"},
		{"/api/v1/simulate/match", `{"bogus":1}`, "INVALID_BODY"},
		{"/api/v1/simulate/match", `{"teamA":{"name":"Nobody FC"},"teamB":{"name":"Nobody FC"}}`, "UNKNOWN_TEAM"},
		{"/api/v1/simulate/knockout", `{"surprise":11}`, "INVALID_SURPRISE"},
		{"/api/v1/simulate/knockout", `{"source":"mt19937"}`, "INVALID_SOURCE"},
		{"/api/v1/simulate/groups", `{}`, "MISSING_GROUPS"},
		{"/api/v1/simulate/groups", `{"groups":[{"name":"A","teams":[{"name":"Universitario"},{"name":"Universitario"},{"name":"Melgar"},{"name":"Alianza Lima"}]}]}`, "INVALID_TEAMS"},
		{"/api/v1/simulate/groups", `{"groups":[{"teams":[{"name":"Melgar"}]},{"teams":[{"name":"melgar"}]}]}`, "INVALID_TEAMS"},
		{"/api/v1/simulate/match", `{"teamA":{"name":"Melgar"},"teamB":{"name":"Melgar"}}`, "INVALID_TEAMS"},
		{"/api/v1/simulate/knockout", `{"teamA":{"name":"Home","stats":{"level":5}},"teamB":{"name":"Home","stats":{"level":6}}}`, "INVALID_TEAMS"},
		{"/api/v1/tournaments", `{"format":"swiss"}`, "INVALID_FORMAT"},
		{"/api/v1/odds", `{"n":20001}`, "INVALID_RUNS"},
		{"/api/v1/odds", `{"n":10,"surprise":-1}`, "INVALID_SURPRISE"},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodPost, tt.path, tt.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("POST %s %s = %d", tt.path, tt.body, rec.Code)
			continue
		}
		if got := errorCode(t, rec); got != tt.code {
			t.Errorf("POST %s %s code = %s, want %s", tt.path, tt.body, got, tt.code)
		}
	}
}

func TestSimulateGroups(t *testing.T) {
	ts := newTestServer(t, false)
	pots := team.DefaultPots()
	full := fmt.Sprintf(`{"name":"A","teams":[{"name":%q},{"name":%q},{"name":%q},{"name":%q}]}`,
		pots[0][0].Name, pots[1][0].Name, pots[2][0].Name, pots[3][0].Name)
	short := fmt.Sprintf(`{"name":"B","teams":[{"name":%q}]}`, pots[0][1].Name)
	body := fmt.Sprintf(`{"groups":[%s,%s],"seed":3}`, full, short)

	rec := ts.do(t, http.MethodPost, "/api/v1/simulate/groups", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST groups = %d %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[handler.GroupsResponse](t, rec)
	if len(resp.Results) != 1 || resp.Results[0].Group != "A" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "B" {
		t.Errorf("skipped = %v", resp.Skipped)
	}
	if len(resp.Results[0].Standings) != 4 {
		t.Errorf("standings = %d", len(resp.Results[0].Standings))
	}
}

func TestDrawGroups(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodPost, "/api/v1/draw/groups", `{"seed":5}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST draw = %d %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[handler.DrawResponse](t, rec)
	if resp.Seed != 5 || len(resp.Groups) != 16 {
		t.Fatalf("unexpected draw seed=%d groups=%d", resp.Seed, len(resp.Groups))
	}
	for _, g := range resp.Groups {
		if len(g.Teams) != 4 {
			t.Errorf("group %s has %d teams", g.Name, len(g.Teams))
		}
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/draw/groups", `{"pots":[[{"name":"X","stats":{"level":1}}],[{"name":"X","stats":{"level":2}}]]}`, nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_TEAMS" {
		t.Errorf("duplicate names = %d %s", rec.Code, rec.Body.String())
	}
}

func TestTournamentLifecycle(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/v1/tournaments", `{"format":"keys","seed":77}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST tournament = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Run-Persisted") != "true" {
		t.Error("run should be persisted")
	}
	run := decodeBody[tournament.Run](t, rec)
	if run.Format != tournament.FormatKeys || run.Seed != 77 || run.Champion == nil {
		t.Fatalf("unexpected run %s", run.Summary())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/tournaments/"+run.ID {
		t.Errorf("Location = %s", loc)
	}

	got := ts.bus.Events()
	if len(got) != 1 || got[0].Type != events.TypeRunCompleted || got[0].RunID != run.ID {
		t.Errorf("events = %+v", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tournaments/"+run.ID, "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("GET run = %d %s", rec.Code, rec.Header().Get("X-Cache"))
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tournaments?limit=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET list = %d", rec.Code)
	}
	if list := decodeBody[[]db.RunSummary](t, rec); len(list) != 1 || list[0].ID != run.ID {
		t.Errorf("list = %+v", list)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/tournaments/champions", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET champions = %d", rec.Code)
	}
	if counts := decodeBody[[]db.ChampionCount](t, rec); len(counts) != 1 || counts[0].Team != run.Champion.Name {
		t.Errorf("champions = %+v", counts)
	}

	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments?limit=500", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized limit = %d", rec.Code)
	}
}

func TestTournamentFromArchive(t *testing.T) {
	ts := newTestServer(t, true)
	run, err := tournament.Play(context.Background(), team.DefaultPots(), tournament.Options{Seed: 8}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	if err := ts.store.SaveRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/tournaments/"+run.ID, "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("GET archived run = %d %s", rec.Code, rec.Header().Get("X-Cache"))
	}
	if got := decodeBody[tournament.Run](t, rec); got.ID != run.ID || got.Champion.Name != run.Champion.Name {
		t.Errorf("archived run mismatch: %s", got.Summary())
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments/"+run.ID, "", nil); rec.Header().Get("X-Cache") != "HIT" {
		t.Error("second GET should hit the cache")
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing run = %d", rec.Code)
	}
}

func TestTournamentWithoutStore(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodPost, "/api/v1/tournaments", `{"seed":12}`, nil)
	if rec.Code != http.StatusCreated || rec.Header().Get("X-Run-Persisted") != "false" {
		t.Fatalf("POST tournament = %d persisted=%s", rec.Code, rec.Header().Get("X-Run-Persisted"))
	}
	run := decodeBody[tournament.Run](t, rec)
	if run.Format != tournament.FormatClassic || len(run.Groups) != 16 {
		t.Errorf("unexpected run %s", run.Summary())
	}

	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments/"+run.ID, "", nil); rec.Code != http.StatusOK {
		t.Errorf("cached run = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing run = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/v1/tournaments", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list without store = %d", rec.Code)
	}
}

func TestArchiveErrorDetail(t *testing.T) {
	tests := []struct {
		env        string
		wantDetail string
	}{
		{"development", "connection reset"},
		{"production", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := testConfig()
			cfg.Environment = tt.env
			ts := newTestServerConfig(t, cfg, true)
			ts.store.err = errors.New("connection reset")

			rec := ts.do(t, http.MethodGet, "/api/v1/tournaments", "", nil)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("list with failing store = %d", rec.Code)
			}
			resp := decodeBody[respond.ErrorResponse](t, rec)
			if resp.Error.Code != "DB_ERROR" || resp.Error.Detail != tt.wantDetail {
				t.Errorf("error = %+v, want detail %q", resp.Error, tt.wantDetail)
			}
		})
	}
}

func TestRecentEvents(t *testing.T) {
	ts := newTestServer(t, false)
	for _, seed := range []string{"1", "2"} {
		if rec := ts.do(t, http.MethodPost, "/api/v1/tournaments", `{"seed":`+seed+`}`, nil); rec.Code != http.StatusCreated {
			t.Fatalf("POST tournament = %d", rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/events?limit=1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET events = %d", rec.Code)
	}
	got := decodeBody[[]events.Event](t, rec)
	if len(got) != 1 || got[0].Type != events.TypeRunCompleted || got[0].Seed != 2 {
		t.Errorf("unexpected feed %+v", got)
	}

	cfg := testConfig()
	bare := handler.New(handler.Deps{Cache: cache.New(context.Background(), false), Config: cfg, Pots: team.DefaultPots()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec = httptest.NewRecorder()
	NewRouter(bare, cfg).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("feed without a bus = %d", rec.Code)
	}
}

func TestComputeOdds(t *testing.T) {
	ts := newTestServer(t, false)
	body := `{"format":"keys","n":40,"seed":21}`
	rec := ts.do(t, http.MethodPost, "/api/v1/odds", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST odds = %d %s", rec.Code, rec.Body.String())
	}
	odds := decodeBody[tournament.Odds](t, rec)
	if odds.Runs != 40 || len(odds.Teams) != 64 {
		t.Fatalf("unexpected odds runs=%d teams=%d", odds.Runs, len(odds.Teams))
	}
	if rec.Header().Get("X-Cache") != "MISS" {
		t.Error("first seeded batch should miss")
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/odds", body, nil)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Error("repeated seeded batch should hit the cache")
	}
	if got := ts.bus.Events(); len(got) != 1 || got[0].Type != events.TypeOddsCompleted {
		t.Errorf("events = %+v", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Hour
	h := handler.New(handler.Deps{Cache: cache.New(context.Background(), false), Config: cfg, Pots: team.DefaultPots()})
	router := NewRouter(h, cfg)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d", last.Code)
	}
	if last.Header().Get("Retry-After") != "3600" {
		t.Errorf("Retry-After = %s", last.Header().Get("Retry-After"))
	}
}
