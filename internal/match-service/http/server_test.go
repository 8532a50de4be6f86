package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/formation"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/live"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/registry"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/repo"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/ws"
)

type testServer struct {
	*httptest.Server
	hub *ws.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := formation.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	log := zap.NewNop()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 9, 7, 10, 0, 0, 0, time.UTC))
	store := repo.NewMemory()
	hub := ws.NewHub(ws.DefaultConfig(), log)
	reg := registry.New(store, cat, clock, log)
	agg := live.New(live.Deps{Store: store, Patcher: reg, Sink: hub, Clock: clock, Log: log})

	api := &API{
		Registry:       reg,
		Live:           agg,
		Catalog:        cat,
		WS:             hub.HandleWS,
		Log:            log,
		AllowedOrigins: []string{"*"},
	}
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub}
}

// do envia a requisição e decodifica a resposta em out (quando não nil)
func (s *testServer) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var e map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("%s %s status = %d (%s), want %d", method, path, resp.StatusCode, e["error"], wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}

// TestMatchDayOverHTTP tests the full flow: teams, players, match, start, goal, live state and push.
func TestMatchDayOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var banner map[string]string
	s.do(t, http.MethodGet, "/", nil, http.StatusOK, &banner)
	if banner["message"] != serviceBanner {
		t.Errorf("banner = %v", banner)
	}

	var set formation.FormationSet
	s.do(t, http.MethodGet, "/api/formations/age-groups/U13", nil, http.StatusOK, &set)
	if set.Format != "11v11" || len(set.Formations) != 5 {
		t.Errorf("U13 formations = %s with %d formations", set.Format, len(set.Formations))
	}

	var home, away model.Team
	s.do(t, http.MethodPost, "/api/teams", map[string]any{"name": "Rovers", "age_group": "U13"}, http.StatusOK, &home)
	s.do(t, http.MethodPost, "/api/teams", map[string]any{"name": "United", "age_group": "U13"}, http.StatusOK, &away)

	var p1 model.Player
	s.do(t, http.MethodPost, "/api/teams/"+home.ID+"/players",
		map[string]any{"first_name": "Sam", "last_name": "Kerr", "squad_number": 9}, http.StatusOK, &p1)
	if p1.TeamID != home.ID {
		t.Fatalf("player team = %q, want %q", p1.TeamID, home.ID)
	}

	var m model.Match
	s.do(t, http.MethodPost, "/api/matches", map[string]any{
		"home_team_id": home.ID, "away_team_id": away.ID, "match_format": "11v11", "home_formation": "4-4-2",
	}, http.StatusOK, &m)

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	var started model.Match
	s.do(t, http.MethodPost, "/api/matches/"+m.ID+"/start", nil, http.StatusOK, &started)
	if started.Status != model.StatusLive || started.TimerStartedAt == nil {
		t.Errorf("started = %s/%v", started.Status, started.TimerStartedAt)
	}

	var ev model.MatchEvent
	s.do(t, http.MethodPost, "/api/matches/"+m.ID+"/events",
		map[string]any{"player_id": p1.ID, "event_type": "goal", "minute": 15}, http.StatusOK, &ev)

	var st model.Match
	s.do(t, http.MethodGet, "/api/matches/"+m.ID+"/live", nil, http.StatusOK, &st)
	if st.ScoreHome != 1 || st.ScoreAway != 0 || len(st.Events) != 1 {
		t.Errorf("live state = %d-%d with %d events", st.ScoreHome, st.ScoreAway, len(st.Events))
	}

	var player model.Player
	s.do(t, http.MethodGet, "/api/players/"+p1.ID, nil, http.StatusOK, &player)
	if player.Statistics.Goals != 1 {
		t.Errorf("P1 goals = %d, want 1", player.Statistics.Goals)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	if string(first) != "match_updated:"+m.ID {
		t.Errorf("first push = %q", first)
	}
	_, second, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	if !strings.HasPrefix(string(second), "match_event:"+m.ID+":") || !strings.Contains(string(second), ev.ID) {
		t.Errorf("second push = %q", second)
	}

	var stats model.TeamStatistics
	s.do(t, http.MethodGet, "/api/teams/"+home.ID+"/stats", nil, http.StatusOK, &stats)
	if stats.MatchesPlayed != 0 || stats.WinPercentage != 0 || len(stats.Players) != 1 {
		t.Errorf("stats while live = %+v", stats)
	}

	var completed model.Match
	s.do(t, http.MethodPut, "/api/matches/"+m.ID+"/status", map[string]string{"status": "completed"}, http.StatusOK, &completed)
	s.do(t, http.MethodGet, "/api/teams/"+home.ID+"/stats", nil, http.StatusOK, &stats)
	if stats.MatchesPlayed != 1 || stats.MatchesWon != 1 || stats.WinPercentage != 100 || stats.GoalsFor != 1 {
		t.Errorf("stats after full time = %+v", stats)
	}
}

// TestErrorMapping tests status codes and the error body for each error kind.
func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	var team model.Team
	s.do(t, http.MethodPost, "/api/teams", map[string]any{"name": "Rovers", "age_group": "U9"}, http.StatusOK, &team)

	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodGet, "/api/teams/missing", nil, http.StatusNotFound},
		{http.MethodPost, "/api/teams", `{"name":`, http.StatusBadRequest},
		{http.MethodPost, "/api/teams", map[string]any{"name": "X", "age_group": "U99"}, http.StatusBadRequest},
		{http.MethodPatch, "/api/teams/" + team.ID, `"just a string"`, http.StatusBadRequest},
		{http.MethodPost, "/api/players", map[string]any{"team_id": "missing", "first_name": "A", "last_name": "B"}, http.StatusNotFound},
		{http.MethodPost, "/api/matches", map[string]any{"match_format": "7v7", "home_formation": "4-4-2"}, http.StatusBadRequest},
		{http.MethodPost, "/api/matches", map[string]any{"home_lineup": []string{"p1", "p1"}}, http.StatusConflict},
		{http.MethodPost, "/api/matches/missing/start", nil, http.StatusNotFound},
		{http.MethodPut, "/api/matches/missing/status", map[string]string{"status": "abandoned"}, http.StatusBadRequest},
		{http.MethodPost, "/api/matches/missing/events", map[string]any{"player_id": "p1", "event_type": "goal", "minute": 1}, http.StatusNotFound},
		{http.MethodPost, "/api/matches/missing/events", map[string]any{"event_type": "goal", "minute": 1}, http.StatusBadRequest},
		{http.MethodPost, "/api/match-events", map[string]any{"event_type": "goal", "minute": 1}, http.StatusBadRequest},
		{http.MethodGet, "/api/formations/7v7/4-4-2", nil, http.StatusNotFound},
		{http.MethodGet, "/api/formations/age-groups/U21", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		var body map[string]string
		s.do(t, tc.method, tc.path, tc.body, tc.want, &body)
		if body["error"] == "" {
			t.Errorf("%s %s: missing error message", tc.method, tc.path)
		}
	}
}

// TestDeleteCascadeOverHTTP tests team delete removing the roster and the delete message.
func TestDeleteCascadeOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var team model.Team
	s.do(t, http.MethodPost, "/api/teams", map[string]any{"name": "Rovers", "age_group": "U11"}, http.StatusOK, &team)
	var p model.Player
	s.do(t, http.MethodPost, "/api/players", map[string]any{"team_id": team.ID, "first_name": "Sam", "last_name": "Kerr"}, http.StatusOK, &p)

	var patched model.Team
	s.do(t, http.MethodPut, "/api/teams/"+team.ID, map[string]any{"primary_color": "#ff0000"}, http.StatusOK, &patched)
	if patched.Name != "Rovers" || patched.PrimaryColor != "#ff0000" || len(patched.PlayerIDs) != 1 {
		t.Errorf("merged team = %+v", patched)
	}

	var msg map[string]string
	s.do(t, http.MethodDelete, "/api/teams/"+team.ID, nil, http.StatusOK, &msg)
	if msg["message"] != "Team deleted successfully" {
		t.Errorf("delete message = %v", msg)
	}
	s.do(t, http.MethodGet, "/api/players/"+p.ID, nil, http.StatusNotFound, nil)
}

// TestRecordEventLegacyRoute tests POST /api/match-events with match_id in the body.
func TestRecordEventLegacyRoute(t *testing.T) {
	s := newTestServer(t)

	var m model.Match
	s.do(t, http.MethodPost, "/api/matches", map[string]any{"opposition_name": "Visitors"}, http.StatusOK, &m)

	var ev model.MatchEvent
	s.do(t, http.MethodPost, "/api/match-events", map[string]any{
		"match_id": m.ID, "player_id": "sub-1", "event_type": "substitution", "minute": 60,
		"additional_data": map[string]any{"player_in": "x"},
	}, http.StatusOK, &ev)
	if ev.MatchID != m.ID || ev.PlayerID != "sub-1" || ev.EventType != model.EventSubstitution || ev.AdditionalData["player_in"] != "x" {
		t.Errorf("event = %+v", ev)
	}

	var evs []model.MatchEvent
	s.do(t, http.MethodGet, "/api/matches/"+m.ID+"/events", nil, http.StatusOK, &evs)
	if len(evs) != 1 {
		t.Errorf("events = %d, want 1", len(evs))
	}
}

// TestOriginChecker tests the WebSocket origin check against the CORS allow list.
func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"http://localhost:3000"})
	cases := map[string]bool{
		"":                      true,
		"http://localhost:3000": true,
		"HTTP://LOCALHOST:3000": true,
		"https://evil.example":  false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := check(r); got != want {
			t.Errorf("origin %q allowed = %v, want %v", origin, got, want)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	if !OriginChecker([]string{"*"})(r) {
		t.Error("wildcard should allow every origin")
	}
}

// TestReadBodyLimit tests that bodies over the limit are rejected as validation errors.
func TestReadBodyLimit(t *testing.T) {
	small := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(`{"name":"Rovers"}`))
	body, err := readBody(httptest.NewRecorder(), small)
	if err != nil || string(body) != `{"name":"Rovers"}` {
		t.Errorf("readBody = %q, %v", body, err)
	}

	big := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(strings.Repeat("x", maxBodyBytes+1)))
	if _, err := readBody(httptest.NewRecorder(), big); !errors.Is(err, model.ErrValidation) {
		t.Errorf("oversized body error = %v, want ErrValidation", err)
	}
}
