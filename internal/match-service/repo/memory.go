package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

// Memory é o store em memória (STORE_DRIVER=memory e testes).
// Guarda cópias: quem lê nunca compartilha slices/maps com o estado interno.
type Memory struct {
	mu sync.RWMutex

	teams   map[string]model.Team
	players map[string]model.Player
	matches map[string]model.Match
	events  map[string]model.MatchEvent

	// ordem de inserção por coleção
	teamOrder   []string
	playerOrder []string
	matchOrder  []string
	eventOrder  []string
}

func NewMemory() *Memory {
	return &Memory{
		teams:   make(map[string]model.Team),
		players: make(map[string]model.Player),
		matches: make(map[string]model.Match),
		events:  make(map[string]model.MatchEvent),
	}
}

// clone faz deep copy via JSON, mesmo caminho dos documentos no Postgres
func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("clone: %v", err))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("clone: %v", err))
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Teams

func (m *Memory) InsertTeam(_ context.Context, t model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; ok {
		return model.Conflict("team %s already exists", t.ID)
	}
	m.teams[t.ID] = clone(t)
	m.teamOrder = append(m.teamOrder, t.ID)
	return nil
}

func (m *Memory) GetTeam(_ context.Context, id string) (model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return model.Team{}, model.NotFound("team", id)
	}
	return clone(t), nil
}

func (m *Memory) ListTeams(_ context.Context) ([]model.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Team, 0, len(m.teamOrder))
	for _, id := range m.teamOrder {
		out = append(out, clone(m.teams[id]))
	}
	return out, nil
}

func (m *Memory) ReplaceTeam(_ context.Context, t model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; !ok {
		return model.NotFound("team", t.ID)
	}
	m.teams[t.ID] = clone(t)
	return nil
}

func (m *Memory) DeleteTeam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return model.NotFound("team", id)
	}
	delete(m.teams, id)
	m.teamOrder = removeID(m.teamOrder, id)
	return nil
}

// AddTeamPlayer anexa o jogador à referência reversa do time
func (m *Memory) AddTeamPlayer(_ context.Context, teamID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return model.NotFound("team", teamID)
	}
	t.PlayerIDs = append(t.PlayerIDs, playerID)
	m.teams[teamID] = t
	return nil
}

func (m *Memory) RemoveTeamPlayer(_ context.Context, teamID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return model.NotFound("team", teamID)
	}
	t.PlayerIDs = removeID(t.PlayerIDs, playerID)
	m.teams[teamID] = t
	return nil
}

// Players

func (m *Memory) InsertPlayer(_ context.Context, p model.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; ok {
		return model.Conflict("player %s already exists", p.ID)
	}
	m.players[p.ID] = clone(p)
	m.playerOrder = append(m.playerOrder, p.ID)
	return nil
}

func (m *Memory) GetPlayer(_ context.Context, id string) (model.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return model.Player{}, model.NotFound("player", id)
	}
	return clone(p), nil
}

func (m *Memory) ListPlayers(_ context.Context) ([]model.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Player, 0, len(m.playerOrder))
	for _, id := range m.playerOrder {
		out = append(out, clone(m.players[id]))
	}
	return out, nil
}

func (m *Memory) ListPlayersByTeam(_ context.Context, teamID string) ([]model.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Player{}
	for _, id := range m.playerOrder {
		if p := m.players[id]; p.TeamID == teamID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *Memory) ReplacePlayer(_ context.Context, p model.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[p.ID]; !ok {
		return model.NotFound("player", p.ID)
	}
	m.players[p.ID] = clone(p)
	return nil
}

func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[id]; !ok {
		return model.NotFound("player", id)
	}
	delete(m.players, id)
	m.playerOrder = removeID(m.playerOrder, id)
	return nil
}

// DeletePlayersByTeam remove o elenco inteiro e devolve quantos foram removidos
func (m *Memory) DeletePlayersByTeam(_ context.Context, teamID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range append([]string(nil), m.playerOrder...) {
		if m.players[id].TeamID == teamID {
			delete(m.players, id)
			m.playerOrder = removeID(m.playerOrder, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) IncrementPlayerStat(_ context.Context, playerID, stat string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return model.NotFound("player", playerID)
	}
	if !p.Statistics.Inc(stat) {
		return fmt.Errorf("unknown statistic %q", stat)
	}
	m.players[playerID] = p
	return nil
}

// Matches

func (m *Memory) InsertMatch(_ context.Context, mt model.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[mt.ID]; ok {
		return model.Conflict("match %s already exists", mt.ID)
	}
	m.matches[mt.ID] = clone(mt)
	m.matchOrder = append(m.matchOrder, mt.ID)
	return nil
}

func (m *Memory) GetMatch(_ context.Context, id string) (model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[id]
	if !ok {
		return model.Match{}, model.NotFound("match", id)
	}
	return clone(mt), nil
}

func (m *Memory) ListMatches(_ context.Context) ([]model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Match, 0, len(m.matchOrder))
	for _, id := range m.matchOrder {
		out = append(out, clone(m.matches[id]))
	}
	return out, nil
}

// ListMatchesByTeam devolve as partidas em que o time é mandante ou visitante
func (m *Memory) ListMatchesByTeam(_ context.Context, teamID string) ([]model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Match{}
	for _, id := range m.matchOrder {
		if _, ok := m.matches[id].SideOf(teamID); ok {
			out = append(out, clone(m.matches[id]))
		}
	}
	return out, nil
}

func (m *Memory) ReplaceMatch(_ context.Context, mt model.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[mt.ID]; !ok {
		return model.NotFound("match", mt.ID)
	}
	m.matches[mt.ID] = clone(mt)
	return nil
}

// DeleteMatch remove a partida e os eventos do log
func (m *Memory) DeleteMatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[id]; !ok {
		return model.NotFound("match", id)
	}
	delete(m.matches, id)
	m.matchOrder = removeID(m.matchOrder, id)

	for _, eid := range append([]string(nil), m.eventOrder...) {
		if m.events[eid].MatchID == id {
			delete(m.events, eid)
			m.eventOrder = removeID(m.eventOrder, eid)
		}
	}
	return nil
}

func (m *Memory) AppendMatchEvent(_ context.Context, matchID string, ev model.MatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return model.NotFound("match", matchID)
	}
	mt.Events = append(mt.Events, clone(ev))
	m.matches[matchID] = mt
	return nil
}

func (m *Memory) IncrementMatchScore(_ context.Context, matchID string, side model.Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return model.NotFound("match", matchID)
	}
	switch side {
	case model.SideHome:
		mt.ScoreHome++
	case model.SideAway:
		mt.ScoreAway++
	default:
		return fmt.Errorf("unknown side %q", side)
	}
	m.matches[matchID] = mt
	return nil
}

// SetMatchStatus sobrescreve o status; startedAt != nil também carimba o timer
func (m *Memory) SetMatchStatus(_ context.Context, matchID string, status model.MatchStatus, startedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return model.NotFound("match", matchID)
	}
	mt.Status = status
	if startedAt != nil {
		ts := *startedAt
		mt.TimerStartedAt = &ts
	}
	m.matches[matchID] = mt
	return nil
}

// Match events

func (m *Memory) InsertEvent(_ context.Context, ev model.MatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.ID]; ok {
		return model.Conflict("event %s already exists", ev.ID)
	}
	m.events[ev.ID] = clone(ev)
	m.eventOrder = append(m.eventOrder, ev.ID)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, matchID string) ([]model.MatchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.MatchEvent{}
	for _, id := range m.eventOrder {
		if ev := m.events[id]; ev.MatchID == matchID {
			out = append(out, clone(ev))
		}
	}
	return out, nil
}
