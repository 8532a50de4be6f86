package model

import "time"

type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusHalfTime  MatchStatus = "half_time"
	StatusCompleted MatchStatus = "completed"
	StatusCancelled MatchStatus = "cancelled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusHalfTime, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type MatchType string

const (
	MatchFriendly MatchType = "Friendly"
	MatchLeague   MatchType = "League"
	MatchCup      MatchType = "Cup"
)

func (t MatchType) Valid() bool {
	return t == MatchFriendly || t == MatchLeague || t == MatchCup
}

type EventType string

const (
	EventGoal          EventType = "goal"
	EventAssist        EventType = "assist"
	EventYellowCard    EventType = "yellow_card"
	EventRedCard       EventType = "red_card"
	EventSubstitution  EventType = "substitution"
	EventPlayerOfMatch EventType = "player_of_match"
)

func (t EventType) Valid() bool {
	switch t {
	case EventGoal, EventAssist, EventYellowCard, EventRedCard, EventSubstitution, EventPlayerOfMatch:
		return true
	}
	return false
}

// Stat devolve o contador de Statistics afetado pelo evento ("" = só registra)
func (t EventType) Stat() string {
	switch t {
	case EventGoal:
		return StatGoals
	case EventAssist:
		return StatAssists
	case EventYellowCard:
		return StatYellowCards
	case EventRedCard:
		return StatRedCards
	case EventPlayerOfMatch:
		return StatPlayerOfMatchAwards
	}
	return ""
}

// Side identifica o lado do placar
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// ScoreField é a chave JSON do placar do lado
func (s Side) ScoreField() string {
	if s == SideHome {
		return "score_home"
	}
	return "score_away"
}

// MatchEvent é imutável depois de criado. TeamID guarda o time do jogador no momento do evento.
type MatchEvent struct {
	ID             string         `json:"id"`
	MatchID        string         `json:"match_id"`
	PlayerID       string         `json:"player_id,omitempty"`
	TeamID         string         `json:"team_id,omitempty"`
	EventType      EventType      `json:"event_type"`
	Minute         int            `json:"minute"`
	Timestamp      time.Time      `json:"timestamp"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`
}

type Match struct {
	ID             string    `json:"id"`
	HomeTeamID     string    `json:"home_team_id,omitempty"`
	AwayTeamID     string    `json:"away_team_id,omitempty"`
	OppositionName string    `json:"opposition_name,omitempty"`
	MatchType      MatchType `json:"match_type"`
	Date           string    `json:"date,omitempty"`
	Venue          string    `json:"venue,omitempty"`
	MatchFormat    string    `json:"match_format"`
	HomeFormation  string    `json:"home_formation,omitempty"`
	AwayFormation  string    `json:"away_formation,omitempty"`

	HomeLineup      []string          `json:"home_lineup"`
	AwayLineup      []string          `json:"away_lineup"`
	HomeSubstitutes []string          `json:"home_substitutes"`
	AwaySubstitutes []string          `json:"away_substitutes"`
	Positions       map[string]string `json:"positions"` // position id -> player id

	Status    MatchStatus `json:"status"`
	ScoreHome int         `json:"score_home"`
	ScoreAway int         `json:"score_away"`

	Events         []MatchEvent `json:"events"`
	TimerStartedAt *time.Time   `json:"timer_started_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Normalize troca nils por coleções vazias para o JSON sair estável
func (m *Match) Normalize() {
	if m.HomeLineup == nil {
		m.HomeLineup = []string{}
	}
	if m.AwayLineup == nil {
		m.AwayLineup = []string{}
	}
	if m.HomeSubstitutes == nil {
		m.HomeSubstitutes = []string{}
	}
	if m.AwaySubstitutes == nil {
		m.AwaySubstitutes = []string{}
	}
	if m.Positions == nil {
		m.Positions = map[string]string{}
	}
	if m.Events == nil {
		m.Events = []MatchEvent{}
	}
}

// SideOf devolve o lado do time na partida; ok=false se o time não joga
func (m Match) SideOf(teamID string) (Side, bool) {
	if teamID == "" {
		return "", false
	}
	switch teamID {
	case m.HomeTeamID:
		return SideHome, true
	case m.AwayTeamID:
		return SideAway, true
	}
	return "", false
}
