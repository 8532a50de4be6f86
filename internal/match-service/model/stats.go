package model

// TeamStatistics é o resumo calculado na leitura a partir das partidas concluídas
type TeamStatistics struct {
	TeamID        string        `json:"team_id"`
	TeamName      string        `json:"team_name"`
	MatchesPlayed int           `json:"matches_played"`
	MatchesWon    int           `json:"matches_won"`
	MatchesDrawn  int           `json:"matches_drawn"`
	MatchesLost   int           `json:"matches_lost"`
	GoalsFor      int           `json:"goals_for"`
	GoalsAgainst  int           `json:"goals_against"`
	WinPercentage float64       `json:"win_percentage"`
	Players       []PlayerStats `json:"players"`
}

type PlayerStats struct {
	PlayerID    string     `json:"player_id"`
	Name        string     `json:"name"`
	SquadNumber int        `json:"squad_number"`
	Position    string     `json:"position,omitempty"`
	Statistics  Statistics `json:"statistics"`
}
