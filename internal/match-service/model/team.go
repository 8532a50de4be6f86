package model

import "time"

const (
	DefaultPrimaryColor   = "#000000"
	DefaultSecondaryColor = "#ffffff"
)

// Team representa um time de base; PlayerIDs guarda a referência reversa do elenco
type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	AgeGroup       string    `json:"age_group"`
	Logo           string    `json:"logo,omitempty"` // base64 ou URL, opaco
	PrimaryColor   string    `json:"primary_color"`
	SecondaryColor string    `json:"secondary_color"`
	FoundedYear    int       `json:"founded_year,omitempty"`
	Description    string    `json:"description,omitempty"`
	PlayerIDs      []string  `json:"player_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// Statistics são contadores acumulados; só o agregador incrementa
type Statistics struct {
	Appearances         int `json:"appearances"`
	Goals               int `json:"goals"`
	Assists             int `json:"assists"`
	YellowCards         int `json:"yellow_cards"`
	RedCards            int `json:"red_cards"`
	MinutesPlayed       int `json:"minutes_played"`
	PlayerOfMatchAwards int `json:"player_of_match_awards"`
}

// Nomes dos contadores, iguais às chaves JSON de Statistics
const (
	StatAppearances         = "appearances"
	StatGoals               = "goals"
	StatAssists             = "assists"
	StatYellowCards         = "yellow_cards"
	StatRedCards            = "red_cards"
	StatMinutesPlayed       = "minutes_played"
	StatPlayerOfMatchAwards = "player_of_match_awards"
)

// ValidStat indica se o nome corresponde a um contador de Statistics
func ValidStat(name string) bool {
	switch name {
	case StatAppearances, StatGoals, StatAssists, StatYellowCards,
		StatRedCards, StatMinutesPlayed, StatPlayerOfMatchAwards:
		return true
	}
	return false
}

// Inc incrementa o contador pelo nome; devolve false para nomes desconhecidos
func (s *Statistics) Inc(name string) bool {
	switch name {
	case StatAppearances:
		s.Appearances++
	case StatGoals:
		s.Goals++
	case StatAssists:
		s.Assists++
	case StatYellowCards:
		s.YellowCards++
	case StatRedCards:
		s.RedCards++
	case StatMinutesPlayed:
		s.MinutesPlayed++
	case StatPlayerOfMatchAwards:
		s.PlayerOfMatchAwards++
	default:
		return false
	}
	return true
}

type Player struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Age         int        `json:"age,omitempty"`
	Position    string     `json:"position,omitempty"`
	SquadNumber int        `json:"squad_number"`
	Photo       string     `json:"photo,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
	Statistics  Statistics `json:"statistics"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (p Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
