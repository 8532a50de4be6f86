package registry

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/formation"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

// Store define as operações de persistência usadas pelo Registry
type Store interface {
	InsertTeam(ctx context.Context, t model.Team) error
	GetTeam(ctx context.Context, id string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ReplaceTeam(ctx context.Context, t model.Team) error
	DeleteTeam(ctx context.Context, id string) error
	AddTeamPlayer(ctx context.Context, teamID, playerID string) error
	RemoveTeamPlayer(ctx context.Context, teamID, playerID string) error

	InsertPlayer(ctx context.Context, p model.Player) error
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	ListPlayers(ctx context.Context) ([]model.Player, error)
	ListPlayersByTeam(ctx context.Context, teamID string) ([]model.Player, error)
	ReplacePlayer(ctx context.Context, p model.Player) error
	DeletePlayer(ctx context.Context, id string) error
	DeletePlayersByTeam(ctx context.Context, teamID string) (int, error)

	InsertMatch(ctx context.Context, m model.Match) error
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
	ListMatchesByTeam(ctx context.Context, teamID string) ([]model.Match, error)
	ListEvents(ctx context.Context, matchID string) ([]model.MatchEvent, error)
}

// Registry valida e persiste times, jogadores e partidas.
// Mutações de partidas já criadas passam pelo agregador ao vivo (pacote live).
type Registry struct {
	store   Store
	catalog *formation.Catalog
	clock   clockwork.Clock
	log     *zap.Logger

	// serializa as sequências que mexem na referência reversa player_ids
	refs sync.Mutex
}

func New(store Store, catalog *formation.Catalog, clock clockwork.Clock, log *zap.Logger) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{store: store, catalog: catalog, clock: clock, log: log}
}

func (r *Registry) now() time.Time { return r.clock.Now().UTC() }

// Teams

func (r *Registry) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = r.now()
	t.PlayerIDs = []string{}
	normalizeTeam(&t)
	if err := r.validateTeam(t); err != nil {
		return model.Team{}, err
	}

	if err := r.store.InsertTeam(ctx, t); err != nil {
		return model.Team{}, err
	}
	r.log.Info("team created", zap.String("team_id", t.ID), zap.String("age_group", t.AgeGroup))
	return t, nil
}

func (r *Registry) GetTeam(ctx context.Context, id string) (model.Team, error) {
	return r.store.GetTeam(ctx, id)
}

func (r *Registry) ListTeams(ctx context.Context) ([]model.Team, error) {
	return r.store.ListTeams(ctx)
}

// UpdateTeam aplica merge parcial do JSON; id, created_at e player_ids não mudam por aqui
func (r *Registry) UpdateTeam(ctx context.Context, id string, patch []byte) (model.Team, error) {
	r.refs.Lock()
	defer r.refs.Unlock()

	cur, err := r.store.GetTeam(ctx, id)
	if err != nil {
		return model.Team{}, err
	}
	next, err := mergeInto(cur, patch, "id", "created_at", "player_ids")
	if err != nil {
		return model.Team{}, err
	}
	normalizeTeam(&next)
	if err := r.validateTeam(next); err != nil {
		return model.Team{}, err
	}
	if err := r.store.ReplaceTeam(ctx, next); err != nil {
		return model.Team{}, err
	}
	return next, nil
}

// DeleteTeam remove o elenco inteiro e depois o time
func (r *Registry) DeleteTeam(ctx context.Context, id string) error {
	r.refs.Lock()
	defer r.refs.Unlock()

	if _, err := r.store.GetTeam(ctx, id); err != nil {
		return err
	}
	n, err := r.store.DeletePlayersByTeam(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	r.log.Info("team deleted", zap.String("team_id", id), zap.Int("players_removed", n))
	return nil
}

func normalizeTeam(t *model.Team) {
	t.Name = strings.TrimSpace(t.Name)
	t.AgeGroup = strings.TrimSpace(t.AgeGroup)
	if t.PrimaryColor == "" {
		t.PrimaryColor = model.DefaultPrimaryColor
	}
	if t.SecondaryColor == "" {
		t.SecondaryColor = model.DefaultSecondaryColor
	}
	if t.PlayerIDs == nil {
		t.PlayerIDs = []string{}
	}
}

func (r *Registry) validateTeam(t model.Team) error {
	if t.Name == "" {
		return model.Invalid("name is required")
	}
	if t.AgeGroup == "" {
		return model.Invalid("age_group is required")
	}
	if !r.catalog.HasAgeGroup(t.AgeGroup) {
		return model.Invalid("unknown age_group %q", t.AgeGroup)
	}
	if t.FoundedYear < 0 {
		return model.Invalid("founded_year must not be negative")
	}
	return nil
}

// Players

// CreatePlayer cria o jogador e anexa ao time (team_id precisa existir)
func (r *Registry) CreatePlayer(ctx context.Context, p model.Player) (model.Player, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = r.now()
	normalizePlayer(&p)
	if err := validatePlayer(p); err != nil {
		return model.Player{}, err
	}

	r.refs.Lock()
	defer r.refs.Unlock()

	if _, err := r.store.GetTeam(ctx, p.TeamID); err != nil {
		return model.Player{}, err
	}
	if err := r.store.InsertPlayer(ctx, p); err != nil {
		return model.Player{}, err
	}
	if err := r.store.AddTeamPlayer(ctx, p.TeamID, p.ID); err != nil {
		return model.Player{}, err
	}
	r.log.Info("player created", zap.String("player_id", p.ID), zap.String("team_id", p.TeamID))
	return p, nil
}

func (r *Registry) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	return r.store.GetPlayer(ctx, id)
}

func (r *Registry) ListPlayers(ctx context.Context) ([]model.Player, error) {
	return r.store.ListPlayers(ctx)
}

// ListTeamPlayers devolve o elenco; NotFound se o time não existe
func (r *Registry) ListTeamPlayers(ctx context.Context, teamID string) ([]model.Player, error) {
	if _, err := r.store.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return r.store.ListPlayersByTeam(ctx, teamID)
}

func (r *Registry) PlayerStatistics(ctx context.Context, id string) (model.Statistics, error) {
	p, err := r.store.GetPlayer(ctx, id)
	if err != nil {
		return model.Statistics{}, err
	}
	return p.Statistics, nil
}

// UpdatePlayer aplica merge parcial; troca de time move a referência reversa
func (r *Registry) UpdatePlayer(ctx context.Context, id string, patch []byte) (model.Player, error) {
	r.refs.Lock()
	defer r.refs.Unlock()

	cur, err := r.store.GetPlayer(ctx, id)
	if err != nil {
		return model.Player{}, err
	}
	next, err := mergeInto(cur, patch, "id", "created_at")
	if err != nil {
		return model.Player{}, err
	}
	normalizePlayer(&next)
	if err := validatePlayer(next); err != nil {
		return model.Player{}, err
	}

	moved := next.TeamID != cur.TeamID
	if moved {
		if _, err := r.store.GetTeam(ctx, next.TeamID); err != nil {
			return model.Player{}, err
		}
	}
	if err := r.store.ReplacePlayer(ctx, next); err != nil {
		return model.Player{}, err
	}
	if moved {
		if err := r.store.RemoveTeamPlayer(ctx, cur.TeamID, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			return model.Player{}, err
		}
		if err := r.store.AddTeamPlayer(ctx, next.TeamID, id); err != nil {
			return model.Player{}, err
		}
		r.log.Info("player moved", zap.String("player_id", id),
			zap.String("from_team", cur.TeamID), zap.String("to_team", next.TeamID))
	}
	return next, nil
}

// DeletePlayer remove o jogador e a entrada em player_ids do time
func (r *Registry) DeletePlayer(ctx context.Context, id string) error {
	r.refs.Lock()
	defer r.refs.Unlock()

	p, err := r.store.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.DeletePlayer(ctx, id); err != nil {
		return err
	}
	if err := r.store.RemoveTeamPlayer(ctx, p.TeamID, id); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	return nil
}

func normalizePlayer(p *model.Player) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.TeamID = strings.TrimSpace(p.TeamID)
}

func validatePlayer(p model.Player) error {
	if p.TeamID == "" {
		return model.Invalid("team_id is required")
	}
	if p.FirstName == "" {
		return model.Invalid("first_name is required")
	}
	if p.LastName == "" {
		return model.Invalid("last_name is required")
	}
	if p.Age < 0 {
		return model.Invalid("age must not be negative")
	}
	if p.SquadNumber < 0 {
		return model.Invalid("squad_number must not be negative")
	}
	s := p.Statistics
	for name, v := range map[string]int{
		model.StatAppearances: s.Appearances, model.StatGoals: s.Goals, model.StatAssists: s.Assists,
		model.StatYellowCards: s.YellowCards, model.StatRedCards: s.RedCards,
		model.StatMinutesPlayed: s.MinutesPlayed, model.StatPlayerOfMatchAwards: s.PlayerOfMatchAwards,
	} {
		if v < 0 {
			return model.Invalid("statistics.%s must not be negative", name)
		}
	}
	return nil
}

// Statistics

// GetTeamStatistics agrega as partidas concluídas em que o time jogou
func (r *Registry) GetTeamStatistics(ctx context.Context, teamID string) (model.TeamStatistics, error) {
	team, err := r.store.GetTeam(ctx, teamID)
	if err != nil {
		return model.TeamStatistics{}, err
	}
	matches, err := r.store.ListMatchesByTeam(ctx, teamID)
	if err != nil {
		return model.TeamStatistics{}, err
	}

	st := model.TeamStatistics{TeamID: team.ID, TeamName: team.Name, Players: []model.PlayerStats{}}
	for _, m := range matches {
		if m.Status != model.StatusCompleted {
			continue
		}
		side, ok := m.SideOf(teamID)
		if !ok {
			continue
		}
		own, opp := m.ScoreHome, m.ScoreAway
		if side == model.SideAway {
			own, opp = opp, own
		}
		st.MatchesPlayed++
		st.GoalsFor += own
		st.GoalsAgainst += opp
		switch {
		case own > opp:
			st.MatchesWon++
		case own == opp:
			st.MatchesDrawn++
		default:
			st.MatchesLost++
		}
	}
	if st.MatchesPlayed > 0 {
		pct := float64(st.MatchesWon) / float64(st.MatchesPlayed) * 100
		st.WinPercentage = math.Round(pct*100) / 100
	}

	players, err := r.store.ListPlayersByTeam(ctx, teamID)
	if err != nil {
		return model.TeamStatistics{}, err
	}
	for _, p := range players {
		st.Players = append(st.Players, model.PlayerStats{
			PlayerID:    p.ID,
			Name:        p.FullName(),
			SquadNumber: p.SquadNumber,
			Position:    p.Position,
			Statistics:  p.Statistics,
		})
	}
	return st, nil
}
