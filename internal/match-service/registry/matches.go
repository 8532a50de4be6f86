package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/formation"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

const defaultMatchFormat = "11v11"

// CreateMatch valida contra o catálogo e persiste a partida como "scheduled" por padrão
func (r *Registry) CreateMatch(ctx context.Context, m model.Match) (model.Match, error) {
	m.ID = uuid.NewString()
	m.CreatedAt = r.now()
	m.Events = []model.MatchEvent{}
	m.TimerStartedAt = nil
	normalizeMatch(&m)
	if err := r.validateMatch(ctx, m, model.Match{}); err != nil {
		return model.Match{}, err
	}

	if err := r.store.InsertMatch(ctx, m); err != nil {
		return model.Match{}, err
	}
	r.log.Info("match created",
		zap.String("match_id", m.ID),
		zap.String("home_team_id", m.HomeTeamID),
		zap.String("away_team_id", m.AwayTeamID),
		zap.String("format", m.MatchFormat))
	return m, nil
}

func (r *Registry) GetMatch(ctx context.Context, id string) (model.Match, error) {
	return r.store.GetMatch(ctx, id)
}

func (r *Registry) ListMatches(ctx context.Context) ([]model.Match, error) {
	return r.store.ListMatches(ctx)
}

// ListMatchEvents devolve o log de eventos na ordem de gravação
func (r *Registry) ListMatchEvents(ctx context.Context, matchID string) ([]model.MatchEvent, error) {
	if _, err := r.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return r.store.ListEvents(ctx, matchID)
}

// ApplyMatchPatch faz o merge parcial sobre a partida atual e valida o resultado.
// O log de eventos e o timer só mudam pelas transições do agregador.
func (r *Registry) ApplyMatchPatch(ctx context.Context, cur model.Match, patch []byte) (model.Match, error) {
	next, err := mergeInto(cur, patch, "id", "created_at", "events", "timer_started_at")
	if err != nil {
		return model.Match{}, err
	}
	normalizeMatch(&next)
	if err := r.validateMatch(ctx, next, cur); err != nil {
		return model.Match{}, err
	}
	return next, nil
}

func normalizeMatch(m *model.Match) {
	m.HomeTeamID = strings.TrimSpace(m.HomeTeamID)
	m.AwayTeamID = strings.TrimSpace(m.AwayTeamID)
	if m.MatchFormat == "" {
		m.MatchFormat = defaultMatchFormat
	}
	if m.MatchType == "" {
		m.MatchType = model.MatchFriendly
	}
	if m.Status == "" {
		m.Status = model.StatusScheduled
	}
	m.Normalize()
}

// validateMatch checa a partida inteira; prev é o estado salvo (zero na criação).
// Times só são conferidos quando a referência muda, então uma partida cujo time
// foi excluído continua editável.
func (r *Registry) validateMatch(ctx context.Context, m, prev model.Match) error {
	if !m.MatchType.Valid() {
		return model.Invalid("unknown match_type %q", m.MatchType)
	}
	if !m.Status.Valid() {
		return model.Invalid("unknown status %q", m.Status)
	}
	if m.ScoreHome < 0 || m.ScoreAway < 0 {
		return model.Invalid("scores must not be negative")
	}
	if m.HomeTeamID != "" && m.HomeTeamID == m.AwayTeamID {
		return model.Invalid("home_team_id and away_team_id must differ")
	}
	for _, ref := range []struct{ id, prev string }{
		{m.HomeTeamID, prev.HomeTeamID},
		{m.AwayTeamID, prev.AwayTeamID},
	} {
		if ref.id == "" || ref.id == ref.prev {
			continue
		}
		if _, err := r.store.GetTeam(ctx, ref.id); err != nil {
			return err
		}
	}

	format, err := r.catalog.Format(m.MatchFormat)
	if err != nil {
		return model.Invalid("unknown match_format %q", m.MatchFormat)
	}

	var formations []formation.Formation
	for _, name := range []string{m.HomeFormation, m.AwayFormation} {
		if name == "" {
			continue
		}
		fm, err := r.catalog.Formation(format.Name, name)
		if err != nil {
			return model.Invalid("formation %q is not defined for %s", name, format.Name)
		}
		formations = append(formations, fm)
	}

	sides := []struct {
		name   string
		lineup []string
		subs   []string
	}{
		{"home", m.HomeLineup, m.HomeSubstitutes},
		{"away", m.AwayLineup, m.AwaySubstitutes},
	}
	for _, s := range sides {
		if len(s.lineup) > format.Players {
			return model.Invalid("%s_lineup has %d players, %s allows %d", s.name, len(s.lineup), format.Name, format.Players)
		}
		if len(s.subs) > format.MaxSubstitutes {
			return model.Invalid("%s_substitutes has %d players, %s allows %d", s.name, len(s.subs), format.Name, format.MaxSubstitutes)
		}
		seen := make(map[string]bool, len(s.lineup)+len(s.subs))
		for _, id := range append(append([]string{}, s.lineup...), s.subs...) {
			if seen[id] {
				return model.Conflict("player %s listed twice for the %s side", id, s.name)
			}
			seen[id] = true
		}
	}

	for pos := range m.Positions {
		found := false
		for _, fm := range formations {
			if fm.Has(pos) {
				found = true
				break
			}
		}
		if !found {
			return model.Invalid("position %q is not part of the selected formations", pos)
		}
	}
	return nil
}
