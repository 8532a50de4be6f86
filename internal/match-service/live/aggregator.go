// Package live aplica as transições de uma partida em andamento: início, eventos,
// status e edição. Cada mutação grava no store, atualiza o cache ao vivo e
// notifica os ouvintes.
package live

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/notify"
)

// Store são as escritas de documento único usadas pelo agregador
type Store interface {
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ReplaceMatch(ctx context.Context, m model.Match) error
	DeleteMatch(ctx context.Context, id string) error
	AppendMatchEvent(ctx context.Context, matchID string, ev model.MatchEvent) error
	IncrementMatchScore(ctx context.Context, matchID string, side model.Side) error
	SetMatchStatus(ctx context.Context, matchID string, status model.MatchStatus, startedAt *time.Time) error
	InsertEvent(ctx context.Context, ev model.MatchEvent) error

	GetPlayer(ctx context.Context, id string) (model.Player, error)
	IncrementPlayerStat(ctx context.Context, playerID, stat string) error
}

// Patcher faz merge e validação de uma edição de partida (registry.Registry)
type Patcher interface {
	ApplyMatchPatch(ctx context.Context, cur model.Match, patch []byte) (model.Match, error)
}

// Cache guarda o estado ao vivo da partida (cache.LiveCache)
type Cache interface {
	Get(ctx context.Context, matchID string) (model.Match, bool, error)
	Set(ctx context.Context, m model.Match) error
	Delete(ctx context.Context, matchID string) error
}

type Deps struct {
	Store   Store
	Patcher Patcher
	Sink    notify.Sink // nil = descarta
	Cache   Cache       // nil = sem cache
	Clock   clockwork.Clock
	Log     *zap.Logger

	OnEventRecorded func(model.EventType) // métricas
}

// NewEvent é a entrada de RecordEvent
type NewEvent struct {
	PlayerID       string          `json:"player_id"`
	EventType      model.EventType `json:"event_type"`
	Minute         int             `json:"minute"`
	AdditionalData map[string]any  `json:"additional_data,omitempty"`
}

type Aggregator struct {
	store   Store
	patcher Patcher
	sink    notify.Sink
	cache   Cache
	clock   clockwork.Clock
	log     *zap.Logger

	onEvent func(model.EventType)
	locks   *keyLock
}

func New(d Deps) *Aggregator {
	a := &Aggregator{
		store:   d.Store,
		patcher: d.Patcher,
		sink:    d.Sink,
		cache:   d.Cache,
		clock:   d.Clock,
		log:     d.Log,
		onEvent: d.OnEventRecorded,
		locks:   newKeyLock(),
	}
	if a.sink == nil {
		a.sink = notify.Discard
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// StartMatch coloca a partida em "live" e carimba timer_started_at.
// Chamar de novo recarimba o timer.
func (a *Aggregator) StartMatch(ctx context.Context, matchID string) (model.Match, error) {
	unlock := a.locks.Lock(matchID)
	defer unlock()

	now := a.clock.Now().UTC()
	if err := a.store.SetMatchStatus(ctx, matchID, model.StatusLive, &now); err != nil {
		return model.Match{}, err
	}
	m, err := a.refresh(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	a.log.Info("match started", zap.String("match_id", matchID), zap.Time("timer_started_at", now))
	a.publish(ctx, notify.MatchUpdated(matchID))
	return m, nil
}

// RecordEvent grava o evento, anexa ao log da partida, aplica placar/estatística e notifica.
// Jogador inexistente não impede o registro; só o passo de estatística é pulado.
func (a *Aggregator) RecordEvent(ctx context.Context, matchID string, in NewEvent) (model.MatchEvent, error) {
	if !in.EventType.Valid() {
		return model.MatchEvent{}, model.Invalid("unknown event_type %q", in.EventType)
	}
	if in.Minute < 0 {
		return model.MatchEvent{}, model.Invalid("minute must not be negative")
	}
	in.PlayerID = strings.TrimSpace(in.PlayerID)
	if in.PlayerID == "" {
		return model.MatchEvent{}, model.Invalid("player_id is required")
	}

	unlock := a.locks.Lock(matchID)
	defer unlock()

	m, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return model.MatchEvent{}, err
	}

	var (
		player      model.Player
		playerFound bool
	)
	player, err = a.store.GetPlayer(ctx, in.PlayerID)
	switch {
	case err == nil:
		playerFound = true
	case errors.Is(err, model.ErrNotFound):
		a.log.Warn("event for unknown player, statistics skipped",
			zap.String("match_id", matchID), zap.String("player_id", in.PlayerID))
	default:
		return model.MatchEvent{}, err
	}

	ev := model.MatchEvent{
		ID:             uuid.NewString(),
		MatchID:        matchID,
		PlayerID:       in.PlayerID,
		TeamID:         player.TeamID,
		EventType:      in.EventType,
		Minute:         in.Minute,
		Timestamp:      a.clock.Now().UTC(),
		AdditionalData: in.AdditionalData,
	}
	if err := a.store.InsertEvent(ctx, ev); err != nil {
		return model.MatchEvent{}, err
	}
	if err := a.store.AppendMatchEvent(ctx, matchID, ev); err != nil {
		return model.MatchEvent{}, err
	}

	if playerFound {
		if err := a.apply(ctx, m, player, ev); err != nil {
			return model.MatchEvent{}, err
		}
	}
	if a.onEvent != nil {
		a.onEvent(ev.EventType)
	}

	if _, err := a.refresh(ctx, matchID); err != nil {
		a.log.Warn("live state refresh failed", zap.String("match_id", matchID), zap.Error(err))
	}
	a.log.Info("match event recorded",
		zap.String("match_id", matchID),
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.EventType)),
		zap.Int("minute", ev.Minute))

	msg, err := notify.MatchEvent(matchID, ev)
	if err != nil {
		a.log.Error("encode notification failed", zap.Error(err))
		return ev, nil
	}
	a.publish(ctx, msg)
	return ev, nil
}

// apply incrementa a estatística do jogador e, em gol, o placar do lado do time dele
func (a *Aggregator) apply(ctx context.Context, m model.Match, p model.Player, ev model.MatchEvent) error {
	stat := ev.EventType.Stat()
	if stat == "" {
		return nil
	}
	if err := a.store.IncrementPlayerStat(ctx, p.ID, stat); err != nil {
		return err
	}
	if ev.EventType != model.EventGoal {
		return nil
	}
	side, ok := m.SideOf(p.TeamID)
	if !ok {
		a.log.Debug("goal by player outside both teams, score unchanged",
			zap.String("match_id", m.ID), zap.String("player_id", p.ID))
		return nil
	}
	return a.store.IncrementMatchScore(ctx, m.ID, side)
}

// SetStatus sobrescreve o status sem checar a transição
func (a *Aggregator) SetStatus(ctx context.Context, matchID string, status model.MatchStatus) (model.Match, error) {
	if !status.Valid() {
		return model.Match{}, model.Invalid("unknown status %q", status)
	}

	unlock := a.locks.Lock(matchID)
	defer unlock()

	if err := a.store.SetMatchStatus(ctx, matchID, status, nil); err != nil {
		return model.Match{}, err
	}
	m, err := a.refresh(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	a.log.Info("match status changed", zap.String("match_id", matchID), zap.String("status", string(status)))
	a.publish(ctx, notify.MatchUpdated(matchID))
	return m, nil
}

// UpdateMatch aplica uma edição parcial (PUT/PATCH) sobre a partida
func (a *Aggregator) UpdateMatch(ctx context.Context, matchID string, patch []byte) (model.Match, error) {
	unlock := a.locks.Lock(matchID)
	defer unlock()

	cur, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	next, err := a.patcher.ApplyMatchPatch(ctx, cur, patch)
	if err != nil {
		return model.Match{}, err
	}
	if err := a.store.ReplaceMatch(ctx, next); err != nil {
		return model.Match{}, err
	}
	a.storeCache(ctx, next)
	a.publish(ctx, notify.MatchUpdated(matchID))
	return next, nil
}

// DeleteMatch remove a partida, o log de eventos e a entrada do cache
func (a *Aggregator) DeleteMatch(ctx context.Context, matchID string) error {
	unlock := a.locks.Lock(matchID)
	defer unlock()

	if err := a.store.DeleteMatch(ctx, matchID); err != nil {
		return err
	}
	if a.cache != nil {
		if err := a.cache.Delete(ctx, matchID); err != nil {
			a.log.Warn("live cache delete failed", zap.String("match_id", matchID), zap.Error(err))
		}
	}
	a.log.Info("match deleted", zap.String("match_id", matchID))
	return nil
}

// GetLiveState lê do cache quando disponível; miss cai no store e repopula
func (a *Aggregator) GetLiveState(ctx context.Context, matchID string) (model.Match, error) {
	if a.cache != nil {
		m, ok, err := a.cache.Get(ctx, matchID)
		if err != nil {
			a.log.Warn("live cache get failed", zap.String("match_id", matchID), zap.Error(err))
		} else if ok {
			return m, nil
		}
	}
	m, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	a.storeCache(ctx, m)
	return m, nil
}

// refresh relê a partida e escreve no cache
func (a *Aggregator) refresh(ctx context.Context, matchID string) (model.Match, error) {
	m, err := a.store.GetMatch(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	a.storeCache(ctx, m)
	return m, nil
}

func (a *Aggregator) storeCache(ctx context.Context, m model.Match) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, m); err != nil {
		a.log.Warn("live cache set failed", zap.String("match_id", m.ID), zap.Error(err))
	}
}

// publish nunca falha a mutação; o request pode ter sido cancelado depois do commit
func (a *Aggregator) publish(ctx context.Context, msg notify.Message) {
	if err := a.sink.Publish(context.WithoutCancel(ctx), msg); err != nil {
		a.log.Warn("notification publish failed",
			zap.String("kind", msg.Kind), zap.String("match_id", msg.MatchID), zap.Error(err))
	}
}
