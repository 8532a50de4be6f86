package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

// Postgres guarda cada entidade como documento JSONB (enviado como texto: o lib/pq
// codifica []byte como bytea).
// Incrementos de contador e append no log de eventos são um único UPDATE por documento.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// expectRow converte "nenhuma linha afetada" em NotFound
func expectRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound(entity, id)
	}
	return nil
}

func scanDocs[T any](rows *sql.Rows) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) getDoc(ctx context.Context, q, entity, id string, dst any) error {
	var raw []byte
	err := p.db.QueryRowContext(ctx, q, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return model.NotFound(entity, id)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Teams

func (p *Postgres) InsertTeam(ctx context.Context, t model.Team) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO teams(id, doc) VALUES($1, $2)`, t.ID, string(doc))
	if isUniqueViolation(err) {
		return model.Conflict("team %s already exists", t.ID)
	}
	return err
}

func (p *Postgres) GetTeam(ctx context.Context, id string) (model.Team, error) {
	var t model.Team
	err := p.getDoc(ctx, `SELECT doc FROM teams WHERE id = $1`, "team", id, &t)
	return t, err
}

func (p *Postgres) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM teams ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.Team](rows)
}

func (p *Postgres) ReplaceTeam(ctx context.Context, t model.Team) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE teams SET doc = $2 WHERE id = $1`, t.ID, string(doc))
	if err != nil {
		return err
	}
	return expectRow(res, "team", t.ID)
}

func (p *Postgres) DeleteTeam(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "team", id)
}

func (p *Postgres) AddTeamPlayer(ctx context.Context, teamID, playerID string) error {
	const q = `
		UPDATE teams
		SET doc = jsonb_set(doc, '{player_ids}',
			COALESCE(NULLIF(doc->'player_ids', 'null'::jsonb), '[]'::jsonb) || to_jsonb($2::text))
		WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, teamID, playerID)
	if err != nil {
		return err
	}
	return expectRow(res, "team", teamID)
}

func (p *Postgres) RemoveTeamPlayer(ctx context.Context, teamID, playerID string) error {
	const q = `
		UPDATE teams
		SET doc = jsonb_set(doc, '{player_ids}', COALESCE((
			SELECT jsonb_agg(e)
			FROM jsonb_array_elements(COALESCE(NULLIF(doc->'player_ids', 'null'::jsonb), '[]'::jsonb)) AS e
			WHERE e <> to_jsonb($2::text)
		), '[]'::jsonb))
		WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, teamID, playerID)
	if err != nil {
		return err
	}
	return expectRow(res, "team", teamID)
}

// Players

func (p *Postgres) InsertPlayer(ctx context.Context, pl model.Player) error {
	doc, err := json.Marshal(pl)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO players(id, team_id, doc) VALUES($1, $2, $3)`, pl.ID, pl.TeamID, string(doc))
	if isUniqueViolation(err) {
		return model.Conflict("player %s already exists", pl.ID)
	}
	return err
}

func (p *Postgres) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	var pl model.Player
	err := p.getDoc(ctx, `SELECT doc FROM players WHERE id = $1`, "player", id, &pl)
	return pl, err
}

func (p *Postgres) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM players ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.Player](rows)
}

func (p *Postgres) ListPlayersByTeam(ctx context.Context, teamID string) ([]model.Player, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM players WHERE team_id = $1 ORDER BY seq`, teamID)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.Player](rows)
}

func (p *Postgres) ReplacePlayer(ctx context.Context, pl model.Player) error {
	doc, err := json.Marshal(pl)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE players SET team_id = $2, doc = $3 WHERE id = $1`, pl.ID, pl.TeamID, string(doc))
	if err != nil {
		return err
	}
	return expectRow(res, "player", pl.ID)
}

func (p *Postgres) DeletePlayer(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "player", id)
}

func (p *Postgres) DeletePlayersByTeam(ctx context.Context, teamID string) (int, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM players WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// IncrementPlayerStat soma 1 ao contador direto no documento (statistics.<stat>)
func (p *Postgres) IncrementPlayerStat(ctx context.Context, playerID, stat string) error {
	if !model.ValidStat(stat) {
		return fmt.Errorf("unknown statistic %q", stat)
	}
	const q = `
		UPDATE players
		SET doc = jsonb_set(doc, ARRAY['statistics', $2::text],
			to_jsonb(COALESCE((doc #>> ARRAY['statistics', $2::text])::int, 0) + 1), true)
		WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, playerID, stat)
	if err != nil {
		return err
	}
	return expectRow(res, "player", playerID)
}

// Matches

func (p *Postgres) InsertMatch(ctx context.Context, m model.Match) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO matches(id, home_team_id, away_team_id, doc) VALUES($1, $2, $3, $4)`,
		m.ID, m.HomeTeamID, m.AwayTeamID, string(doc))
	if isUniqueViolation(err) {
		return model.Conflict("match %s already exists", m.ID)
	}
	return err
}

func (p *Postgres) GetMatch(ctx context.Context, id string) (model.Match, error) {
	var m model.Match
	err := p.getDoc(ctx, `SELECT doc FROM matches WHERE id = $1`, "match", id, &m)
	return m, err
}

func (p *Postgres) ListMatches(ctx context.Context) ([]model.Match, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM matches ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.Match](rows)
}

func (p *Postgres) ListMatchesByTeam(ctx context.Context, teamID string) ([]model.Match, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT doc FROM matches WHERE home_team_id = $1 OR away_team_id = $1 ORDER BY seq`, teamID)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.Match](rows)
}

func (p *Postgres) ReplaceMatch(ctx context.Context, m model.Match) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE matches SET home_team_id = $2, away_team_id = $3, doc = $4 WHERE id = $1`,
		m.ID, m.HomeTeamID, m.AwayTeamID, string(doc))
	if err != nil {
		return err
	}
	return expectRow(res, "match", m.ID)
}

// DeleteMatch remove a partida e o log de eventos na mesma transação
func (p *Postgres) DeleteMatch(ctx context.Context, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := expectRow(res, "match", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_events WHERE match_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) AppendMatchEvent(ctx context.Context, matchID string, ev model.MatchEvent) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	const q = `
		UPDATE matches
		SET doc = jsonb_set(doc, '{events}',
			COALESCE(NULLIF(doc->'events', 'null'::jsonb), '[]'::jsonb) || jsonb_build_array($2::jsonb))
		WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, matchID, string(doc))
	if err != nil {
		return err
	}
	return expectRow(res, "match", matchID)
}

func (p *Postgres) IncrementMatchScore(ctx context.Context, matchID string, side model.Side) error {
	if side != model.SideHome && side != model.SideAway {
		return fmt.Errorf("unknown side %q", side)
	}
	const q = `
		UPDATE matches
		SET doc = jsonb_set(doc, ARRAY[$2::text], to_jsonb(COALESCE((doc ->> $2::text)::int, 0) + 1), true)
		WHERE id = $1`
	res, err := p.db.ExecContext(ctx, q, matchID, side.ScoreField())
	if err != nil {
		return err
	}
	return expectRow(res, "match", matchID)
}

func (p *Postgres) SetMatchStatus(ctx context.Context, matchID string, status model.MatchStatus, startedAt *time.Time) error {
	patch := map[string]any{"status": status}
	if startedAt != nil {
		patch["timer_started_at"] = startedAt.UTC()
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE matches SET doc = doc || $2::jsonb WHERE id = $1`, matchID, string(b))
	if err != nil {
		return err
	}
	return expectRow(res, "match", matchID)
}

// Match events

func (p *Postgres) InsertEvent(ctx context.Context, ev model.MatchEvent) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO match_events(id, match_id, doc) VALUES($1, $2, $3)`, ev.ID, ev.MatchID, string(doc))
	if isUniqueViolation(err) {
		return model.Conflict("event %s already exists", ev.ID)
	}
	return err
}

func (p *Postgres) ListEvents(ctx context.Context, matchID string) ([]model.MatchEvent, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM match_events WHERE match_id = $1 ORDER BY seq`, matchID)
	if err != nil {
		return nil, err
	}
	return scanDocs[model.MatchEvent](rows)
}
