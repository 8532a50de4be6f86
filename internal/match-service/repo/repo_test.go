package repo

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
	"github.com/radieske/grassroots-match-tracker/internal/shared/db"
)

// store é o conjunto de métodos comum às duas implementações
type store interface {
	InsertTeam(ctx context.Context, t model.Team) error
	GetTeam(ctx context.Context, id string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ReplaceTeam(ctx context.Context, t model.Team) error
	DeleteTeam(ctx context.Context, id string) error
	AddTeamPlayer(ctx context.Context, teamID, playerID string) error
	RemoveTeamPlayer(ctx context.Context, teamID, playerID string) error

	InsertPlayer(ctx context.Context, p model.Player) error
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	ListPlayersByTeam(ctx context.Context, teamID string) ([]model.Player, error)
	DeletePlayersByTeam(ctx context.Context, teamID string) (int, error)
	IncrementPlayerStat(ctx context.Context, playerID, stat string) error

	InsertMatch(ctx context.Context, m model.Match) error
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ListMatchesByTeam(ctx context.Context, teamID string) ([]model.Match, error)
	DeleteMatch(ctx context.Context, id string) error
	AppendMatchEvent(ctx context.Context, matchID string, ev model.MatchEvent) error
	IncrementMatchScore(ctx context.Context, matchID string, side model.Side) error
	SetMatchStatus(ctx context.Context, matchID string, status model.MatchStatus, startedAt *time.Time) error

	InsertEvent(ctx context.Context, ev model.MatchEvent) error
	ListEvents(ctx context.Context, matchID string) ([]model.MatchEvent, error)
}

var (
	_ store = (*Memory)(nil)
	_ store = (*Postgres)(nil)
)

// exerciseStore roda o mesmo roteiro contra qualquer implementação
func exerciseStore(t *testing.T, s store) {
	ctx := context.Background()
	id := func() string { return uuid.NewString() }

	teamA := model.Team{ID: id(), Name: "Rovers", AgeGroup: "U13", PlayerIDs: []string{}}
	teamB := model.Team{ID: id(), Name: "United", AgeGroup: "U13", PlayerIDs: []string{}}
	for _, tm := range []model.Team{teamA, teamB} {
		if err := s.InsertTeam(ctx, tm); err != nil {
			t.Fatalf("InsertTeam returned error: %v", err)
		}
	}
	if err := s.InsertTeam(ctx, teamA); !errors.Is(err, model.ErrConflict) {
		t.Errorf("duplicate InsertTeam error = %v, want ErrConflict", err)
	}

	p1 := model.Player{ID: id(), TeamID: teamA.ID, FirstName: "Sam", LastName: "Kerr", SquadNumber: 9}
	p2 := model.Player{ID: id(), TeamID: teamA.ID, FirstName: "Alex", SquadNumber: 9}
	for _, p := range []model.Player{p1, p2} {
		if err := s.InsertPlayer(ctx, p); err != nil {
			t.Fatalf("InsertPlayer returned error: %v", err)
		}
		if err := s.AddTeamPlayer(ctx, teamA.ID, p.ID); err != nil {
			t.Fatalf("AddTeamPlayer returned error: %v", err)
		}
	}

	got, err := s.GetTeam(ctx, teamA.ID)
	if err != nil {
		t.Fatalf("GetTeam returned error: %v", err)
	}
	if len(got.PlayerIDs) != 2 || got.PlayerIDs[0] != p1.ID {
		t.Errorf("PlayerIDs = %v, want [%s %s]", got.PlayerIDs, p1.ID, p2.ID)
	}

	if err := s.RemoveTeamPlayer(ctx, teamA.ID, p1.ID); err != nil {
		t.Fatalf("RemoveTeamPlayer returned error: %v", err)
	}
	got, _ = s.GetTeam(ctx, teamA.ID)
	if len(got.PlayerIDs) != 1 || got.PlayerIDs[0] != p2.ID {
		t.Errorf("PlayerIDs after remove = %v, want [%s]", got.PlayerIDs, p2.ID)
	}

	if err := s.IncrementPlayerStat(ctx, p1.ID, model.StatGoals); err != nil {
		t.Fatalf("IncrementPlayerStat returned error: %v", err)
	}
	if err := s.IncrementPlayerStat(ctx, p1.ID, model.StatGoals); err != nil {
		t.Fatalf("IncrementPlayerStat returned error: %v", err)
	}
	if err := s.IncrementPlayerStat(ctx, p1.ID, "own_goals"); err == nil {
		t.Error("IncrementPlayerStat accepted an unknown statistic")
	}
	if err := s.IncrementPlayerStat(ctx, "missing", model.StatGoals); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("IncrementPlayerStat(missing) error = %v, want ErrNotFound", err)
	}
	pl, _ := s.GetPlayer(ctx, p1.ID)
	if pl.Statistics.Goals != 2 || pl.Statistics.Assists != 0 {
		t.Errorf("statistics = %+v, want goals=2", pl.Statistics)
	}

	m := model.Match{ID: id(), HomeTeamID: teamA.ID, AwayTeamID: teamB.ID, MatchFormat: "11v11", Status: model.StatusScheduled}
	m.Normalize()
	if err := s.InsertMatch(ctx, m); err != nil {
		t.Fatalf("InsertMatch returned error: %v", err)
	}

	ev := model.MatchEvent{ID: id(), MatchID: m.ID, PlayerID: p1.ID, EventType: model.EventGoal, Minute: 15,
		Timestamp: time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)}
	if err := s.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("InsertEvent returned error: %v", err)
	}
	if err := s.AppendMatchEvent(ctx, m.ID, ev); err != nil {
		t.Fatalf("AppendMatchEvent returned error: %v", err)
	}
	if err := s.IncrementMatchScore(ctx, m.ID, model.SideHome); err != nil {
		t.Fatalf("IncrementMatchScore returned error: %v", err)
	}
	started := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := s.SetMatchStatus(ctx, m.ID, model.StatusLive, &started); err != nil {
		t.Fatalf("SetMatchStatus returned error: %v", err)
	}

	live, err := s.GetMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMatch returned error: %v", err)
	}
	if live.ScoreHome != 1 || live.ScoreAway != 0 {
		t.Errorf("score = %d-%d, want 1-0", live.ScoreHome, live.ScoreAway)
	}
	if len(live.Events) != 1 || live.Events[0].ID != ev.ID {
		t.Errorf("embedded events = %+v, want the goal", live.Events)
	}
	if live.Status != model.StatusLive || live.TimerStartedAt == nil || !live.TimerStartedAt.Equal(started) {
		t.Errorf("status/timer = %s/%v", live.Status, live.TimerStartedAt)
	}

	byTeam, _ := s.ListMatchesByTeam(ctx, teamB.ID)
	if len(byTeam) != 1 {
		t.Errorf("ListMatchesByTeam(away) = %d matches, want 1", len(byTeam))
	}

	if err := s.DeleteMatch(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMatch returned error: %v", err)
	}
	if evs, _ := s.ListEvents(ctx, m.ID); len(evs) != 0 {
		t.Errorf("events survived match delete: %d", len(evs))
	}
	if _, err := s.GetMatch(ctx, m.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetMatch after delete error = %v, want ErrNotFound", err)
	}

	n, err := s.DeletePlayersByTeam(ctx, teamA.ID)
	if err != nil || n != 2 {
		t.Errorf("DeletePlayersByTeam = %d, %v; want 2, nil", n, err)
	}
	if players, _ := s.ListPlayersByTeam(ctx, teamA.ID); len(players) != 0 {
		t.Errorf("players survived cascade: %d", len(players))
	}
	if err := s.DeleteTeam(ctx, teamA.ID); err != nil {
		t.Fatalf("DeleteTeam returned error: %v", err)
	}
	if err := s.DeleteTeam(ctx, teamA.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second DeleteTeam error = %v, want ErrNotFound", err)
	}
}

// TestMemoryStore tests the in-memory store.
func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

// TestMemoryReturnsCopies tests that callers cannot mutate stored documents.
func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.InsertTeam(ctx, model.Team{ID: "t1", Name: "Rovers", PlayerIDs: []string{"a"}})

	got, _ := s.GetTeam(ctx, "t1")
	got.PlayerIDs[0] = "mutated"
	got.Name = "mutated"

	again, _ := s.GetTeam(ctx, "t1")
	if again.Name != "Rovers" || again.PlayerIDs[0] != "a" {
		t.Errorf("stored team was mutated through a returned copy: %+v", again)
	}
}

// TestMemoryInsertionOrder tests that listings keep insertion order.
func TestMemoryInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, id := range []string{"c", "a", "b"} {
		_ = s.InsertTeam(ctx, model.Team{ID: id, Name: id})
	}
	teams, _ := s.ListTeams(ctx)
	if len(teams) != 3 || teams[0].ID != "c" || teams[1].ID != "a" || teams[2].ID != "b" {
		t.Errorf("ListTeams order = %v", teams)
	}
}

// TestPostgresStore runs the same scenario against a real database when
// POSTGRES_TEST_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	pg, err := db.ConnectPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })
	if err := db.Migrate(pg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	truncate(t, pg)

	exerciseStore(t, NewPostgres(pg))
}

func truncate(t *testing.T, pg *sql.DB) {
	t.Helper()
	if _, err := pg.Exec(`TRUNCATE teams, players, matches, match_events`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
