package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/formation"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/live"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

const (
	serviceBanner  = "Grassroots Match Tracker API"
	serviceVersion = "1.0.0"

	maxBodyBytes = 8 << 20 // logos e fotos chegam em base64
)

// Registry é o que a API usa do registry.Registry
type Registry interface {
	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	GetTeam(ctx context.Context, id string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	UpdateTeam(ctx context.Context, id string, patch []byte) (model.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	GetTeamStatistics(ctx context.Context, teamID string) (model.TeamStatistics, error)

	CreatePlayer(ctx context.Context, p model.Player) (model.Player, error)
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	ListPlayers(ctx context.Context) ([]model.Player, error)
	ListTeamPlayers(ctx context.Context, teamID string) ([]model.Player, error)
	UpdatePlayer(ctx context.Context, id string, patch []byte) (model.Player, error)
	DeletePlayer(ctx context.Context, id string) error
	PlayerStatistics(ctx context.Context, id string) (model.Statistics, error)

	CreateMatch(ctx context.Context, m model.Match) (model.Match, error)
	GetMatch(ctx context.Context, id string) (model.Match, error)
	ListMatches(ctx context.Context) ([]model.Match, error)
	ListMatchEvents(ctx context.Context, matchID string) ([]model.MatchEvent, error)
}

// Live é o que a API usa do live.Aggregator
type Live interface {
	StartMatch(ctx context.Context, matchID string) (model.Match, error)
	RecordEvent(ctx context.Context, matchID string, in live.NewEvent) (model.MatchEvent, error)
	SetStatus(ctx context.Context, matchID string, status model.MatchStatus) (model.Match, error)
	UpdateMatch(ctx context.Context, matchID string, patch []byte) (model.Match, error)
	DeleteMatch(ctx context.Context, matchID string) error
	GetLiveState(ctx context.Context, matchID string) (model.Match, error)
}

// API expõe os endpoints REST e o WebSocket de notificações
type API struct {
	Registry Registry
	Live     Live
	Catalog  *formation.Catalog
	WS       http.HandlerFunc // hub.HandleWS
	Log      *zap.Logger

	AllowedOrigins []string
	Metrics        func(http.Handler) http.Handler // opcional
}

// Router retorna o roteador HTTP com todos os endpoints
func (a *API) Router() http.Handler {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if a.Metrics != nil {
		r.Use(a.Metrics)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: a.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/", a.banner)
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", a.listTeams)
			r.Post("/", a.createTeam)
			r.Get("/{id}", a.getTeam)
			r.Put("/{id}", a.updateTeam)
			r.Patch("/{id}", a.updateTeam)
			r.Delete("/{id}", a.deleteTeam)
			r.Get("/{id}/players", a.listTeamPlayers)
			r.Post("/{id}/players", a.createTeamPlayer)
			r.Get("/{id}/stats", a.teamStats)
		})

		r.Route("/players", func(r chi.Router) {
			r.Get("/", a.listPlayers)
			r.Post("/", a.createPlayer)
			r.Get("/{id}", a.getPlayer)
			r.Put("/{id}", a.updatePlayer)
			r.Patch("/{id}", a.updatePlayer)
			r.Delete("/{id}", a.deletePlayer)
			r.Get("/{id}/stats", a.playerStats)
		})

		r.Route("/formations", func(r chi.Router) {
			r.Get("/", a.catalog)
			r.Get("/age-groups/{age_group}", a.formationsForAgeGroup)
			r.Get("/{format}/{name}", a.formation)
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", a.listMatches)
			r.Post("/", a.createMatch)
			r.Get("/{id}", a.getMatch)
			r.Put("/{id}", a.updateMatch)
			r.Patch("/{id}", a.updateMatch)
			r.Delete("/{id}", a.deleteMatch)
			r.Post("/{id}/start", a.startMatch)
			r.Put("/{id}/status", a.setStatus)
			r.Get("/{id}/events", a.listEvents)
			r.Post("/{id}/events", a.recordEvent)
			r.Get("/{id}/live", a.liveState)
		})

		// rota antiga: match_id no corpo
		r.Post("/match-events", a.recordEventByBody)
	})
	return r
}

func (a *API) banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": serviceBanner, "version": serviceVersion})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeError traduz o tipo do erro em status HTTP
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode lê o corpo JSON em v; JSON inválido vira ValidationError
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return model.Invalid("malformed JSON body: %v", err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.Invalid("body larger than %d bytes", tooLarge.Limit)
		}
		return nil, model.Invalid("read body: %v", err)
	}
	return body, nil
}

// OriginChecker aplica a mesma lista do CORS ao upgrade do WebSocket.
// Sem header Origin (clientes fora do navegador) a conexão é aceita.
func OriginChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] {
			return true
		}
		return allowed[strings.ToLower(origin)]
	}
}
