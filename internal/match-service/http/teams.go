package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.Registry.ListTeams(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (a *API) createTeam(w http.ResponseWriter, r *http.Request) {
	var t model.Team
	if err := decode(w, r, &t); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.Registry.CreateTeam(r.Context(), t)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) getTeam(w http.ResponseWriter, r *http.Request) {
	t, err := a.Registry.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateTeam atende PUT e PATCH: os dois fazem merge dos campos enviados
func (a *API) updateTeam(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	t, err := a.Registry.UpdateTeam(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := a.Registry.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, "Team deleted successfully")
}

func (a *API) listTeamPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.Registry.ListTeamPlayers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// createTeamPlayer usa o time da URL, ignorando team_id do corpo
func (a *API) createTeamPlayer(w http.ResponseWriter, r *http.Request) {
	var p model.Player
	if err := decode(w, r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	p.TeamID = chi.URLParam(r, "id")
	created, err := a.Registry.CreatePlayer(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) teamStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.Registry.GetTeamStatistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Players

func (a *API) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := a.Registry.ListPlayers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (a *API) createPlayer(w http.ResponseWriter, r *http.Request) {
	var p model.Player
	if err := decode(w, r, &p); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.Registry.CreatePlayer(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) getPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := a.Registry.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) updatePlayer(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.Registry.UpdatePlayer(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := a.Registry.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, "Player deleted successfully")
}

func (a *API) playerStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := a.Registry.PlayerStatistics(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"player_id": id, "statistics": st})
}
