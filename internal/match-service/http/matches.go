package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/live"
	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

type statusRequest struct {
	Status model.MatchStatus `json:"status"`
}

// eventRequest é o corpo de POST /api/match-events
type eventRequest struct {
	MatchID string `json:"match_id"`
	live.NewEvent
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := a.Registry.ListMatches(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (a *API) createMatch(w http.ResponseWriter, r *http.Request) {
	var m model.Match
	if err := decode(w, r, &m); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.Registry.CreateMatch(r.Context(), m)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.Registry.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) updateMatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.Live.UpdateMatch(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) deleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := a.Live.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, "Match deleted successfully")
}

func (a *API) startMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.Live.StartMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.Live.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := a.Registry.ListMatchEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func (a *API) recordEvent(w http.ResponseWriter, r *http.Request) {
	var in live.NewEvent
	if err := decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.record(w, r, chi.URLParam(r, "id"), in)
}

func (a *API) recordEventByBody(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.MatchID == "" {
		a.writeError(w, r, model.Invalid("match_id is required"))
		return
	}
	a.record(w, r, req.MatchID, req.NewEvent)
}

func (a *API) record(w http.ResponseWriter, r *http.Request, matchID string, in live.NewEvent) {
	ev, err := a.Live.RecordEvent(r.Context(), matchID, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (a *API) liveState(w http.ResponseWriter, r *http.Request) {
	m, err := a.Live.GetLiveState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
