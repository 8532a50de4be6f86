package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// catalog devolve as tabelas inteiras: formatos e faixas etárias
func (a *API) catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats":    a.Catalog.Formats(),
		"age_groups": a.Catalog.AgeGroups(),
	})
}

func (a *API) formationsForAgeGroup(w http.ResponseWriter, r *http.Request) {
	set, err := a.Catalog.GetFormations(chi.URLParam(r, "age_group"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (a *API) formation(w http.ResponseWriter, r *http.Request) {
	fm, err := a.Catalog.Formation(chi.URLParam(r, "format"), chi.URLParam(r, "name"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fm)
}
