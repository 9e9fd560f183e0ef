package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/amplipi-prefs/internal/models"
)

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	all, appErr := h.ctrl.Snapshot(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": all})
}

func (h *Handlers) getSetting(w http.ResponseWriter, r *http.Request) {
	s, appErr := h.ctrl.Get(r.Context(), chi.URLParam(r, "key"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) setSetting(w http.ResponseWriter, r *http.Request) {
	var upd models.SettingUpdate
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	raw, appErr := rawValue(upd.Value)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	s, appErr := h.ctrl.Set(r.Context(), chi.URLParam(r, "key"), raw)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) commitSetting(w http.ResponseWriter, r *http.Request) {
	s, appErr := h.ctrl.Commit(r.Context(), chi.URLParam(r, "key"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) flush(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.Flush(r.Context()); appErr != nil {
		writeError(w, appErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
