package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/httpjson"
)

// SelectionHandler expose en JSON le dernier snapshot et la liste suivie.
type SelectionHandler struct {
	selection *app.SelectionService
}

func NewSelectionHandler(selection *app.SelectionService) *SelectionHandler {
	return &SelectionHandler{selection: selection}
}

func (h *SelectionHandler) Routes(r chi.Router) {
	r.Get("/titles", h.titles)
	r.Get("/snapshot", h.snapshot)
	r.Get("/tracked", h.getTracked)
	r.Put("/tracked", h.putTracked)
}

func (h *SelectionHandler) titles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.selection.Titles(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, titles)
}

func (h *SelectionHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.selection.Snapshot(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, snap)
}

func (h *SelectionHandler) getTracked(w http.ResponseWriter, r *http.Request) {
	set, ok, err := h.selection.Tracked(r.Context())
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.TrackingDTO{Configured: ok, Tracked: set.Titles()})
}

type putTrackedRequest struct {
	Tracked []string `json:"tracked"`
}

func (h *SelectionHandler) putTracked(w http.ResponseWriter, r *http.Request) {
	var req putTrackedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set, err := h.selection.SaveTracked(r.Context(), req.Tracked)
	if err != nil {
		httpjson.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpjson.Write(w, http.StatusOK, app.TrackingDTO{Configured: true, Tracked: set.Titles()})
}
