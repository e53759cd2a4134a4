package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
)

//go:embed templates/*.html
var templatesFS embed.FS

type pages struct {
	tmpl *template.Template
}

func mustLoadPages() *pages {
	return &pages{tmpl: template.Must(template.ParseFS(templatesFS, "templates/*.html"))}
}

// render passe par un buffer pour ne rien écrire si le template échoue.
func (p *pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "Hata: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// PagesHandler sert l'interface de sélection HTML.
type PagesHandler struct {
	selection *app.SelectionService
	pages     *pages
}

func NewPagesHandler(selection *app.SelectionService, p *pages) *PagesHandler {
	return &PagesHandler{selection: selection, pages: p}
}

func (h *PagesHandler) Routes(r chi.Router) {
	r.Get("/", h.index)
	r.Get("/select", h.selectForm)
	r.Post("/select", h.saveSelection)
}

type optionView struct {
	Title   string
	Cover   string
	Checked bool
}

func (h *PagesHandler) index(w http.ResponseWriter, r *http.Request) {
	set, ok, err := h.selection.Tracked(r.Context())
	if err != nil {
		http.Error(w, "Hata: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok || set.Len() == 0 {
		http.Redirect(w, r, "/select", http.StatusFound)
		return
	}
	h.pages.render(w, r, "index", map[string]any{
		"Title":   "Anime Takip",
		"Tracked": set.Titles(),
	})
}

func (h *PagesHandler) selectForm(w http.ResponseWriter, r *http.Request) {
	titles, err := h.selection.Titles(r.Context())
	if err != nil {
		http.Error(w, "Hata: "+err.Error(), http.StatusInternalServerError)
		return
	}
	set, _, err := h.selection.Tracked(r.Context())
	if err != nil {
		http.Error(w, "Hata: "+err.Error(), http.StatusInternalServerError)
		return
	}

	options := make([]optionView, 0, len(titles))
	for _, t := range titles {
		options = append(options, optionView{Title: t.Title, Cover: t.Cover, Checked: set.Contains(t.Title)})
	}
	h.pages.render(w, r, "select", map[string]any{
		"Title":   "Anime Takip Seçimi",
		"Options": options,
	})
}

func (h *PagesHandler) saveSelection(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Hata: "+err.Error(), http.StatusBadRequest)
		return
	}
	// Aucun champ "tracked" = sélection vide, ce qui désactive les notifications.
	set, err := h.selection.SaveTracked(r.Context(), r.PostForm["tracked"])
	if err != nil {
		http.Error(w, "Hata: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.pages.render(w, r, "saved", map[string]any{
		"Title":   "Seçiminiz kaydedildi",
		"Tracked": set.Titles(),
	})
}
