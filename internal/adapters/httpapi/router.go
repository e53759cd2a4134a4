package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

// CycleRunner déclenche un cycle de polling à la demande.
type CycleRunner interface {
	RunCycle(ctx context.Context) (app.CycleResult, error)
}

type Server struct {
	logger    zerolog.Logger
	selection *app.SelectionService
	poller    CycleRunner
	bus       ports.EventBus
	// checkLimiter borne POST /api/v1/check (le site source n'aime pas être martelé).
	checkLimiter *rate.Limiter
	pages        *pages
}

func NewServer(logger zerolog.Logger, selection *app.SelectionService, poller CycleRunner, bus ports.EventBus) *Server {
	return &Server{
		logger:       logger,
		selection:    selection,
		poller:       poller,
		bus:          bus,
		checkLimiter: rate.NewLimiter(rate.Every(defaultCheckInterval), 1),
		pages:        mustLoadPages(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		NewPagesHandler(s.selection, s.pages).Routes(r)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)
			NewSelectionHandler(s.selection).Routes(r)
		})

		// Sans Timeout : flux SSE, et un cycle peut dépasser 30s.
		r.Get("/events", s.handleEvents)
		if s.poller != nil {
			r.Post("/check", s.handleCheck)
		}
	})

	return r
}
