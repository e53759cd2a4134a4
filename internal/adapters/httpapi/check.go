package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/app"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/httpjson"
)

const (
	defaultCheckInterval = 30 * time.Second
	// Délai d'attente du transport et fetch compris.
	defaultCheckTimeout = 5 * time.Minute
)

// handleCheck lance un cycle immédiatement et renvoie son résultat.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.checkLimiter.Allow() {
		w.Header().Set("Retry-After", "30")
		httpjson.WriteError(w, http.StatusTooManyRequests, "check rate limited")
		return
	}

	// Le cycle continue si le client se déconnecte : une fois le snapshot
	// persisté, la notification ne doit pas être perdue.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), defaultCheckTimeout)
	defer cancel()

	res, err := s.poller.RunCycle(ctx)
	switch {
	case errors.Is(err, app.ErrCycleInProgress):
		httpjson.WriteError(w, http.StatusConflict, err.Error())
	case err != nil:
		hlog.FromRequest(r).Warn().Err(err).Msg("manual check failed")
		httpjson.Write(w, http.StatusBadGateway, res)
	default:
		httpjson.Write(w, http.StatusOK, res)
	}
}
