// Package notify délivre les notifications sur un canal (log, webhook, email).
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogTransport écrit le message dans les logs. Toujours prêt.
type LogTransport struct {
	logger zerolog.Logger
	ready  chan struct{}
}

func NewLogTransport(logger zerolog.Logger) *LogTransport {
	ready := make(chan struct{})
	close(ready)
	return &LogTransport{logger: logger.With().Str("transport", "log").Logger(), ready: ready}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Ready() <-chan struct{} { return t.ready }

func (t *LogTransport) Send(ctx context.Context, text string) error {
	t.logger.Info().Str("message", text).Msg("notification")
	return nil
}
