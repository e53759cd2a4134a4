package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

// Notifier formate les événements et les confie au transport injecté.
type Notifier struct {
	transport    ports.NotifyTransport
	locale       string
	readyTimeout time.Duration
}

func NewNotifier(transport ports.NotifyTransport, locale string, readyTimeout time.Duration) *Notifier {
	if readyTimeout <= 0 {
		readyTimeout = 30 * time.Second
	}
	return &Notifier{transport: transport, locale: locale, readyTimeout: readyTimeout}
}

func (n *Notifier) Transport() string {
	return n.transport.Name()
}

// Notify ne fait rien si events est vide. Sinon attend Ready (borné par
// readyTimeout) puis envoie un seul message.
func (n *Notifier) Notify(ctx context.Context, events []domain.EpisodeEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := n.waitReady(ctx); err != nil {
		return err
	}
	return n.transport.Send(ctx, domain.FormatMessage(n.locale, events))
}

func (n *Notifier) waitReady(ctx context.Context) error {
	ready := n.transport.Ready()
	select {
	case <-ready:
		return nil
	default:
	}

	timer := time.NewTimer(n.readyTimeout)
	defer timer.Stop()
	select {
	case <-ready:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: %s after %s", ErrTransportNotReady, n.transport.Name(), n.readyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
