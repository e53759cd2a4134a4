package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

// Source produit le listing courant d'un site.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (domain.SourceListing, error)
}

// NotifyTransport délivre un message déjà formaté.
// Ready est fermé une fois le transport utilisable.
type NotifyTransport interface {
	Name() string
	Ready() <-chan struct{}
	Send(ctx context.Context, text string) error
}
