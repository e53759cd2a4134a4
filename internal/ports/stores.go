package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
)

type SnapshotRepository interface {
	// Load renvoie le dernier snapshot persisté, ou un snapshot vide s'il n'y en a pas.
	Load(ctx context.Context) (domain.Snapshot, error)
	// Save remplace intégralement le snapshot précédent.
	Save(ctx context.Context, snapshot domain.Snapshot) error
}

type TrackingRepository interface {
	// Load renvoie ok=false tant qu'aucune sélection n'a été enregistrée.
	Load(ctx context.Context) (tracked domain.TrackedSet, ok bool, err error)
	Save(ctx context.Context, tracked domain.TrackedSet) error
}
