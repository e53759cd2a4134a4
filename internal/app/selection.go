package app

import (
	"context"
	"encoding/json"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/metrics"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

// SelectionService sert la page de sélection et l'API : lecture du dernier
// snapshot, lecture/remplacement des titres suivis.
type SelectionService struct {
	snapshots ports.SnapshotRepository
	tracking  ports.TrackingRepository
	bus       ports.EventBus
}

func NewSelectionService(snapshots ports.SnapshotRepository, tracking ports.TrackingRepository, bus ports.EventBus) *SelectionService {
	return &SelectionService{snapshots: snapshots, tracking: tracking, bus: bus}
}

func (s *SelectionService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return s.snapshots.Load(ctx)
}

// Titles liste tous les titres du dernier snapshot, sans doublon.
func (s *SelectionService) Titles(ctx context.Context) ([]domain.TitleOption, error) {
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.AllTitles(snap), nil
}

// Tracked renvoie ok=false tant que l'utilisateur n'a rien enregistré.
func (s *SelectionService) Tracked(ctx context.Context) (domain.TrackedSet, bool, error) {
	return s.tracking.Load(ctx)
}

type TrackingDTO struct {
	Configured bool     `json:"configured"`
	Tracked    []string `json:"tracked"`
}

// SaveTracked remplace intégralement la sélection. Une liste vide est valide
// et désactive les notifications.
func (s *SelectionService) SaveTracked(ctx context.Context, titles []string) (domain.TrackedSet, error) {
	set := domain.NewTrackedSet(titles...)
	if err := s.tracking.Save(ctx, set); err != nil {
		return domain.TrackedSet{}, err
	}
	metrics.TrackedTitles.Set(float64(set.Len()))

	if s.bus != nil {
		if b, err := json.Marshal(TrackingDTO{Configured: true, Tracked: set.Titles()}); err == nil {
			s.bus.Publish(TopicTrackingUpdated, b)
		}
	}
	return set, nil
}
