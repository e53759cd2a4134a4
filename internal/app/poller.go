package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/metrics"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

var tracer = otel.Tracer("app/poller")

// Topics publiés sur le bus (relayés par /api/v1/events).
const (
	TopicCycleCompleted  = "cycle.completed"
	TopicCycleFailed     = "cycle.failed"
	TopicEpisodesNew     = "episodes.new"
	TopicTrackingUpdated = "tracking.updated"
)

type CycleOutcome string

const (
	OutcomeOK          CycleOutcome = "ok"
	OutcomeNoTracking  CycleOutcome = "no_tracking"
	OutcomeFetchFailed CycleOutcome = "fetch_failed"
)

type CycleResult struct {
	ID           string                `json:"id"`
	StartedAt    time.Time             `json:"startedAt"`
	FinishedAt   time.Time             `json:"finishedAt"`
	Outcome      CycleOutcome          `json:"outcome"`
	Titles       int                   `json:"titles"`
	Events       []domain.EpisodeEvent `json:"events"`
	Persisted    bool                  `json:"persisted"`
	Notified     bool                  `json:"notified"`
	Error        string                `json:"error,omitempty"`
	PersistError string                `json:"persistError,omitempty"`
	NotifyError  string                `json:"notifyError,omitempty"`
}

// Poller enchaîne fetch -> diff -> persist -> notify, un cycle à la fois.
type Poller struct {
	logger    zerolog.Logger
	snapshots ports.SnapshotRepository
	tracking  ports.TrackingRepository
	sources   []ports.Source
	notifier  *Notifier
	bus       ports.EventBus

	Interval time.Duration

	now func() time.Time
	mu  sync.Mutex
}

func NewPoller(logger zerolog.Logger, snapshots ports.SnapshotRepository, tracking ports.TrackingRepository, sources []ports.Source, notifier *Notifier, bus ports.EventBus) *Poller {
	return &Poller{
		logger:    logger,
		snapshots: snapshots,
		tracking:  tracking,
		sources:   sources,
		notifier:  notifier,
		bus:       bus,
		Interval:  time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run lance un cycle immédiatement puis toutes les Interval, jusqu'à l'annulation de ctx.
// Un déclenchement pendant un cycle en cours est ignoré.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	clog := cronLogger{logger: p.logger}
	job := cron.NewChain(cron.Recover(clog)).Then(cron.FuncJob(func() { p.runScheduled(ctx) }))

	c := cron.New(cron.WithLogger(clog), cron.WithLocation(time.UTC))
	if _, err := c.AddJob(fmt.Sprintf("@every %s", interval), job); err != nil {
		return fmt.Errorf("schedule poll cycle: %w", err)
	}
	c.Start()
	p.logger.Info().Dur("interval", interval).Int("sources", len(p.sources)).Msg("poller started")

	job.Run()

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info().Msg("poller stopped")
	return nil
}

func (p *Poller) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := p.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) {
		p.logger.Info().Msg("poll cycle still running, tick skipped")
	}
}

// RunCycle exécute un cycle complet. Une erreur de fetch termine le cycle sans
// persister ni notifier. Les échecs de persistance et de notification sont
// journalisés et reportés dans CycleResult, pas en erreur.
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	if !p.mu.TryLock() {
		metrics.RecordCycle("skipped", 0)
		return CycleResult{}, ErrCycleInProgress
	}
	defer p.mu.Unlock()

	res := CycleResult{ID: xid.New().String(), StartedAt: p.now(), Events: []domain.EpisodeEvent{}}
	logger := p.logger.With().Str("cycle_id", res.ID).Logger()

	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()
	span.SetAttributes(attribute.String("cycle_id", res.ID))

	old, err := p.snapshots.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("snapshot load failed, starting from empty baseline")
		old = domain.Snapshot{}
	}

	cur, err := p.fetchAll(ctx)
	if err != nil {
		metrics.RecordFetchFailure(sourceOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		logger.Error().Err(err).Msg("fetch failed, snapshot kept")

		res.Outcome = OutcomeFetchFailed
		res.Error = err.Error()
		p.finish(&res)
		p.publish(TopicCycleFailed, res)
		return res, err
	}
	res.Titles = cur.TitleCount()

	tracked, ok, err := p.tracking.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("tracking load failed, treated as absent")
		ok = false
	}
	metrics.TrackedTitles.Set(float64(tracked.Len()))

	if !ok || tracked.Len() == 0 {
		p.persist(ctx, logger, cur, &res)
		logger.Info().Int("titles", res.Titles).Msg("no tracked titles, pick some at /select")
		res.Outcome = OutcomeNoTracking
		p.finish(&res)
		p.publish(TopicCycleCompleted, res)
		return res, nil
	}

	res.Events = domain.NewEpisodes(old, cur, tracked)
	span.SetAttributes(attribute.Int("events", len(res.Events)))

	p.persist(ctx, logger, cur, &res)

	if len(res.Events) == 0 {
		logger.Info().Int("titles", res.Titles).Int("tracked", tracked.Len()).Msg("no new episodes for tracked titles")
	} else {
		for _, ev := range res.Events {
			metrics.RecordNewEpisodes(ev.Source, 1)
		}
		logger.Info().Int("events", len(res.Events)).Msg("new episodes found")
		p.publish(TopicEpisodesNew, res.Events)
		p.notify(ctx, logger, &res)
	}

	res.Outcome = OutcomeOK
	p.finish(&res)
	p.publish(TopicCycleCompleted, res)
	return res, nil
}

// fetchAll interroge les sources dans l'ordre ; la première erreur interrompt le cycle.
func (p *Poller) fetchAll(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{FetchedAt: p.now(), Sources: make([]domain.SourceListing, 0, len(p.sources))}
	for _, src := range p.sources {
		listing, err := src.Fetch(ctx)
		if err != nil {
			return domain.Snapshot{}, &CycleError{Stage: StageFetch, Source: src.Name(), Err: err}
		}
		// Le nom configuré fait foi, quel que soit ce que l'adaptateur a renseigné.
		listing.Source = src.Name()
		snap.Sources = append(snap.Sources, listing)
	}
	return snap, nil
}

func (p *Poller) persist(ctx context.Context, logger zerolog.Logger, snap domain.Snapshot, res *CycleResult) {
	if err := p.snapshots.Save(ctx, snap); err != nil {
		cerr := &CycleError{Stage: StagePersist, Err: err}
		logger.Error().Err(cerr).Msg("snapshot save failed")
		res.PersistError = cerr.Error()
		return
	}
	res.Persisted = true
	metrics.SnapshotTitles.Set(float64(snap.TitleCount()))
}

func (p *Poller) notify(ctx context.Context, logger zerolog.Logger, res *CycleResult) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, res.Events); err != nil {
		cerr := &CycleError{Stage: StageNotify, Source: p.notifier.Transport(), Err: err}
		metrics.RecordNotifyFailure(p.notifier.Transport())
		logger.Error().Err(cerr).Msg("notification failed, snapshot already persisted")
		res.NotifyError = cerr.Error()
		return
	}
	res.Notified = true
	logger.Info().Str("transport", p.notifier.Transport()).Msg("notification sent")
}

func (p *Poller) finish(res *CycleResult) {
	res.FinishedAt = p.now()
	metrics.RecordCycle(string(res.Outcome), res.FinishedAt.Sub(res.StartedAt))
	if res.Outcome != OutcomeFetchFailed {
		metrics.MarkSuccess(res.FinishedAt)
	}
}

func (p *Poller) publish(topic string, v any) {
	if p.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.bus.Publish(topic, b)
}

func sourceOf(err error) string {
	var cerr *CycleError
	if errors.As(err, &cerr) && cerr.Source != "" {
		return cerr.Source
	}
	return "unknown"
}

// cronLogger relaie les logs internes de cron vers zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
