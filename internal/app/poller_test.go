package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

type pollerFixture struct {
	snaps     *memSnapshots
	tracking  *memTracking
	source    *fakeSource
	transport *fakeTransport
	bus       *recordingBus
	poller    *Poller
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()
	f := &pollerFixture{
		snaps:     &memSnapshots{},
		tracking:  &memTracking{},
		source:    &fakeSource{name: "DiziWatch"},
		transport: newReadyTransport(),
		bus:       &recordingBus{},
	}
	notifier := NewNotifier(f.transport, "tr", 50*time.Millisecond)
	f.poller = NewPoller(zerolog.Nop(), f.snaps, f.tracking, []ports.Source{f.source}, notifier, f.bus)
	return f
}

func TestRunCycle_EndToEnd(t *testing.T) {
	f := newPollerFixture(t)
	ctx := context.Background()

	// 1) Rien de suivi : snapshot persisté, pas de diff.
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 4), ep("Bleach", 1, 10))
	res, err := f.poller.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	if res.Outcome != OutcomeNoTracking || !res.Persisted || len(res.Events) != 0 {
		t.Fatalf("cycle 1 result: %+v", res)
	}
	if st, ok := f.snaps.snap.Lookup("DiziWatch", "Naruto"); !ok || st.Episode != 4 {
		t.Fatalf("snapshot not persisted: %+v", f.snaps.snap)
	}

	// 2) Naruto suivi, épisode 5 publié.
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 5), ep("Bleach", 1, 11))
	res, err = f.poller.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 2: %v", err)
	}
	want := []domain.EpisodeEvent{{Source: "DiziWatch", Title: "Naruto", State: domain.EpisodeState{Season: 1, Episode: 5}}}
	if diff := cmp.Diff(want, res.Events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if !res.Notified {
		t.Fatalf("expected notification, got %+v", res)
	}
	msgs := f.transport.messages()
	wantMsg := "🎬 *Yeni Anime Bölümleri* 🎬\n\n1. [DiziWatch]\n   Anime: Naruto\n   Bölüm: 1. Sezon, 5. Bölüm\n\n"
	if len(msgs) != 1 || msgs[0] != wantMsg {
		t.Fatalf("messages=%q", msgs)
	}

	// 3) Même page : rien de nouveau.
	res, err = f.poller.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle 3: %v", err)
	}
	if len(res.Events) != 0 || res.Notified {
		t.Fatalf("cycle 3 result: %+v", res)
	}
	if len(f.transport.messages()) != 1 {
		t.Fatalf("unexpected extra message")
	}
	if f.snaps.saves != 3 {
		t.Fatalf("expected 3 saves, got %d", f.snaps.saves)
	}
}

func TestRunCycle_FetchFailureKeepsSnapshot(t *testing.T) {
	f := newPollerFixture(t)
	f.snaps.snap = domain.Snapshot{Sources: []domain.SourceListing{listing("DiziWatch", ep("Naruto", 1, 4))}}
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	boom := errors.New("connection reset")
	f.source.err = boom

	res, err := f.poller.RunCycle(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	var cerr *CycleError
	if !errors.As(err, &cerr) || cerr.Stage != StageFetch || cerr.Source != "DiziWatch" {
		t.Fatalf("expected fetch CycleError, got %#v", err)
	}
	if res.Outcome != OutcomeFetchFailed || res.Persisted {
		t.Fatalf("result=%+v", res)
	}
	if f.snaps.saves != 0 || len(f.transport.messages()) != 0 {
		t.Fatalf("nothing should be persisted or sent")
	}
	if got := f.bus.published(); len(got) != 1 || got[0] != TopicCycleFailed {
		t.Fatalf("topics=%v", got)
	}
}

func TestRunCycle_EmptyTrackedSetStillPersists(t *testing.T) {
	f := newPollerFixture(t)
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet(), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 9))

	res, err := f.poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Outcome != OutcomeNoTracking || len(res.Events) != 0 || f.snaps.saves != 1 {
		t.Fatalf("result=%+v saves=%d", res, f.snaps.saves)
	}
}

func TestRunCycle_NotifyFailureKeepsPersistedSnapshot(t *testing.T) {
	f := newPollerFixture(t)
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))
	f.transport.err = errors.New("session closed")

	res, err := f.poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if !res.Persisted || res.Notified || res.NotifyError == "" {
		t.Fatalf("result=%+v", res)
	}
	if _, ok := f.snaps.snap.Lookup("DiziWatch", "Naruto"); !ok {
		t.Fatalf("snapshot should be persisted")
	}
}

func TestRunCycle_TransportNotReady(t *testing.T) {
	f := newPollerFixture(t)
	f.transport.ready = make(chan struct{})
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))

	res, err := f.poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if !res.Persisted || res.Notified {
		t.Fatalf("result=%+v", res)
	}
	if res.NotifyError == "" {
		t.Fatalf("expected notify error")
	}
}

func TestRunCycle_SnapshotLoadErrorIsEmptyBaseline(t *testing.T) {
	f := newPollerFixture(t)
	f.snaps.loadErr = errors.New("disk I/O error")
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 3))

	res, err := f.poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("expected Naruto to be reported against an empty baseline, got %+v", res.Events)
	}
}

func TestRunCycle_TrackingLoadErrorIsAbsent(t *testing.T) {
	f := newPollerFixture(t)
	f.tracking.loadErr = errors.New("database is locked")
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 3))

	res, err := f.poller.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Outcome != OutcomeNoTracking || !res.Persisted || len(res.Events) != 0 {
		t.Fatalf("result=%+v", res)
	}
	if f.snaps.saves != 1 || len(f.transport.messages()) != 0 {
		t.Fatalf("saves=%d messages=%d", f.snaps.saves, len(f.transport.messages()))
	}
}

func TestRunCycle_SkipsWhileInFlight(t *testing.T) {
	f := newPollerFixture(t)
	f.source.started = make(chan struct{})
	f.source.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.poller.RunCycle(context.Background())
		done <- err
	}()
	<-f.source.started

	if _, err := f.poller.RunCycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("expected ErrCycleInProgress, got %v", err)
	}

	close(f.source.release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if f.source.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", f.source.calls)
	}
}

func TestRunCycle_PublishesEvents(t *testing.T) {
	f := newPollerFixture(t)
	f.tracking.set, f.tracking.ok = domain.NewTrackedSet("Naruto"), true
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))

	if _, err := f.poller.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	want := []string{TopicEpisodesNew, TopicCycleCompleted}
	if diff := cmp.Diff(want, f.bus.published()); diff != "" {
		t.Fatalf("topics mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ImmediateCycleThenStop(t *testing.T) {
	f := newPollerFixture(t)
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))
	f.poller.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(ctx) }()

	waitForSaves(t, f.snaps, 1, 2*time.Second)
	stopRun(t, cancel, done)
}

func TestRun_TickRunsFurtherCycles(t *testing.T) {
	f := newPollerFixture(t)
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))
	f.poller.Interval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(ctx) }()

	waitForSaves(t, f.snaps, 2, 5*time.Second)
	stopRun(t, cancel, done)
}

func TestRun_PanickingCycleDoesNotStopSchedule(t *testing.T) {
	f := newPollerFixture(t)
	f.source.listing = listing("DiziWatch", ep("Naruto", 1, 1))
	f.source.panics = 1
	f.poller.Interval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.poller.Run(ctx) }()

	// Le cycle de démarrage panique ; le tick suivant doit persister.
	waitForSaves(t, f.snaps, 1, 5*time.Second)
	stopRun(t, cancel, done)

	// Le verrou a été relâché malgré la panique.
	if _, err := f.poller.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle after panic: %v", err)
	}
}

func waitForSaves(t *testing.T, snaps *memSnapshots, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for snaps.saveCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d saves, got %d", n, snaps.saveCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func stopRun(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
