package app

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/domain"
	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

type memSnapshots struct {
	mu      sync.Mutex
	snap    domain.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func (m *memSnapshots) Load(ctx context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Snapshot{}, m.loadErr
	}
	return m.snap, nil
}

func (m *memSnapshots) Save(ctx context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = s
	m.saves++
	return nil
}

func (m *memSnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type memTracking struct {
	mu      sync.Mutex
	set     domain.TrackedSet
	ok      bool
	loadErr error
}

func (m *memTracking) Load(ctx context.Context) (domain.TrackedSet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.TrackedSet{}, false, m.loadErr
	}
	return m.set, m.ok, nil
}

func (m *memTracking) Save(ctx context.Context, s domain.TrackedSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set, m.ok = s, true
	return nil
}

// fakeSource renvoie listing (ou err) ; started/release, si définis, retiennent Fetch.
// panics fait paniquer les N premiers appels.
type fakeSource struct {
	name    string
	listing domain.SourceListing
	err     error
	calls   int
	panics  int

	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) (domain.SourceListing, error) {
	f.calls++
	if f.panics > 0 {
		f.panics--
		panic("unexpected markup")
	}
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.err != nil {
		return domain.SourceListing{}, f.err
	}
	return f.listing, nil
}

func listing(source string, entries ...domain.TitleState) domain.SourceListing {
	b := domain.NewListingBuilder(source)
	for _, e := range entries {
		b.Put(e.Title, e.State)
	}
	return b.Build()
}

func ep(title string, season, episode int) domain.TitleState {
	return domain.TitleState{Title: title, State: domain.EpisodeState{Season: season, Episode: episode}}
}

type fakeTransport struct {
	mu    sync.Mutex
	ready chan struct{}
	sent  []string
	err   error
}

func newReadyTransport() *fakeTransport {
	ch := make(chan struct{})
	close(ch)
	return &fakeTransport{ready: ch}
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Ready() <-chan struct{} { return f.ready }

func (f *fakeTransport) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	return ch, func() {}
}

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}
