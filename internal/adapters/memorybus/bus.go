// Package memorybus diffuse les événements du poller aux clients SSE, en mémoire.
package memorybus

import (
	"sync"

	"github.com/Guilhem-Bonnet/Anime-Watch-Notifier/internal/ports"
)

// Bus ne bloque jamais l'émetteur : un abonné trop lent perd des événements.
type Bus struct {
	mu     sync.Mutex
	subs   map[chan ports.Event]struct{}
	closed bool
	buffer int
}

func New() *Bus {
	return NewWithBuffer(64)
}

func NewWithBuffer(buffer int) *Bus {
	if buffer < 0 {
		buffer = 0
	}
	return &Bus{subs: make(map[chan ports.Event]struct{}), buffer: buffer}
}

func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe renvoie un canal d'événements et sa fonction de désabonnement.
// Sur un bus fermé, le canal est déjà fermé.
func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers renvoie le nombre d'abonnés actifs.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ferme tous les abonnements ; les Publish suivants sont ignorés.
// Utilisé à l'arrêt pour libérer les flux SSE en cours.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
