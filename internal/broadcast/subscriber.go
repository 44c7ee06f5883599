package broadcast

import (
	"sync"

	"github.com/LeonardoBeccarini/agribot/internal/store"
)

// Subscriber is one registered consumer. Snapshots arrive on C in strictly
// increasing version order; C is closed on unsubscribe.
type Subscriber struct {
	id    string
	queue chan store.Snapshot

	mu      sync.Mutex
	last    uint64
	primed  bool
	closed  bool
	dropped uint64
}

func newSubscriber(id string, size int) *Subscriber {
	return &Subscriber{id: id, queue: make(chan store.Snapshot, size)}
}

func (s *Subscriber) ID() string { return s.id }

func (s *Subscriber) C() <-chan store.Snapshot { return s.queue }

// Dropped is the number of snapshots evicted because the queue was full.
func (s *Subscriber) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// offer enqueues snap, evicting the oldest pending snapshot when full.
// Stale versions are skipped. Reports whether something was evicted.
func (s *Subscriber) offer(snap store.Snapshot) (evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.primed && snap.Version <= s.last {
		return false
	}
	s.primed = true
	s.last = snap.Version

	for {
		select {
		case s.queue <- snap:
			return evicted
		default:
		}
		// full: drop oldest and retry
		select {
		case <-s.queue:
			s.dropped++
			evicted = true
		default:
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}
