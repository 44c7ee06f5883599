// Package broadcast fans every new state snapshot out to the connected push
// subscribers. A slow subscriber never blocks the tick loop or its peers: its
// queue is bounded and the oldest pending snapshot is dropped first.
package broadcast

import (
	"errors"
	"log"
	"sync"

	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

// DefaultQueueSize bounds the pending snapshots of a single subscriber.
const DefaultQueueSize = 16

var (
	ErrDuplicateSubscriber = errors.New("broadcast: duplicate subscriber id")
	ErrHubClosed           = errors.New("broadcast: hub closed")
)

// Source provides the snapshot a new subscriber starts from.
type Source interface {
	Snapshot() store.Snapshot
}

type Config struct {
	QueueSize int
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

type Hub struct {
	source    Source
	queueSize int
	logger    *log.Logger
	metrics   *metrics.Metrics

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool
}

func NewHub(source Source, cfg Config) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Hub{
		source:    source,
		queueSize: cfg.QueueSize,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		subs:      make(map[string]*Subscriber),
	}
}

// Subscribe registers id and queues the current snapshot as its first message.
// The initial snapshot is taken under the hub lock, so no publish can slip
// between it and the registration.
func (h *Hub) Subscribe(id string) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if _, ok := h.subs[id]; ok {
		return nil, ErrDuplicateSubscriber
	}

	sub := newSubscriber(id, h.queueSize)
	if h.source != nil {
		sub.offer(h.source.Snapshot())
	}
	h.subs[id] = sub
	h.metrics.SetSubscribers(len(h.subs))
	h.logger.Printf("broadcast: subscriber %s joined (%d active)", id, len(h.subs))
	return sub, nil
}

// Unsubscribe removes id and closes its queue. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return false
	}
	sub.close()
	h.metrics.SetSubscribers(n)
	h.logger.Printf("broadcast: subscriber %s left (%d active, %d dropped)", id, n, sub.Dropped())
	return true
}

// Publish offers snap to every subscriber without blocking.
func (h *Hub) Publish(snap store.Snapshot) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if s.offer(snap) {
			h.metrics.SnapshotDropped()
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everybody and rejects later subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
	h.metrics.SetSubscribers(0)
}
