package broadcast

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

func newTestHub(t *testing.T, queue int) (*Hub, *store.Store) {
	t.Helper()
	s := store.New(entities.NewFarmState(time.Unix(1_700_000_000, 0).UTC()))
	h := NewHub(s, Config{QueueSize: queue, Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(h.Close)
	return h, s
}

// tick mutates the store and publishes the result, as the simulator does.
func tick(t *testing.T, h *Hub, s *store.Store) store.Snapshot {
	t.Helper()
	snap, err := s.Apply(func(st *entities.FarmState) error {
		st.SoilMoisture.Current++
		return nil
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	h.Publish(snap)
	return snap
}

func receive(t *testing.T, sub *Subscriber) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		if !ok {
			t.Fatalf("subscriber %s channel closed", sub.ID())
		}
		return snap
	case <-time.After(time.Second):
		t.Fatalf("subscriber %s: no snapshot within 1s", sub.ID())
	}
	return store.Snapshot{}
}

func TestSubscribeDeliversCurrentSnapshotImmediately(t *testing.T) {
	h, s := newTestHub(t, 4)
	for i := 0; i < 3; i++ {
		tick(t, h, s)
	}

	sub, err := h.Subscribe("late")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	first := receive(t, sub)
	if first.Version != 3 {
		t.Fatalf("expected first snapshot at version 3, got %d", first.Version)
	}

	next := tick(t, h, s)
	if got := receive(t, sub); got.Version != next.Version {
		t.Fatalf("expected version %d, got %d", next.Version, got.Version)
	}
}

func TestDeliveryIsInOrder(t *testing.T) {
	h, s := newTestHub(t, 16)
	sub, err := h.Subscribe("a")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		tick(t, h, s)
	}

	var last uint64
	for i := 0; i < 11; i++ {
		snap := receive(t, sub)
		if i > 0 && snap.Version <= last {
			t.Fatalf("out of order: %d after %d", snap.Version, last)
		}
		last = snap.Version
	}
	if last != 10 {
		t.Fatalf("expected to end on version 10, got %d", last)
	}
}

func TestStaleSnapshotIsSkipped(t *testing.T) {
	h, s := newTestHub(t, 4)
	sub, _ := h.Subscribe("a")
	old := s.Snapshot()
	newer := tick(t, h, s)
	h.Publish(old)

	receive(t, sub) // initial
	if got := receive(t, sub); got.Version != newer.Version {
		t.Fatalf("expected version %d, got %d", newer.Version, got.Version)
	}
	select {
	case snap := <-sub.C():
		t.Fatalf("stale snapshot %d delivered", snap.Version)
	default:
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	const size = 4
	h, s := newTestHub(t, size)
	sub, _ := h.Subscribe("slow")

	var last store.Snapshot
	for i := 0; i < 20; i++ {
		last = tick(t, h, s)
	}

	if sub.Dropped() == 0 {
		t.Fatalf("expected drops for a slow subscriber")
	}
	var got []uint64
	for i := 0; i < size; i++ {
		got = append(got, receive(t, sub).Version)
	}
	if got[len(got)-1] != last.Version {
		t.Fatalf("newest snapshot lost: got %v, want last %d", got, last.Version)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("queue out of order after drops: %v", got)
		}
	}
}

func TestDuplicateSubscriberRejected(t *testing.T) {
	h, _ := newTestHub(t, 4)
	if _, err := h.Subscribe("x"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if _, err := h.Subscribe("x"); !errors.Is(err, ErrDuplicateSubscriber) {
		t.Fatalf("expected ErrDuplicateSubscriber, got %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Len())
	}
}

func TestUnsubscribeLeavesOthersReceiving(t *testing.T) {
	h, s := newTestHub(t, 4)
	a, _ := h.Subscribe("a")
	b, _ := h.Subscribe("b")
	receive(t, a)
	receive(t, b)

	if !h.Unsubscribe("a") {
		t.Fatalf("expected a to be removed")
	}
	if h.Unsubscribe("a") {
		t.Fatalf("second unsubscribe must be a no-op")
	}
	if _, ok := <-a.C(); ok {
		t.Fatalf("expected a's channel to be closed")
	}

	next := tick(t, h, s)
	if got := receive(t, b); got.Version != next.Version {
		t.Fatalf("b expected version %d, got %d", next.Version, got.Version)
	}

	// id is reusable once released
	if _, err := h.Subscribe("a"); err != nil {
		t.Fatalf("re-subscribe failed: %v", err)
	}
}

func TestClosedHubRejectsSubscribers(t *testing.T) {
	h, s := newTestHub(t, 4)
	sub, _ := h.Subscribe("a")
	h.Close()

	if _, err := h.Subscribe("b"); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
	tick(t, h, s) // must not panic on closed queues

	<-sub.C() // initial
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected channel closed after hub close")
	}
}
