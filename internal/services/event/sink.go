package event

import (
	"context"
	"log"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

// SnapshotSink stores or forwards broadcast snapshots outside the process.
type SnapshotSink interface {
	Name() string
	WriteSnapshot(snap store.Snapshot) error
}

// Drain subscribes sink to the hub as "sink/<name>" and feeds it every
// snapshot until ctx is done. A failed write is logged and counted; the
// sink stays subscribed.
func Drain(ctx context.Context, hub *broadcast.Hub, sink SnapshotSink, logger *log.Logger, m *metrics.Metrics) error {
	if logger == nil {
		logger = log.Default()
	}
	sub, err := hub.Subscribe("sink/" + sink.Name())
	if err != nil {
		return err
	}
	defer hub.Unsubscribe(sub.ID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := sink.WriteSnapshot(snap); err != nil {
				m.SinkFailed(sink.Name())
				logger.Printf("event: sink %s: snapshot v=%d: %v", sink.Name(), snap.Version, err)
			}
		}
	}
}
