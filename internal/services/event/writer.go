package event

import (
	"log"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	msg "github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

// Writer incapsula WriteAPI e traccia l'ultimo errore di scrittura per /healthz e /readyz.
// It is both the Influx snapshot sink and the actuator event log.
type Writer struct {
	api     api.WriteAPI
	metrics *metrics.Metrics

	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter inizializza il writer e attiva il listener degli errori asincroni di Influx.
func NewWriter(w api.WriteAPI, m *metrics.Metrics) *Writer {
	ww := &Writer{
		api:     w,
		metrics: m,
		lastErr: time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				ww.metrics.SinkFailed("influx")
				log.Printf("event: influx write error: %v", err)
			}
		}
	}()
	return ww
}

func (w *Writer) Name() string { return "influx" }

// WriteSnapshot queues the points of snap; the client batches and flushes them.
func (w *Writer) WriteSnapshot(snap store.Snapshot) error {
	for _, p := range SnapshotToPoints(snap) {
		w.write(p, "snapshot")
	}
	return nil
}

// Notify records an applied toggle in the event log.
func (w *Writer) Notify(e msg.ActuatorStateChanged) {
	if w == nil {
		return
	}
	w.write(EventToPoint(FromStateChange(e)), EventTypeStateChange)
}

func (w *Writer) write(p *write.Point, kind string) {
	w.api.WritePoint(p)
	w.MarkIngest(kind)
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *Writer) MarkIngest(kind string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[kind]++
	w.mu.Unlock()
}

func (w *Writer) Count(kind string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[kind]
	w.mu.RUnlock()
	return c
}
