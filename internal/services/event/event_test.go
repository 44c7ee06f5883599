package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	msg "github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func lineOf(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

func TestEventToPointForStateChange(t *testing.T) {
	p := EventToPoint(FromStateChange(msg.ActuatorStateChanged{
		Actuator:  msg.ActuatorIrrigation,
		Active:    true,
		Source:    msg.SourceHTTP,
		Version:   7,
		Timestamp: t0,
	}))
	line := lineOf(p)
	for _, want := range []string{
		"system_event,",
		"actuator=irrigation",
		"event_type=actuator.state_change",
		"source=http",
		"active=true",
		"version=7i",
		"count=1i",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestSnapshotToPoints(t *testing.T) {
	st := entities.NewFarmState(t0)
	pts := SnapshotToPoints(store.Snapshot{Version: 3, TakenAt: t0, State: st})
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	sensor := lineOf(pts[0])
	for _, want := range []string{"farm_sensor,", "light_level=medium", "soil_moisture=65", "water_volume=780", "version=3i"} {
		if !strings.Contains(sensor, want) {
			t.Fatalf("sensor line %q missing %q", sensor, want)
		}
	}
	actuator := lineOf(pts[1])
	for _, want := range []string{"farm_actuator", "irrigation_active=false", "security_active=true", "camera_recording=false"} {
		if !strings.Contains(actuator, want) {
			t.Fatalf("actuator line %q missing %q", actuator, want)
		}
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    msg.Actuator
		id      string
		wantErr bool
	}{
		{"payload", "actuator/command", `{"actuator":"security","command_id":"c1"}`, msg.ActuatorSecurity, "c1", false},
		{"topic", "actuator/command/camera", `{"command_id":"c2"}`, msg.ActuatorCamera, "c2", false},
		{"empty payload", "actuator/command/irrigation", ``, msg.ActuatorIrrigation, "", false},
		{"alias", "actuator/command/pump", `{}`, msg.ActuatorIrrigation, "", false},
		{"payload wins", "actuator/command/camera", `{"actuator":"alarm"}`, msg.ActuatorSecurity, "", false},
		{"unknown", "actuator/command/tractor", `{}`, "", "", true},
		{"bad json", "actuator/command/camera", `{`, "", "", true},
		{"no actuator", "other/topic", `{}`, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand(tt.topic, []byte(tt.payload), t0)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if cmd.Actuator != tt.want || cmd.CommandID != tt.id {
				t.Fatalf("got %+v", cmd)
			}
			if !cmd.Timestamp.Equal(t0) {
				t.Fatalf("expected default timestamp %v, got %v", t0, cmd.Timestamp)
			}
		})
	}

	if _, err := DecodeCommand("actuator/command/tractor", nil, t0); !errors.Is(err, msg.ErrUnknownActuator) {
		t.Fatalf("expected ErrUnknownActuator, got %v", err)
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (p *fakePublisher) PublishTo(topic string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, message.([]byte))
	return nil
}

func TestStateMirrorPublishesSensorUpdate(t *testing.T) {
	pub := &fakePublisher{}
	m := NewStateMirror(pub, nil)
	st := entities.NewFarmState(t0)

	if err := m.WriteSnapshot(store.Snapshot{Version: 4, TakenAt: t0, State: st}); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != StateTopic {
		t.Fatalf("unexpected topics %v", pub.topics)
	}
	var frame msg.SensorUpdate
	if err := json.Unmarshal(pub.bodies[0], &frame); err != nil {
		t.Fatalf("invalid frame: %v", err)
	}
	if frame.Type != msg.TypeSensorUpdate || frame.Version != 4 || frame.Data.WaterLevel.Volume != 780 {
		t.Fatalf("unexpected frame %+v", frame)
	}
}

func TestStateMirrorBreakerOpens(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := NewStateMirror(pub, NewBreaker("test", 2, time.Hour))
	snap := store.Snapshot{State: entities.NewFarmState(t0)}

	for i := 0; i < 2; i++ {
		if err := m.WriteSnapshot(snap); err == nil {
			t.Fatalf("expected publish error")
		}
	}
	if err := m.WriteSnapshot(snap); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
}

func TestEventPublisherTopic(t *testing.T) {
	pub := &fakePublisher{}
	p := NewEventPublisher(pub, nil, log.New(io.Discard, "", 0), nil)
	p.Notify(msg.ActuatorStateChanged{Actuator: msg.ActuatorCamera, Active: true, Source: msg.SourceMQTT, Version: 2, Timestamp: t0})

	if len(pub.topics) != 1 || pub.topics[0] != "event/StateChange/camera" {
		t.Fatalf("unexpected topics %v", pub.topics)
	}
	var e msg.ActuatorStateChanged
	if err := json.Unmarshal(pub.bodies[0], &e); err != nil || !e.Active || e.Source != msg.SourceMQTT {
		t.Fatalf("unexpected event %+v (%v)", e, err)
	}
}

type fakeWriteAPI struct {
	api.WriteAPI
	mu     sync.Mutex
	points []*write.Point
	errs   chan error
}

func newFakeWriteAPI() *fakeWriteAPI { return &fakeWriteAPI{errs: make(chan error)} }

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func (f *fakeWriteAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func TestWriterSinkAndEventLog(t *testing.T) {
	wapi := newFakeWriteAPI()
	defer close(wapi.errs)
	w := NewWriter(wapi, nil)

	if err := w.WriteSnapshot(store.Snapshot{Version: 1, TakenAt: t0, State: entities.NewFarmState(t0)}); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	w.Notify(msg.ActuatorStateChanged{Actuator: msg.ActuatorSecurity, Timestamp: t0})

	if wapi.count() != 3 {
		t.Fatalf("expected 3 points, got %d", wapi.count())
	}
	if w.Count("snapshot") != 2 || w.Count(EventTypeStateChange) != 1 {
		t.Fatalf("unexpected ingest counters")
	}
	if w.LastErrorAge() < time.Hour {
		t.Fatalf("fresh writer must report an old last error")
	}
}

type recordingSink struct {
	got chan store.Snapshot
}

func (s *recordingSink) Name() string { return "rec" }

func (s *recordingSink) WriteSnapshot(snap store.Snapshot) error {
	s.got <- snap
	return nil
}

func TestDrainFeedsSinkUntilCancelled(t *testing.T) {
	s := store.New(entities.NewFarmState(t0))
	hub := broadcast.NewHub(s, broadcast.Config{Logger: log.New(io.Discard, "", 0)})
	sink := &recordingSink{got: make(chan store.Snapshot, 8)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Drain(ctx, hub, sink, log.New(io.Discard, "", 0), nil) }()

	select {
	case snap := <-sink.got:
		if snap.Version != 0 {
			t.Fatalf("expected initial snapshot, got v%d", snap.Version)
		}
	case <-time.After(time.Second):
		t.Fatalf("sink got nothing")
	}

	snap, _ := s.Apply(func(*entities.FarmState) error { return nil })
	hub.Publish(snap)
	select {
	case got := <-sink.got:
		if got.Version != 1 {
			t.Fatalf("expected v1, got v%d", got.Version)
		}
	case <-time.After(time.Second):
		t.Fatalf("sink missed the published snapshot")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Drain returned %v", err)
	}
	if hub.Len() != 0 {
		t.Fatalf("sink still subscribed after Drain returned")
	}
}

type fakeEngine bool

func (e fakeEngine) Running() bool { return bool(e) }

func TestHealthWithDisabledSinks(t *testing.T) {
	tests := []struct {
		name       string
		engine     Engine
		wantStatus string
		wantCode   int
	}{
		{"running", fakeEngine(true), "ok", http.StatusOK},
		{"stopped", fakeEngine(false), "down", http.StatusServiceUnavailable},
		{"no engine", nil, "down", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Deps{Engine: tt.engine}

			rec := httptest.NewRecorder()
			NewHealthHandler(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			var st healthStatus
			if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if st.Status != tt.wantStatus || st.MQTT != depDisabled || st.Influx != depDisabled {
				t.Fatalf("unexpected health %+v", st)
			}

			rec = httptest.NewRecorder()
			NewReadyHandler(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("readyz: expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}

func TestActuatorEventsWithoutInflux(t *testing.T) {
	rec := httptest.NewRecorder()
	NewActuatorEventsHandler(nil, "org", "bucket", nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/actuators?limit=5", nil))

	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected 200 [], got %d %q", rec.Code, rec.Body.String())
	}
}

func TestParseEventQueryClamps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=9999&minutes=0&timeout_ms=abc", nil)
	p := parseEventQuery(r, 1440, 20, 2000)
	if p.Limit != 500 || p.Minutes != 1 || p.TimeoutMS != 2000 {
		t.Fatalf("unexpected params %+v", p)
	}
}
