package event

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	msg "github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

const (
	StateTopic       = "agribot/state"
	StateChangeTopic = "event/StateChange/"
)

// NewBreaker opens after fails consecutive failures and probes again after open.
func NewBreaker(name string, fails int, open time.Duration) *gobreaker.CircuitBreaker {
	if fails <= 0 {
		fails = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  open,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("event: breaker %s %s -> %s", name, from, to)
		},
	})
}

// TopicPublisher is the subset of rabbitmq.Publisher used here.
type TopicPublisher interface {
	PublishTo(topic string, message interface{}) error
}

// StateMirror republishes every snapshot as a sensorUpdate frame on StateTopic.
type StateMirror struct {
	pub TopicPublisher
	cb  *gobreaker.CircuitBreaker
}

func NewStateMirror(pub TopicPublisher, cb *gobreaker.CircuitBreaker) *StateMirror {
	if cb == nil {
		cb = NewBreaker("mqtt-mirror", 5, 10*time.Second)
	}
	return &StateMirror{pub: pub, cb: cb}
}

func (m *StateMirror) Name() string { return "mqtt" }

func (m *StateMirror) WriteSnapshot(snap store.Snapshot) error {
	payload, err := json.Marshal(msg.SensorUpdate{
		Type:      msg.TypeSensorUpdate,
		Version:   snap.Version,
		Timestamp: snap.TakenAt,
		Data:      snap.State,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = m.cb.Execute(func() (interface{}, error) {
		return nil, m.pub.PublishTo(StateTopic, payload)
	})
	return err
}

// EventPublisher announces applied toggles on event/StateChange/{actuator}.
type EventPublisher struct {
	pub     TopicPublisher
	cb      *gobreaker.CircuitBreaker
	logger  *log.Logger
	metrics *metrics.Metrics
}

func NewEventPublisher(pub TopicPublisher, cb *gobreaker.CircuitBreaker, logger *log.Logger, m *metrics.Metrics) *EventPublisher {
	if cb == nil {
		cb = NewBreaker("mqtt-events", 5, 10*time.Second)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventPublisher{pub: pub, cb: cb, logger: logger, metrics: m}
}

// Notify never blocks the caller on a broken broker: the breaker fails fast once open.
func (p *EventPublisher) Notify(e msg.ActuatorStateChanged) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Printf("event: marshal state change: %v", err)
		return
	}
	topic := StateChangeTopic + string(e.Actuator)
	if _, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.pub.PublishTo(topic, payload)
	}); err != nil {
		p.metrics.SinkFailed("mqtt")
		p.logger.Printf("event: publish %s: %v", topic, err)
	}
}
