package device

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agribot/internal/metrics"
	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
	"github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/services/event"
	"github.com/LeonardoBeccarini/agribot/internal/store"
	"github.com/LeonardoBeccarini/agribot/pkg/dedup"
	"github.com/LeonardoBeccarini/agribot/pkg/rabbitmq"
)

// Notifier is told about every applied toggle (MQTT event, Influx event log).
type Notifier interface {
	Notify(e messages.ActuatorStateChanged)
}

type Config struct {
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Notifiers []Notifier
	Deduper   *dedup.Deduper
}

// DeviceService is the control surface over the shared state: reads for the
// dashboard and actuator toggles from HTTP, gRPC and MQTT.
type DeviceService struct {
	store     *store.Store
	deduper   *dedup.Deduper
	notifiers []Notifier
	logger    *log.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewDeviceService(st *store.Store, cfg Config) *DeviceService {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Deduper == nil {
		cfg.Deduper = dedup.New(2*time.Minute, 10000) // TTL e cap
	}
	return &DeviceService{
		store:     st,
		deduper:   cfg.Deduper,
		notifiers: cfg.Notifiers,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
}

// State returns the full current snapshot.
func (d *DeviceService) State() store.Snapshot { return d.store.Snapshot() }

func (d *DeviceService) SoilMoisture() entities.SoilMoisture {
	return d.store.Snapshot().State.SoilMoisture
}

func (d *DeviceService) WaterLevel() entities.WaterLevel {
	return d.store.Snapshot().State.WaterLevel
}

func (d *DeviceService) LightIntensity() entities.LightIntensity {
	return d.store.Snapshot().State.LightIntensity
}

func (d *DeviceService) Weather() entities.Weather {
	return d.store.Snapshot().State.Weather
}

func (d *DeviceService) Analytics() entities.Analytics {
	return d.store.Snapshot().State.Analytics
}

// Toggle flips one actuator and returns the resulting snapshot. Only that
// actuator's state changes; nothing is broadcast until the next tick.
func (d *DeviceService) Toggle(a messages.Actuator, source string) (store.Snapshot, error) {
	snap, err := d.store.Apply(func(st *entities.FarmState) error {
		switch a {
		case messages.ActuatorIrrigation:
			st.Irrigation.Toggle()
		case messages.ActuatorSecurity:
			st.Security.Toggle()
		case messages.ActuatorCamera:
			st.Camera.ToggleRecording()
		default:
			return fmt.Errorf("%w %q", messages.ErrUnknownActuator, a)
		}
		return nil
	})
	if err != nil {
		return store.Snapshot{}, err
	}

	evt := messages.ActuatorStateChanged{
		Actuator:  a,
		Active:    activeOf(snap.State, a),
		Source:    source,
		Version:   snap.Version,
		Timestamp: d.now(),
	}
	d.metrics.ToggleApplied(string(a), source)
	d.logger.Printf("device: %s -> active=%t (source=%s v=%d)", a, evt.Active, source, snap.Version)
	for _, n := range d.notifiers {
		n.Notify(evt)
	}
	return snap, nil
}

func (d *DeviceService) ToggleIrrigation(source string) (entities.Irrigation, error) {
	snap, err := d.Toggle(messages.ActuatorIrrigation, source)
	return snap.State.Irrigation, err
}

func (d *DeviceService) ToggleSecurity(source string) (entities.Security, error) {
	snap, err := d.Toggle(messages.ActuatorSecurity, source)
	return snap.State.Security, err
}

func (d *DeviceService) ToggleCamera(source string) (entities.Camera, error) {
	snap, err := d.Toggle(messages.ActuatorCamera, source)
	return snap.State.Camera, err
}

func activeOf(st entities.FarmState, a messages.Actuator) bool {
	switch a {
	case messages.ActuatorIrrigation:
		return st.Irrigation.Active
	case messages.ActuatorSecurity:
		return st.Security.Active
	case messages.ActuatorCamera:
		return st.Camera.Recording
	}
	return false
}

// Start consumes actuator commands until ctx is cancelled.
func (d *DeviceService) Start(ctx context.Context, consumer rabbitmq.IConsumer[mqtt.Message]) error {
	consumer.SetHandler(d.HandleCommand)
	return consumer.ConsumeMessage(ctx)
}

// HandleCommand applies one MQTT actuator command.
// Identical payloads are distinct toggles; only a repeated command_id, or a
// DUP-flagged redelivery of a command without one, is dropped.
func (d *DeviceService) HandleCommand(_ string, m mqtt.Message) error {
	cmd, err := event.DecodeCommand(m.Topic(), m.Payload(), d.now())
	if err != nil {
		d.metrics.CommandHandled("rejected")
		return err
	}
	if cmd.CommandID == "" && m.Duplicate() {
		d.metrics.CommandHandled("duplicate")
		return nil
	}
	if !d.deduper.ShouldProcess(commandKey(cmd.CommandID)) {
		d.metrics.CommandHandled("duplicate")
		return nil
	}

	if _, err := d.Toggle(cmd.Actuator, messages.SourceMQTT); err != nil {
		d.metrics.CommandHandled("rejected")
		return fmt.Errorf("command %s: %w", cmd.CommandID, err)
	}
	d.metrics.CommandHandled("applied")
	return nil
}

// commandKey is empty (never deduplicated) for commands without an id.
func commandKey(id string) string {
	if id == "" {
		return ""
	}
	return "cmd:" + id
}
