package event

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	msg "github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

const (
	measurementEvent    = "system_event"
	measurementSensor   = "farm_sensor"
	measurementActuator = "farm_actuator"

	EventTypeStateChange = "actuator.state_change"
)

type CommonEvent struct {
	EventType     string // actuator.state_change
	SourceService string // device-service
	Actuator      string
	Origin        string // http | grpc | mqtt
	Severity      string // info|warning|error
	Fields        map[string]interface{}
	Timestamp     time.Time
}

// FromStateChange maps an applied toggle onto the common event shape.
func FromStateChange(e msg.ActuatorStateChanged) CommonEvent {
	return CommonEvent{
		EventType:     EventTypeStateChange,
		SourceService: "device-service",
		Actuator:      string(e.Actuator),
		Origin:        e.Source,
		Severity:      "info",
		Fields: map[string]interface{}{
			"active":  e.Active,
			"version": int64(e.Version),
		},
		Timestamp: e.Timestamp,
	}
}

// EventToPoint normalizza CommonEvent in un *write.Point per InfluxDB.
func EventToPoint(evt CommonEvent) *write.Point {
	tags := map[string]string{
		"event_type":     evt.EventType,
		"source_service": evt.SourceService,
		"severity":       evt.Severity,
	}
	if evt.Actuator != "" {
		tags["actuator"] = evt.Actuator
	}
	if evt.Origin != "" {
		tags["source"] = evt.Origin
	}

	fields := map[string]interface{}{}
	for k, v := range evt.Fields {
		fields[k] = v
	}
	// almeno un field
	if _, ok := fields["count"]; !ok {
		fields["count"] = int64(1)
	}

	return influxdb2.NewPoint(measurementEvent, tags, fields, evt.Timestamp)
}

// SnapshotToPoints turns one snapshot into a sensor point and an actuator point.
func SnapshotToPoints(snap store.Snapshot) []*write.Point {
	st := snap.State
	ts := snap.TakenAt
	if ts.IsZero() {
		ts = st.SoilMoisture.LastUpdate
	}

	sensor := influxdb2.NewPoint(measurementSensor,
		map[string]string{
			"light_level": string(st.LightIntensity.Level),
			"soil_status": string(st.SoilMoisture.Status),
		},
		map[string]interface{}{
			"soil_moisture":   st.SoilMoisture.Current,
			"water_level":     st.WaterLevel.Current,
			"water_volume":    st.WaterLevel.Volume,
			"light_intensity": st.LightIntensity.Current,
			"temperature":     st.Weather.Temperature,
			"humidity":        st.Weather.Humidity,
			"wind_speed":      st.Weather.WindSpeed,
			"pressure":        st.Weather.Pressure,
			"version":         int64(snap.Version),
		}, ts)

	actuator := influxdb2.NewPoint(measurementActuator,
		map[string]string{},
		map[string]interface{}{
			"irrigation_active": st.Irrigation.Active,
			"flow_rate":         st.Irrigation.FlowRate,
			"security_active":   st.Security.Active,
			"camera_recording":  st.Camera.Recording,
		}, ts)

	return []*write.Point{sensor, actuator}
}
