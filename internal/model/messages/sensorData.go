package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agribot/internal/model/entities"
)

// TypeSensorUpdate is the event name clients listen for on the push channel.
const TypeSensorUpdate = "sensorUpdate"

// SensorUpdate is the frame pushed to websocket clients and mirrored on MQTT.
type SensorUpdate struct {
	Type      string             `json:"type"`
	Version   uint64             `json:"version"`
	Timestamp time.Time          `json:"timestamp"`
	Data      entities.FarmState `json:"data"`
}
