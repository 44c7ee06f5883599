package messages

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Actuator names one of the controllable devices.
type Actuator string

const (
	ActuatorIrrigation Actuator = "irrigation"
	ActuatorSecurity   Actuator = "security"
	ActuatorCamera     Actuator = "camera"
)

// ErrUnknownActuator is returned for names that map to no actuator.
var ErrUnknownActuator = errors.New("unknown actuator")

// ParseActuator accepts the canonical names plus a few aliases used by older clients.
func ParseActuator(s string) (Actuator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "irrigation", "pump", "valve":
		return ActuatorIrrigation, nil
	case "security", "alarm":
		return ActuatorSecurity, nil
	case "camera", "record", "recording":
		return ActuatorCamera, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownActuator, s)
}

// Origins of a toggle.
const (
	SourceHTTP = "http"
	SourceGRPC = "grpc"
	SourceMQTT = "mqtt"
)

// ActuatorStateChanged is published every time a toggle is applied.
type ActuatorStateChanged struct {
	Actuator  Actuator  `json:"actuator"`
	Active    bool      `json:"active"` // new state: irrigation on, system armed, camera recording
	Source    string    `json:"source"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}
