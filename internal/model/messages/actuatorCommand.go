package messages

import "time"

// ActuatorCommand asks the device service to flip an actuator.
// Received on actuator/command/{actuator}; Actuator may be omitted and taken from the topic.
type ActuatorCommand struct {
	CommandID string    `json:"command_id,omitempty"`
	Actuator  Actuator  `json:"actuator"`
	Timestamp time.Time `json:"timestamp"`
}
