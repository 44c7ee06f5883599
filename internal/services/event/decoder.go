package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	msg "github.com/LeonardoBeccarini/agribot/internal/model/messages"
)

const CommandTopicPrefix = "actuator/command/"

// DecodeCommand parses an actuator command. The actuator comes from the
// payload or, when missing there, from the topic "actuator/command/{actuator}".
// An empty payload is a valid command.
func DecodeCommand(topic string, payload []byte, now time.Time) (msg.ActuatorCommand, error) {
	var cmd msg.ActuatorCommand
	if len(bytes.TrimSpace(payload)) > 0 {
		var raw struct {
			CommandID string    `json:"command_id"`
			Actuator  string    `json:"actuator"`
			Timestamp time.Time `json:"timestamp"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return msg.ActuatorCommand{}, fmt.Errorf("invalid command payload: %w", err)
		}
		cmd.CommandID = raw.CommandID
		cmd.Timestamp = raw.Timestamp
		cmd.Actuator = msg.Actuator(raw.Actuator)
	}

	name := pickActuator(topic, string(cmd.Actuator))
	a, err := msg.ParseActuator(name)
	if err != nil {
		return msg.ActuatorCommand{}, fmt.Errorf("command on %s: %w", topic, err)
	}
	cmd.Actuator = a
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = now
	}
	return cmd, nil
}

// pickActuator usa il payload, oppure il topic "actuator/command/{actuator}".
func pickActuator(topic, actuator string) string {
	if strings.TrimSpace(actuator) != "" {
		return actuator
	}
	suffix := strings.TrimPrefix(topic, CommandTopicPrefix)
	if suffix == topic {
		return ""
	}
	parts := strings.Split(suffix, "/")
	return parts[0]
}
