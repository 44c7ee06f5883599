package entities

import "time"

// Zone is a monitored area of the farm.
type Zone struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Type   string `json:"type"`
}

// Alert is reserved for intrusion reports; nothing raises alerts yet.
type Alert struct {
	Zone      string    `json:"zone"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type Security struct {
	Active    bool    `json:"active"` // armed
	Triggered bool    `json:"triggered"`
	Zones     []Zone  `json:"zones"`
	Alerts    []Alert `json:"alerts"`
}

// Toggle arms or disarms the system. Zones and alerts are left untouched.
func (s *Security) Toggle() {
	s.Active = !s.Active
}
