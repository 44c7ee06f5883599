package entities

import "time"

// SoilStatus is the coarse classification shown next to the moisture gauge.
type SoilStatus string

const (
	SoilLow     SoilStatus = "low"
	SoilOptimal SoilStatus = "optimal"
	SoilHigh    SoilStatus = "high"
)

const (
	MoistureMin = 0.0
	MoistureMax = 100.0
)

// SoilMoisture holds the volumetric moisture percentage of the field.
// Status is set once at startup and is not derived from Current.
type SoilMoisture struct {
	Current    float64    `json:"current"` // %
	History    []Reading  `json:"history"`
	Status     SoilStatus `json:"status"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

// SetCurrent stores v clamped to [MoistureMin, MoistureMax].
func (s *SoilMoisture) SetCurrent(v float64, at time.Time) {
	s.Current = clamp(v, MoistureMin, MoistureMax)
	s.LastUpdate = at
}
