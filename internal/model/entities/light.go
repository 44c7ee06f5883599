package entities

import "time"

// LightLevel buckets the raw light reading.
type LightLevel string

const (
	LightLow    LightLevel = "low"
	LightMedium LightLevel = "medium"
	LightHigh   LightLevel = "high"
)

const (
	LightMin = 0.0
	LightMax = 1500.0

	// readings below lightMediumFrom are low, from lightHighFrom on they are high.
	lightMediumFrom = 200.0
	lightHighFrom   = 800.0
)

// LightIntensity is measured in lux. Level is derived from Current.
type LightIntensity struct {
	Current    float64    `json:"current"`
	Level      LightLevel `json:"level"`
	History    []Reading  `json:"history"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

// SetCurrent stores v clamped to [LightMin, LightMax] and refreshes Level.
func (l *LightIntensity) SetCurrent(v float64, at time.Time) {
	l.Current = clamp(v, LightMin, LightMax)
	l.LastUpdate = at
	l.Recompute()
}

// Recompute refreshes Level from Current.
func (l *LightIntensity) Recompute() {
	l.Level = LevelFor(l.Current)
}

// LevelFor maps a lux value onto the low/medium/high table.
func LevelFor(lux float64) LightLevel {
	switch {
	case lux < lightMediumFrom:
		return LightLow
	case lux < lightHighFrom:
		return LightMedium
	default:
		return LightHigh
	}
}
