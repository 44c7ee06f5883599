package entities

import "time"

const (
	WaterLevelMin = 0.0
	WaterLevelMax = 100.0

	// DefaultTankCapacity is the tank volume in litres.
	DefaultTankCapacity = 1000.0
)

// WaterLevel describes the irrigation tank. Volume is derived from Current and Capacity.
type WaterLevel struct {
	Current    float64   `json:"current"`  // % of capacity
	Capacity   float64   `json:"capacity"` // litres
	Volume     float64   `json:"volume"`   // litres
	History    []Reading `json:"history"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// SetCurrent stores v clamped to [WaterLevelMin, WaterLevelMax] and refreshes Volume.
func (w *WaterLevel) SetCurrent(v float64, at time.Time) {
	w.Current = clamp(v, WaterLevelMin, WaterLevelMax)
	w.LastUpdate = at
	w.Recompute()
}

// Recompute refreshes Volume from Current and Capacity.
func (w *WaterLevel) Recompute() {
	w.Volume = VolumeFor(w.Current, w.Capacity)
}

// VolumeFor converts a fill percentage into litres.
func VolumeFor(current, capacity float64) float64 {
	return current / 100 * capacity
}
