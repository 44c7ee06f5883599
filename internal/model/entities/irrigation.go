// Package entities internal/model/entities/irrigation.go
package entities

// ActiveFlowRate is the pump flow (litres/min) while irrigation runs.
const ActiveFlowRate = 2.5

// ScheduleEntry is one slot of the daily irrigation plan.
type ScheduleEntry struct {
	Time    string `json:"time"` // HH:MM local
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
}

type Irrigation struct {
	Active   bool            `json:"active"`
	FlowRate float64         `json:"flowRate"`
	Duration int             `json:"duration"` // minutes
	AutoMode bool            `json:"autoMode"`
	Schedule []ScheduleEntry `json:"schedule"`
}

// Toggle flips the valve and sets the matching flow rate.
func (i *Irrigation) Toggle() {
	i.Active = !i.Active
	if i.Active {
		i.FlowRate = ActiveFlowRate
	} else {
		i.FlowRate = 0
	}
}
