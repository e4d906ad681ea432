package service

import (
	"time"

	"building_automation/internal/models"
)

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "MODE_CHANGE", "OVERRIDE", "MACRO", "STATE_CHANGE", "REJECTED", ...
}

// StateView is what the operator panel shows: the mode, the committed device state and
// the snapshot the last decision was based on.
type StateView struct {
	Mode     models.OperatingMode  `json:"mode"`
	State    models.DeviceState    `json:"state"`
	Snapshot models.SensorSnapshot `json:"snapshot"`
}

// ScheduleRuleParams is the operator input for a new schedule rule.
type ScheduleRuleParams struct {
	ID           string
	Name         string
	Start        string // HH:MM
	End          string // HH:MM
	Lighting     models.Lighting
	TemperatureC float64
	DoorLock     string
}
