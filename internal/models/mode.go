package models

import (
	"strings"
)

// OperatingMode selects how DeviceState is computed each cycle.
type OperatingMode string

const (
	ModeManual       OperatingMode = "MANUAL"
	ModeAuto         OperatingMode = "AUTO"
	ModeSchedule     OperatingMode = "SCHEDULE"
	ModeEnergySaving OperatingMode = "ENERGY_SAVING"
)

// Modes lists every operating mode in display order.
var Modes = []OperatingMode{ModeManual, ModeAuto, ModeSchedule, ModeEnergySaving}

// Valid reports whether m is one of the known modes.
func (m OperatingMode) Valid() bool {
	switch m {
	case ModeManual, ModeAuto, ModeSchedule, ModeEnergySaving:
		return true
	}
	return false
}

func (m OperatingMode) String() string { return string(m) }

// ParseMode normalizes user input ("auto", "Energy Saving", "energy-saving") to a mode.
// The returned mode is not Valid when the input is unknown.
func ParseMode(s string) OperatingMode {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "ENERGYSAVING" {
		norm = string(ModeEnergySaving)
	}
	return OperatingMode(norm)
}
