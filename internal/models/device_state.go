package models

import (
	"fmt"
	"strings"
	"time"
)

// Lighting is a dimmer level in percent. 0 is off.
type Lighting int

const (
	LightingOff  Lighting = 0
	LightingFull Lighting = 100
)

// Valid reports whether the level is within 0..100.
func (l Lighting) Valid() bool { return l >= LightingOff && l <= LightingFull }

// On reports whether any light output is requested.
func (l Lighting) On() bool { return l > LightingOff }

// DoorLock is the target state of the door relay.
type DoorLock string

const (
	DoorLocked   DoorLock = "LOCKED"
	DoorUnlocked DoorLock = "UNLOCKED"
)

// Valid reports whether d is LOCKED or UNLOCKED.
func (d DoorLock) Valid() bool { return d == DoorLocked || d == DoorUnlocked }

// ParseDoorLock accepts locked/unlocked in any case, plus the relay spellings closed/open.
func ParseDoorLock(s string) (DoorLock, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOCKED", "CLOSED", "OFF":
		return DoorLocked, nil
	case "UNLOCKED", "OPEN", "ON":
		return DoorUnlocked, nil
	}
	return "", fmt.Errorf("invalid door lock %q: must be locked or unlocked", s)
}

// Targets is the set of target settings shared by schedule rules, macros and DeviceState.
type Targets struct {
	Lighting     Lighting `json:"lighting" mapstructure:"lighting"`           // 0..100
	TemperatureC float64  `json:"temperature_c" mapstructure:"temperature_c"` // setpoint °C
	DoorLock     DoorLock `json:"door_lock" mapstructure:"door_lock"`         // LOCKED | UNLOCKED
}

// Source values recorded on DeviceState.
const (
	SourceInitial      = "initial"
	SourceAuto         = "auto"
	SourceEnergySaving = "energy_saving"
	SourceOverride     = "override"
	SourceSchedulePref = "schedule:"
	SourceMacroPref    = "macro:"
)

// DeviceState is the authoritative target state consumed by actuators.
type DeviceState struct {
	Lighting        Lighting      `json:"lighting"`
	TemperatureC    float64       `json:"temperature_c"`
	DoorLock        DoorLock      `json:"door_lock"`
	LastModeApplied OperatingMode `json:"last_mode_applied"`
	Source          string        `json:"source"`                     // auto | energy_saving | override | schedule:<rule> | macro:<name>
	DoorUnlockedAt  time.Time     `json:"door_unlocked_at,omitempty"` // zero while locked
	LastUpdated     time.Time     `json:"last_updated"`
}

// Targets returns the three target fields of the state.
func (s DeviceState) Targets() Targets {
	return Targets{Lighting: s.Lighting, TemperatureC: s.TemperatureC, DoorLock: s.DoorLock}
}

// SameTargets reports whether both states request the same device outputs.
func (s DeviceState) SameTargets(o DeviceState) bool {
	return s.Targets() == o.Targets()
}

// SensorSnapshot is one cycle's environmental reading.
type SensorSnapshot struct {
	TemperatureC   float64   `json:"temperature_c"`
	HumidityPct    float64   `json:"humidity_pct"`
	EnergyUsageKWh float64   `json:"energy_usage_kwh"`
	IlluminanceLux float64   `json:"illuminance_lux"`
	Timestamp      time.Time `json:"timestamp"`
}

// PersistedState is the single stored row of controller state. ID is 0 when nothing
// has been persisted yet.
type PersistedState struct {
	ID     int           `json:"id"`
	Mode   OperatingMode `json:"mode"`
	Device DeviceState   `json:"device"`
}
