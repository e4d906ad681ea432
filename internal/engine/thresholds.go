package engine

import (
	"fmt"
	"math"
	"time"

	"building_automation/internal/models"
)

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// Clamp returns v limited to the range and whether it had to be changed.
func (r Range) Clamp(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return r.Min, true
	case v < r.Min:
		return r.Min, true
	case v > r.Max:
		return r.Max, true
	}
	return v, false
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

func (r Range) valid() bool { return r.Min <= r.Max }

// SensorRanges are the physically plausible bounds of each snapshot field.
type SensorRanges struct {
	TemperatureC   Range `mapstructure:"temperature_c" json:"temperature_c"`
	HumidityPct    Range `mapstructure:"humidity_pct" json:"humidity_pct"`
	EnergyUsageKWh Range `mapstructure:"energy_usage_kwh" json:"energy_usage_kwh"`
	IlluminanceLux Range `mapstructure:"illuminance_lux" json:"illuminance_lux"`
}

// EnergySaving biases the Auto computation toward reduced consumption.
type EnergySaving struct {
	ComfortC        Range           `mapstructure:"comfort_c" json:"comfort_c"`
	ScalingFactor   float64         `mapstructure:"scaling_factor" json:"scaling_factor"`     // (0,1], lighting multiplier
	LightingFloor   models.Lighting `mapstructure:"lighting_floor" json:"lighting_floor"`     // minimum level while lights are on
	EnergyBudgetKWh float64         `mapstructure:"energy_budget_kwh" json:"energy_budget_kwh"` // lights off above this; 0 disables
}

// Thresholds configure the AUTO and ENERGY_SAVING decisions.
type Thresholds struct {
	SensorRanges SensorRanges `mapstructure:"sensor_range" json:"sensor_range"`

	// AUTO comfort band, °C.
	ComfortC Range `mapstructure:"comfort_c" json:"comfort_c"`
	// Setpoint drops by HumidityCoefficient °C per % of humidity above HumidityReferencePct.
	HumidityReferencePct float64 `mapstructure:"humidity_reference_pct" json:"humidity_reference_pct"`
	HumidityCoefficient  float64 `mapstructure:"humidity_coefficient" json:"humidity_coefficient"`

	// Lights switch on below LightingLuxThreshold.
	LightingLuxThreshold float64         `mapstructure:"lighting_lux_threshold" json:"lighting_lux_threshold"`
	LightingOnLevel      models.Lighting `mapstructure:"lighting_on_level" json:"lighting_on_level"`

	EnergySaving EnergySaving `mapstructure:"energy_saving" json:"energy_saving"`

	// DoorRelockAfter re-locks an unlocked door in AUTO/ENERGY_SAVING. 0 disables.
	DoorRelockAfter time.Duration `mapstructure:"door_relock_after" json:"door_relock_after"`

	// SetpointC bounds accepted temperature targets from overrides, macros and rules.
	SetpointC Range `mapstructure:"setpoint_c" json:"setpoint_c"`
}

// DefaultThresholds returns the values used when configuration omits them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SensorRanges: SensorRanges{
			TemperatureC:   Range{Min: -20, Max: 60},
			HumidityPct:    Range{Min: 0, Max: 100},
			EnergyUsageKWh: Range{Min: 0, Max: 1_000_000},
			IlluminanceLux: Range{Min: 0, Max: 200_000},
		},
		ComfortC:             Range{Min: 20, Max: 25},
		HumidityReferencePct: 45,
		HumidityCoefficient:  0.05,
		LightingLuxThreshold: 200,
		LightingOnLevel:      models.LightingFull,
		EnergySaving: EnergySaving{
			ComfortC:      Range{Min: 18, Max: 23},
			ScalingFactor: 0.6,
			LightingFloor: 20,
		},
		DoorRelockAfter: 10 * time.Second,
		SetpointC:       Range{Min: 5, Max: 35},
	}
}

// Validate checks that the thresholds describe a usable configuration.
func (t Thresholds) Validate() error {
	sr := t.SensorRanges
	for name, r := range map[string]Range{
		"sensor_range.temperature_c":    sr.TemperatureC,
		"sensor_range.humidity_pct":     sr.HumidityPct,
		"sensor_range.energy_usage_kwh": sr.EnergyUsageKWh,
		"sensor_range.illuminance_lux":  sr.IlluminanceLux,
		"comfort_c":                     t.ComfortC,
		"energy_saving.comfort_c":       t.EnergySaving.ComfortC,
		"setpoint_c":                    t.SetpointC,
	} {
		if !r.valid() {
			return fmt.Errorf("%w: %s min %.2f > max %.2f", ErrInvalidThresholds, name, r.Min, r.Max)
		}
	}
	if f := t.EnergySaving.ScalingFactor; f <= 0 || f > 1 {
		return fmt.Errorf("%w: energy_saving.scaling_factor %.2f not in (0,1]", ErrInvalidThresholds, f)
	}
	if !t.LightingOnLevel.Valid() || !t.EnergySaving.LightingFloor.Valid() {
		return fmt.Errorf("%w: lighting levels must be within 0..100", ErrInvalidThresholds)
	}
	if t.EnergySaving.EnergyBudgetKWh < 0 || t.DoorRelockAfter < 0 {
		return fmt.Errorf("%w: energy budget and relock timeout must not be negative", ErrInvalidThresholds)
	}
	return nil
}

// validateTargets checks a rule, macro or override payload against the setpoint bounds.
func (t Thresholds) validateTargets(tg models.Targets) error {
	if !tg.Lighting.Valid() {
		return fmt.Errorf("%w: lighting %d not in 0..100", ErrInvalidTarget, tg.Lighting)
	}
	if math.IsNaN(tg.TemperatureC) || tg.TemperatureC < t.SetpointC.Min || tg.TemperatureC > t.SetpointC.Max {
		return fmt.Errorf("%w: temperature %.1f not in %.1f..%.1f", ErrInvalidTarget, tg.TemperatureC, t.SetpointC.Min, t.SetpointC.Max)
	}
	if !tg.DoorLock.Valid() {
		return fmt.Errorf("%w: door lock %q", ErrInvalidTarget, tg.DoorLock)
	}
	return nil
}

// sanitize clamps every snapshot field to its physical range and returns one error per clamp.
func (t Thresholds) sanitize(s models.SensorSnapshot) (models.SensorSnapshot, []*SensorRangeError) {
	var clamps []*SensorRangeError
	fields := []struct {
		name string
		v    *float64
		r    Range
	}{
		{"temperature_c", &s.TemperatureC, t.SensorRanges.TemperatureC},
		{"humidity_pct", &s.HumidityPct, t.SensorRanges.HumidityPct},
		{"energy_usage_kwh", &s.EnergyUsageKWh, t.SensorRanges.EnergyUsageKWh},
		{"illuminance_lux", &s.IlluminanceLux, t.SensorRanges.IlluminanceLux},
	}
	for _, f := range fields {
		if c, changed := f.r.Clamp(*f.v); changed {
			clamps = append(clamps, &SensorRangeError{Field: f.name, Value: *f.v, Clamped: c})
			*f.v = c
		}
	}
	return s, clamps
}
