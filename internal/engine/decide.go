package engine

import (
	"math"
	"time"

	"building_automation/internal/models"
)

// autoTargets derives lighting and setpoint from the snapshot. The door target is kept.
func (th Thresholds) autoTargets(cur models.Targets, s models.SensorSnapshot) models.Targets {
	cur.TemperatureC = th.setpoint(th.ComfortC, s.HumidityPct)
	cur.Lighting = models.LightingOff
	if s.IlluminanceLux < th.LightingLuxThreshold {
		cur.Lighting = th.LightingOnLevel
	}
	return cur
}

// energySavingTargets applies the AUTO logic inside the eco band, dims lighting by the
// scaling factor and switches lights off once usage exceeds the energy budget.
func (th Thresholds) energySavingTargets(cur models.Targets, s models.SensorSnapshot) models.Targets {
	es := th.EnergySaving
	cur.TemperatureC = th.setpoint(es.ComfortC, s.HumidityPct)
	cur.Lighting = models.LightingOff

	overBudget := es.EnergyBudgetKWh > 0 && s.EnergyUsageKWh > es.EnergyBudgetKWh
	if s.IlluminanceLux < th.LightingLuxThreshold && !overBudget {
		level := models.Lighting(math.Round(float64(th.LightingOnLevel) * es.ScalingFactor))
		if level < es.LightingFloor {
			level = es.LightingFloor
		}
		if level > th.LightingOnLevel {
			level = th.LightingOnLevel
		}
		cur.Lighting = level
	}
	return cur
}

// setpoint is the band midpoint lowered by humid air (raised by dry air), clamped to the band.
func (th Thresholds) setpoint(band Range, humidity float64) float64 {
	sp := band.Mid() - th.HumidityCoefficient*(humidity-th.HumidityReferencePct)
	sp, _ = band.Clamp(sp)
	return math.Round(sp*10) / 10
}

// relockDue reports whether an unlocked door has exceeded the relock timeout at now.
func (th Thresholds) relockDue(st models.DeviceState, now time.Time) bool {
	return th.DoorRelockAfter > 0 &&
		st.DoorLock == models.DoorUnlocked &&
		!st.DoorUnlockedAt.IsZero() &&
		now.Sub(st.DoorUnlockedAt) >= th.DoorRelockAfter
}

// withTargets returns cur carrying tg, keeping DoorUnlockedAt in step with the lock target.
func withTargets(cur models.DeviceState, tg models.Targets, mode models.OperatingMode, source string, at time.Time) models.DeviceState {
	next := cur
	next.Lighting = tg.Lighting
	next.TemperatureC = tg.TemperatureC
	next.DoorLock = tg.DoorLock
	next.LastModeApplied = mode
	next.Source = source

	switch {
	case tg.DoorLock == models.DoorLocked:
		next.DoorUnlockedAt = time.Time{}
	case cur.DoorLock != models.DoorUnlocked || cur.DoorUnlockedAt.IsZero():
		next.DoorUnlockedAt = at
	}
	return next
}
