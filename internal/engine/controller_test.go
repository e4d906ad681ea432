package engine

import (
	"errors"
	"testing"
	"time"

	"building_automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 27, 12, 0, 0, 0, time.UTC)

func lighting(l models.Lighting) *models.Lighting { return &l }
func temp(v float64) *float64                     { return &v }
func door(d models.DoorLock) *models.DoorLock     { return &d }

type recorder struct{ reports []Report }

func (r *recorder) Report(rep Report) { r.reports = append(r.reports, rep) }

func (r *recorder) kinds() []ReportKind {
	out := make([]ReportKind, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep.Kind)
	}
	return out
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	th := DefaultThresholds()
	macros := NewMacroRegistry(th)
	require.NoError(t, macros.Register(models.Macro{Name: "Night", Targets: models.Targets{
		Lighting: models.LightingOff, TemperatureC: 18, DoorLock: models.DoorLocked,
	}}))
	require.NoError(t, macros.Register(models.Macro{Name: "Morning", Targets: models.Targets{
		Lighting: models.LightingFull, TemperatureC: 22, DoorLock: models.DoorUnlocked,
	}}))
	sched := NewScheduleTable(time.UTC, th)

	rec := &recorder{}
	opts = append([]Option{WithClock(func() time.Time { return t0 }), WithReporter(rec)}, opts...)
	c, err := NewController(th, sched, macros, opts...)
	require.NoError(t, err)
	return c, rec
}

func snapshot(tempC, humidity, lux float64) models.SensorSnapshot {
	return models.SensorSnapshot{TemperatureC: tempC, HumidityPct: humidity, IlluminanceLux: lux, Timestamp: t0}
}

func TestNewController_Defaults(t *testing.T) {
	c, _ := newTestController(t)

	assert.Equal(t, models.ModeManual, c.Mode())
	st := c.Current()
	assert.Equal(t, models.LightingOff, st.Lighting)
	assert.Equal(t, models.DoorLocked, st.DoorLock)
	assert.InDelta(t, 22.5, st.TemperatureC, 1e-9)
	assert.Equal(t, models.SourceInitial, st.Source)
}

func TestNewController_RejectsInvalidThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.ComfortC = Range{Min: 26, Max: 20}
	_, err := NewController(th, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestSetMode_TotalAndRejectsUnknown(t *testing.T) {
	c, rec := newTestController(t)

	for _, from := range models.Modes {
		for _, to := range models.Modes {
			require.NoError(t, c.SetMode(from))
			require.NoError(t, c.SetMode(to))
			assert.Equal(t, to, c.Mode())
		}
	}

	require.NoError(t, c.SetMode(models.ModeAuto))
	err := c.SetMode(models.OperatingMode("TURBO"))
	assert.ErrorIs(t, err, ErrInvalidModeTransition)
	assert.Equal(t, models.ModeAuto, c.Mode())
	assert.Contains(t, rec.kinds(), ReportModeChanged)
}

func TestManualOverride_HonoredOnlyInManual(t *testing.T) {
	c, rec := newTestController(t)
	require.NoError(t, c.SetMode(models.ModeManual))

	st, err := c.ApplyCommand(models.ManualOverrideCommand{Lighting: lighting(models.LightingFull)})
	require.NoError(t, err)
	assert.Equal(t, models.LightingFull, st.Lighting)
	assert.Equal(t, models.LightingFull, c.Current().Lighting)
	assert.Equal(t, models.DoorLocked, c.Current().DoorLock, "unset fields are kept")
	assert.Equal(t, t0, c.Current().LastUpdated)
	assert.Equal(t, ReportOverride, rec.reports[len(rec.reports)-1].Kind)

	require.NoError(t, c.SetMode(models.ModeAuto))
	before := c.Current()
	_, err = c.ApplyCommand(models.ManualOverrideCommand{Lighting: lighting(models.LightingOff)})
	assert.ErrorIs(t, err, ErrRejectedOverride)
	assert.Equal(t, before, c.Current())
}

func TestManualOverride_EmptyAndInvalid(t *testing.T) {
	c, _ := newTestController(t)
	before := c.Current()

	_, err := c.ApplyCommand(models.ManualOverrideCommand{})
	assert.ErrorIs(t, err, ErrEmptyOverride)

	_, err = c.ApplyCommand(models.ManualOverrideCommand{Lighting: lighting(140)})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = c.ApplyCommand(models.ManualOverrideCommand{TemperatureC: temp(90)})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	assert.Equal(t, before, c.Current())
}

func TestInvokeMacro_AnyModeKeepsMode(t *testing.T) {
	for _, mode := range models.Modes {
		t.Run(string(mode), func(t *testing.T) {
			c, _ := newTestController(t)
			require.NoError(t, c.SetMode(mode))

			st, err := c.ApplyCommand(models.InvokeMacroCommand{Name: "Night"})
			require.NoError(t, err)
			assert.Equal(t, models.LightingOff, st.Lighting)
			assert.Equal(t, 18.0, st.TemperatureC)
			assert.Equal(t, models.DoorLocked, st.DoorLock)
			assert.Equal(t, "macro:Night", st.Source)
			assert.Equal(t, mode, c.Mode())
		})
	}
}

func TestInvokeMacro_CaseInsensitiveAndUnknown(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.ApplyCommand(models.InvokeMacroCommand{Name: "night"})
	require.NoError(t, err)

	before := c.Current()
	_, err = c.ApplyCommand(models.InvokeMacroCommand{Name: "Party"})
	assert.ErrorIs(t, err, ErrUnknownMacro)
	assert.Equal(t, before, c.Current())
}

func TestApplyCommand_SetMode(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.ApplyCommand(models.SetModeCommand{Mode: models.ModeSchedule})
	require.NoError(t, err)
	assert.Equal(t, models.ModeSchedule, c.Mode())

	_, err = c.ApplyCommand(models.SetModeCommand{Mode: "nope"})
	assert.ErrorIs(t, err, ErrInvalidModeTransition)
}

func TestTick_ManualLeavesStateUnchanged(t *testing.T) {
	c, _ := newTestController(t)
	before := c.Current()

	got := c.Tick(snapshot(10, 80, 0), t0.Add(time.Minute))
	assert.Equal(t, before, got)
	assert.Equal(t, before, c.Current())
}

func TestTick_AutoDerivesFromSnapshot(t *testing.T) {
	c, rec := newTestController(t)
	require.NoError(t, c.SetMode(models.ModeAuto))

	dark := c.Tick(snapshot(21, 45, 50), t0)
	assert.Equal(t, models.LightingFull, dark.Lighting)
	assert.InDelta(t, 22.5, dark.TemperatureC, 1e-9)
	assert.Equal(t, models.SourceAuto, dark.Source)
	assert.Equal(t, models.ModeAuto, dark.LastModeApplied)
	assert.Contains(t, rec.kinds(), ReportStateChanged)

	bright := c.Tick(snapshot(21, 65, 800), t0.Add(time.Minute))
	assert.Equal(t, models.LightingOff, bright.Lighting)
	// 20 % above reference at 0.05 °C per % lowers the setpoint by 1 °C.
	assert.InDelta(t, 21.5, bright.TemperatureC, 1e-9)
}

func TestTick_AutoSetpointClampedToComfortBand(t *testing.T) {
	c, _ := newTestController(t)
	require.NoError(t, c.SetMode(models.ModeAuto))

	st := c.Tick(snapshot(21, 85, 500), t0)
	assert.InDelta(t, 20.5, st.TemperatureC, 1e-9)

	st = c.Tick(snapshot(21, 100, 500), t0.Add(time.Minute))
	assert.Equal(t, 20.0, st.TemperatureC)

	th := DefaultThresholds()
	th.HumidityCoefficient = 1
	c2, err := NewController(th, nil, nil, WithInitialMode(models.ModeAuto))
	require.NoError(t, err)
	st = c2.Tick(snapshot(21, 100, 500), t0)
	assert.Equal(t, th.ComfortC.Min, st.TemperatureC)
}

func TestTick_IdempotentForAutomaticModes(t *testing.T) {
	for _, mode := range []models.OperatingMode{models.ModeAuto, models.ModeEnergySaving, models.ModeSchedule} {
		t.Run(string(mode), func(t *testing.T) {
			c, _ := newTestController(t)
			_, err := c.Schedule().AddRule(models.ScheduleRule{
				Name:    "day",
				Window:  models.TimeWindow{Start: 8 * 60, End: 18 * 60},
				Targets: models.Targets{Lighting: 70, TemperatureC: 21, DoorLock: models.DoorUnlocked},
			})
			require.NoError(t, err)
			require.NoError(t, c.SetMode(mode))

			snap := snapshot(19, 55, 120)
			now := t0.Add(3 * time.Hour)
			first := c.Tick(snap, now)
			second := c.Tick(snap, now)
			third := c.Tick(snap, now)
			assert.Equal(t, first, second)
			assert.Equal(t, second, third)
		})
	}
}

func TestTick_ScheduleAppliesMatchingRuleOrKeepsState(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.Schedule().AddRule(models.ScheduleRule{
		Name:    "night",
		Window:  models.TimeWindow{Start: 22 * 60, End: 6 * 60},
		Targets: models.Targets{Lighting: models.LightingOff, TemperatureC: 18, DoorLock: models.DoorLocked},
	})
	require.NoError(t, err)
	require.NoError(t, c.SetMode(models.ModeSchedule))

	noon := c.Tick(snapshot(21, 45, 300), t0)
	assert.Equal(t, models.SourceInitial, noon.Source, "no rule matches at noon")

	late := time.Date(2025, 3, 27, 23, 30, 0, 0, time.UTC)
	st := c.Tick(snapshot(21, 45, 300), late)
	assert.Equal(t, "schedule:night", st.Source)
	assert.Equal(t, 18.0, st.TemperatureC)
	assert.Equal(t, late, st.LastUpdated)
	assert.Equal(t, models.ModeSchedule, st.LastModeApplied)
}

func TestTick_EnergySavingDimsAndRespectsBudget(t *testing.T) {
	th := DefaultThresholds()
	th.EnergySaving.EnergyBudgetKWh = 50
	c, err := NewController(th, nil, nil, WithInitialMode(models.ModeEnergySaving))
	require.NoError(t, err)

	st := c.Tick(snapshot(21, 45, 10), t0)
	assert.Equal(t, models.Lighting(60), st.Lighting)
	assert.InDelta(t, 20.5, st.TemperatureC, 1e-9)
	assert.Equal(t, models.SourceEnergySaving, st.Source)

	over := snapshot(21, 45, 10)
	over.EnergyUsageKWh = 75
	st = c.Tick(over, t0.Add(time.Minute))
	assert.Equal(t, models.LightingOff, st.Lighting)
}

func TestTick_EnergySavingLightingFloor(t *testing.T) {
	th := DefaultThresholds()
	th.EnergySaving.ScalingFactor = 0.1
	th.EnergySaving.LightingFloor = 30
	c, err := NewController(th, nil, nil, WithInitialMode(models.ModeEnergySaving))
	require.NoError(t, err)

	st := c.Tick(snapshot(21, 45, 10), t0)
	assert.Equal(t, models.Lighting(30), st.Lighting)
}

func TestTick_ClampsOutOfRangeSensorAndReports(t *testing.T) {
	c, rec := newTestController(t)
	require.NoError(t, c.SetMode(models.ModeAuto))

	st := c.Tick(snapshot(-50, 45, 500), t0)
	assert.Equal(t, -20.0, c.LastSnapshot().TemperatureC)
	assert.InDelta(t, 22.5, st.TemperatureC, 1e-9)

	var clamp *SensorRangeError
	for _, r := range rec.reports {
		if r.Kind == ReportSensorClamped {
			require.True(t, errors.As(r.Err, &clamp))
		}
	}
	require.NotNil(t, clamp, "expected an out-of-range report")
	assert.Equal(t, "temperature_c", clamp.Field)
	assert.Equal(t, -50.0, clamp.Value)
	assert.Equal(t, -20.0, clamp.Clamped)
	assert.ErrorIs(t, clamp, ErrOutOfRangeSensorValue)
}

func TestTick_AutoRelocksDoorAfterTimeout(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.ApplyCommand(models.InvokeMacroCommand{Name: "Morning"})
	require.NoError(t, err)
	require.Equal(t, models.DoorUnlocked, c.Current().DoorLock)
	require.NoError(t, c.SetMode(models.ModeAuto))

	st := c.Tick(snapshot(21, 45, 500), t0.Add(5*time.Second))
	assert.Equal(t, models.DoorUnlocked, st.DoorLock)

	st = c.Tick(snapshot(21, 45, 500), t0.Add(11*time.Second))
	assert.Equal(t, models.DoorLocked, st.DoorLock)
	assert.True(t, st.DoorUnlockedAt.IsZero())
}

func TestRestore(t *testing.T) {
	c, _ := newTestController(t)
	saved := models.DeviceState{
		Lighting: 40, TemperatureC: 21, DoorLock: models.DoorLocked,
		LastModeApplied: models.ModeSchedule, Source: "schedule:day", LastUpdated: t0.Add(-time.Hour),
	}
	require.NoError(t, c.Restore(models.ModeSchedule, saved))
	assert.Equal(t, models.ModeSchedule, c.Mode())
	assert.Equal(t, saved, c.Current())

	assert.ErrorIs(t, c.Restore("bogus", saved), ErrInvalidModeTransition)
}
