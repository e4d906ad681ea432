package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"building_automation/internal/models"
)

// ----------- Simulation constants -----------
const (
	SimStartTempC       = 22.0   // initial room temperature °C
	SimStartHumidityPct = 45.0   // initial relative humidity %
	TempJitterC         = 0.3    // max random change per reading °C
	HumidityJitterPct   = 1.0    // max random change per reading %
	HumidityMinPct      = 30.0   // simulated humidity floor
	HumidityMaxPct      = 70.0   // simulated humidity ceiling
	SetpointPull        = 0.02   // fraction of the setpoint gap closed per reading
	LightsOnFactor      = 1.0    // load factor with lights on
	LightsIdleFactor    = 0.2    // standby load with lights off
	DoorOpenFactor      = 0.5    // door relay energized while unlocked
	KWhPerFactorHour    = 0.1    // kWh per load factor per hour
	DaylightPeakLux     = 20000  // outdoor-facing room at noon
	NightLux            = 5.0    // residual light at night
	DaylightStartHour   = 6.0
	DaylightEndHour     = 20.0
)

// SensorSource produces one snapshot per decision cycle. The current device state is
// passed in so simulated sources can model the load it causes.
type SensorSource interface {
	Read(ctx context.Context, now time.Time, st models.DeviceState) (models.SensorSnapshot, error)
}

// SimulatedSensors is a random-walk stand-in for real sensors.
type SimulatedSensors struct {
	mu  sync.Mutex
	rnd *rand.Rand
	loc *time.Location

	temperatureC float64
	humidityPct  float64
	energyKWh    float64
	last         time.Time
}

// NewSimulatedSensors seeds the walk. A zero seed uses the current time.
func NewSimulatedSensors(seed int64, loc *time.Location) *SimulatedSensors {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SimulatedSensors{
		rnd:          rand.New(rand.NewSource(seed)),
		loc:          loc,
		temperatureC: SimStartTempC,
		humidityPct:  SimStartHumidityPct,
	}
}

// Read advances the walk to now.
func (s *SimulatedSensors) Read(ctx context.Context, now time.Time, st models.DeviceState) (models.SensorSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.SensorSnapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperatureC += SetpointPull*(st.TemperatureC-s.temperatureC) + s.uniform(TempJitterC)
	s.temperatureC = round1(s.temperatureC)

	s.humidityPct = round1(clamp(s.humidityPct+s.uniform(HumidityJitterPct), HumidityMinPct, HumidityMaxPct))

	if !s.last.IsZero() && now.After(s.last) {
		s.energyKWh += loadFactor(st) * now.Sub(s.last).Hours() * KWhPerFactorHour
	}
	s.last = now

	return models.SensorSnapshot{
		TemperatureC:   s.temperatureC,
		HumidityPct:    s.humidityPct,
		EnergyUsageKWh: s.energyKWh,
		IlluminanceLux: daylight(now.In(s.loc)),
		Timestamp:      now,
	}, nil
}

// uniform returns a value in [-span, span).
func (s *SimulatedSensors) uniform(span float64) float64 {
	return (s.rnd.Float64()*2 - 1) * span
}

func loadFactor(st models.DeviceState) float64 {
	f := LightsIdleFactor
	if st.Lighting.On() {
		f = LightsOnFactor
	}
	if st.DoorLock == models.DoorUnlocked {
		f += DoorOpenFactor
	}
	return f
}

// daylight is a half-sine between sunrise and sunset.
func daylight(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60
	if h < DaylightStartHour || h >= DaylightEndHour {
		return NightLux
	}
	phase := (h - DaylightStartHour) / (DaylightEndHour - DaylightStartHour)
	return math.Round(NightLux + DaylightPeakLux*math.Sin(math.Pi*phase))
}

// helpers
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
