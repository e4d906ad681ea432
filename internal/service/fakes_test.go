package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"

	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 27, 12, 0, 0, 0, time.UTC)

// memStateRepo keeps every saved state.
type memStateRepo struct {
	mu      sync.Mutex
	saves   []models.PersistedState
	saveErr error
}

func (r *memStateRepo) Save(ctx context.Context, s models.PersistedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves = append(r.saves, s)
	return nil
}

func (r *memStateRepo) Load(ctx context.Context) (models.PersistedState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return models.PersistedState{}, nil
	}
	return r.saves[len(r.saves)-1], nil
}

func (r *memStateRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

// memEventRepo records appended events.
type memEventRepo struct {
	mu     sync.Mutex
	events []models.ControllerEvent
}

func (r *memEventRepo) Append(ctx context.Context, e models.ControllerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ControllerEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *memEventRepo) ofType(typ string) []models.ControllerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ControllerEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// memScheduleRepo records inserted rules.
type memScheduleRepo struct {
	rules     []models.ScheduleRule
	insertErr error
}

func (r *memScheduleRepo) Insert(ctx context.Context, rule models.ScheduleRule) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memScheduleRepo) List(ctx context.Context) ([]models.ScheduleRule, error) {
	return r.rules, nil
}

// fakePublisher counts publishes and can fail on demand.
type fakePublisher struct {
	mu        sync.Mutex
	published []models.DeviceState
	err       error
}

func (p *fakePublisher) PublishState(ctx context.Context, mode models.OperatingMode, st models.DeviceState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, st)
	return p.err
}

// fixedSensors returns the same snapshot until told otherwise.
type fixedSensors struct {
	snap models.SensorSnapshot
	err  error
}

func (f *fixedSensors) Read(ctx context.Context, now time.Time, st models.DeviceState) (models.SensorSnapshot, error) {
	if f.err != nil {
		return models.SensorSnapshot{}, f.err
	}
	s := f.snap
	s.Timestamp = now
	return s, nil
}

var errBoom = errors.New("boom")

type harness struct {
	ctrl      *engine.Controller
	states    *memStateRepo
	events    *memEventRepo
	schedules *memScheduleRepo
	pub       *fakePublisher
	rec       *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	th := engine.DefaultThresholds()
	macros := engine.NewMacroRegistry(th)
	for _, m := range []models.Macro{
		{Name: "Night", Targets: models.Targets{Lighting: models.LightingOff, TemperatureC: 19, DoorLock: models.DoorLocked}},
		{Name: "Morning", Targets: models.Targets{Lighting: models.LightingFull, TemperatureC: 22, DoorLock: models.DoorUnlocked}},
	} {
		if err := macros.Register(m); err != nil {
			t.Fatalf("register macro: %v", err)
		}
	}

	h := &harness{
		states:    &memStateRepo{},
		events:    &memEventRepo{},
		schedules: &memScheduleRepo{},
		pub:       &fakePublisher{},
	}
	h.rec = newRecorder(h.states, h.events, h.pub, zap.NewNop().Sugar())

	ctrl, err := engine.NewController(th, engine.NewScheduleTable(time.UTC, th), macros,
		engine.WithClock(func() time.Time { return t0 }),
		engine.WithReporter(h.rec.EventReporter),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}
