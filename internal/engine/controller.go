package engine

import (
	"fmt"
	"sync"
	"time"

	"building_automation/internal/models"
)

// Controller owns the operating mode and the DeviceState store. SetMode, ApplyCommand,
// Tick and Restore are serialized by one mutex, so a decision cycle always runs to
// completion before the next command is applied.
type Controller struct {
	mu       sync.Mutex
	mode     models.OperatingMode
	snapshot models.SensorSnapshot

	store    *StateStore
	schedule *ScheduleTable
	macros   *MacroRegistry
	th       Thresholds

	now      func() time.Time
	reporter Reporter
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the clock used to stamp commands. Tick uses its own argument.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithReporter sets the observer notified of clamps, mode changes and state changes.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithInitialMode sets the mode active before the first command. Defaults to MANUAL.
func WithInitialMode(m models.OperatingMode) Option {
	return func(c *Controller) { c.mode = m }
}

// NewController builds a controller in MANUAL mode with lights off, the door locked and
// the setpoint at the middle of the comfort band.
func NewController(th Thresholds, schedule *ScheduleTable, macros *MacroRegistry, opts ...Option) (*Controller, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if schedule == nil {
		schedule = NewScheduleTable(nil, th)
	}
	if macros == nil {
		macros = NewMacroRegistry(th)
	}
	c := &Controller{
		mode:     models.ModeManual,
		schedule: schedule,
		macros:   macros,
		th:       th,
		now:      func() time.Time { return time.Now().UTC() },
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModeTransition, c.mode)
	}
	c.store = NewStateStore(models.DeviceState{
		Lighting:        models.LightingOff,
		TemperatureC:    th.ComfortC.Mid(),
		DoorLock:        models.DoorLocked,
		LastModeApplied: c.mode,
		Source:          models.SourceInitial,
		LastUpdated:     c.now(),
	})
	return c, nil
}

// Mode returns the active operating mode.
func (c *Controller) Mode() models.OperatingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Current returns the committed DeviceState.
func (c *Controller) Current() models.DeviceState { return c.store.Current() }

// Store exposes the read side of the DeviceState store.
func (c *Controller) Store() *StateStore { return c.store }

// Schedule returns the schedule table consulted in SCHEDULE mode.
func (c *Controller) Schedule() *ScheduleTable { return c.schedule }

// Macros returns the macro registry.
func (c *Controller) Macros() *MacroRegistry { return c.macros }

// Thresholds returns the AUTO/ENERGY_SAVING configuration.
func (c *Controller) Thresholds() Thresholds { return c.th }

// LastSnapshot returns the sanitized snapshot of the latest Tick.
func (c *Controller) LastSnapshot() models.SensorSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// SetMode switches the operating mode. Every known mode is reachable from every other;
// only unknown values fail. The DeviceState is recomputed on the next Tick.
func (c *Controller) SetMode(mode models.OperatingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidModeTransition, mode)
	}

	c.mu.Lock()
	prev := c.mode
	c.mode = mode
	state := c.store.Current()
	c.mu.Unlock()

	if prev != mode {
		c.reporter.Report(Report{Kind: ReportModeChanged, At: c.now(), Mode: mode, Previous: prev, State: state})
	}
	return nil
}

// Restore seeds the mode and state, typically from persistence at startup.
func (c *Controller) Restore(mode models.OperatingMode, state models.DeviceState) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidModeTransition, mode)
	}
	if err := c.th.validateTargets(state.Targets()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	at := state.LastUpdated
	if at.IsZero() {
		at = c.now()
	}
	c.store.commit(state, at)
	return nil
}

// ApplyCommand executes a SetMode, ManualOverride or InvokeMacro command. A rejected
// command leaves mode and state unchanged.
func (c *Controller) ApplyCommand(cmd models.Command) (models.DeviceState, error) {
	switch cmd := cmd.(type) {
	case models.SetModeCommand:
		if err := c.SetMode(cmd.Mode); err != nil {
			return c.store.Current(), err
		}
		return c.store.Current(), nil
	case models.ManualOverrideCommand:
		return c.override(cmd)
	case models.InvokeMacroCommand:
		return c.invokeMacro(cmd.Name)
	default:
		return c.store.Current(), fmt.Errorf("unsupported command %T", cmd)
	}
}

func (c *Controller) override(cmd models.ManualOverrideCommand) (models.DeviceState, error) {
	c.mu.Lock()
	cur := c.store.Current()
	if c.mode != models.ModeManual {
		mode := c.mode
		c.mu.Unlock()
		return cur, fmt.Errorf("%w (mode %s)", ErrRejectedOverride, mode)
	}
	if cmd.Empty() {
		c.mu.Unlock()
		return cur, ErrEmptyOverride
	}

	tg := cur.Targets()
	if cmd.Lighting != nil {
		tg.Lighting = *cmd.Lighting
	}
	if cmd.TemperatureC != nil {
		tg.TemperatureC = *cmd.TemperatureC
	}
	if cmd.DoorLock != nil {
		tg.DoorLock = *cmd.DoorLock
	}
	if err := c.th.validateTargets(tg); err != nil {
		c.mu.Unlock()
		return cur, err
	}

	at := c.now()
	next := withTargets(cur, tg, models.ModeManual, models.SourceOverride, at)
	c.store.commit(next, at)
	next = c.store.Current()
	c.mu.Unlock()

	c.reporter.Report(Report{Kind: ReportOverride, At: at, Mode: models.ModeManual, State: next, Detail: models.SourceOverride})
	return next, nil
}

func (c *Controller) invokeMacro(name string) (models.DeviceState, error) {
	m, ok := c.macros.Get(name)
	if !ok {
		return c.store.Current(), fmt.Errorf("%w: %q", ErrUnknownMacro, name)
	}

	c.mu.Lock()
	at := c.now()
	mode := c.mode
	next := withTargets(c.store.Current(), m.Targets, mode, models.SourceMacroPref+m.Name, at)
	c.store.commit(next, at)
	next = c.store.Current()
	c.mu.Unlock()

	c.reporter.Report(Report{Kind: ReportMacro, At: at, Mode: mode, State: next, Detail: m.Name})
	return next, nil
}

// Tick runs one decision cycle for the active mode and commits the result.
//
// Out-of-range snapshot fields are clamped to their configured bounds and reported as
// ReportSensorClamped. LastUpdated only advances when the resulting state differs from
// the committed one, so repeated ticks with the same snapshot and instant return the
// same DeviceState.
func (c *Controller) Tick(snapshot models.SensorSnapshot, now time.Time) models.DeviceState {
	snapshot, clamps := c.th.sanitize(snapshot)
	reports := make([]Report, 0, len(clamps)+1)

	c.mu.Lock()
	c.snapshot = snapshot
	mode := c.mode
	cur := c.store.Current()
	next := cur

	switch mode {
	case models.ModeManual:
		// commands only
	case models.ModeAuto:
		next = withTargets(cur, c.th.autoTargets(cur.Targets(), snapshot), mode, models.SourceAuto, now)
		next = c.relock(next, now)
	case models.ModeSchedule:
		if rule, ok := c.schedule.RuleAt(now); ok {
			next = withTargets(cur, rule.Targets, mode, models.SourceSchedulePref+rule.Label(), now)
		}
	case models.ModeEnergySaving:
		next = withTargets(cur, c.th.energySavingTargets(cur.Targets(), snapshot), mode, models.SourceEnergySaving, now)
		next = c.relock(next, now)
	}

	at := cur.LastUpdated
	changed := !stateEqual(cur, next)
	if changed {
		at = now
	}
	c.store.commit(next, at)
	next = c.store.Current()
	c.mu.Unlock()

	for _, cl := range clamps {
		reports = append(reports, Report{Kind: ReportSensorClamped, At: now, Mode: mode, State: next, Detail: cl.Field, Err: cl})
	}
	if changed {
		reports = append(reports, Report{Kind: ReportStateChanged, At: now, Mode: mode, State: next, Detail: next.Source})
	}
	for _, r := range reports {
		c.reporter.Report(r)
	}
	return next
}

func (c *Controller) relock(st models.DeviceState, now time.Time) models.DeviceState {
	if c.th.relockDue(st, now) {
		st.DoorLock = models.DoorLocked
		st.DoorUnlockedAt = time.Time{}
	}
	return st
}

// stateEqual compares everything except LastUpdated.
func stateEqual(a, b models.DeviceState) bool {
	return a.SameTargets(b) &&
		a.LastModeApplied == b.LastModeApplied &&
		a.Source == b.Source &&
		a.DoorUnlockedAt.Equal(b.DoorUnlockedAt)
}
