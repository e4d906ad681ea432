package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
	"building_automation/internal/repository"
)

// ControlService applies operator commands to the controller and records them.
type ControlService struct {
	ctrl      *engine.Controller
	schedules repository.ScheduleRepo
	rec       *recorder
	now       func() time.Time
}

func NewControlService(ctrl *engine.Controller, schedules repository.ScheduleRepo, rec *recorder) *ControlService {
	return &ControlService{ctrl: ctrl, schedules: schedules, rec: rec, now: time.Now}
}

// SetMode switches the operating mode. The device state follows on the next tick.
// Setting the active mode again is accepted and records nothing.
func (s *ControlService) SetMode(ctx context.Context, mode models.OperatingMode) error {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	prev, prevState := s.ctrl.Mode(), s.ctrl.Current()
	if err := s.ctrl.SetMode(mode); err != nil {
		return s.rec.rejected(ctx, "set_mode", err)
	}
	if prev == mode {
		return nil
	}
	if err := s.rec.commit(ctx, mode, s.ctrl.Current()); err != nil {
		s.rec.restore(s.ctrl, prev, prevState)
		return err
	}
	s.rec.event(ctx, s.now(), models.EventModeChange, fmt.Sprintf("Mode changed from %s to %s", prev, mode),
		map[string]any{"from": prev, "to": mode})
	return nil
}

// Override sets device targets directly. Only accepted in MANUAL mode.
func (s *ControlService) Override(ctx context.Context, cmd models.ManualOverrideCommand) (models.DeviceState, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	mode, prevState := s.ctrl.Mode(), s.ctrl.Current()
	st, err := s.ctrl.ApplyCommand(cmd)
	if err != nil {
		return st, s.rec.rejected(ctx, "override", err)
	}
	if err := s.rec.commit(ctx, mode, st); err != nil {
		s.rec.restore(s.ctrl, mode, prevState)
		return prevState, err
	}
	s.rec.event(ctx, st.LastUpdated, models.EventOverride, "Manual override applied", overrideMeta(cmd))
	return st, nil
}

// InvokeMacro applies a named macro in any mode.
func (s *ControlService) InvokeMacro(ctx context.Context, name string) (models.DeviceState, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	mode, prevState := s.ctrl.Mode(), s.ctrl.Current()
	st, err := s.ctrl.ApplyCommand(models.InvokeMacroCommand{Name: name})
	if err != nil {
		return st, s.rec.rejected(ctx, "invoke_macro", err)
	}
	if err := s.rec.commit(ctx, mode, st); err != nil {
		s.rec.restore(s.ctrl, mode, prevState)
		return prevState, err
	}
	macro := strings.TrimPrefix(st.Source, models.SourceMacroPref)
	s.rec.event(ctx, st.LastUpdated, models.EventMacro, "Macro "+macro+" applied", map[string]any{
		"macro":         macro,
		"mode":          mode,
		"lighting":      st.Lighting,
		"temperature_c": st.TemperatureC,
		"door_lock":     st.DoorLock,
	})
	return st, nil
}

// AddScheduleRule validates and inserts a rule, then stores it so it survives restarts.
// A rule that cannot be stored is taken out of the table again.
func (s *ControlService) AddScheduleRule(ctx context.Context, p ScheduleRuleParams) (models.ScheduleRule, error) {
	rule, err := p.rule()
	if err != nil {
		return models.ScheduleRule{}, s.rec.rejected(ctx, "add_schedule_rule", err)
	}
	rule.CreatedAt = s.now().UTC()

	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	rule, err = s.ctrl.Schedule().AddRule(rule)
	if err != nil {
		return models.ScheduleRule{}, s.rec.rejected(ctx, "add_schedule_rule", err)
	}
	if err := s.schedules.Insert(ctx, rule); err != nil {
		s.ctrl.Schedule().Remove(rule.ID)
		return models.ScheduleRule{}, fmt.Errorf("store schedule rule: %w", err)
	}
	s.rec.event(ctx, rule.CreatedAt, models.EventScheduleRule, fmt.Sprintf("Schedule rule %s added for %s", rule.Label(), rule.Window),
		map[string]any{
			"id":            rule.ID,
			"window":        rule.Window.String(),
			"lighting":      rule.Lighting,
			"temperature_c": rule.TemperatureC,
			"door_lock":     rule.DoorLock,
		})
	return rule, nil
}

func (p ScheduleRuleParams) rule() (models.ScheduleRule, error) {
	start, err := models.ParseClock(p.Start)
	if err != nil {
		return models.ScheduleRule{}, fmt.Errorf("%w: start: %v", engine.ErrInvalidWindow, err)
	}
	end, err := models.ParseClock(p.End)
	if err != nil {
		return models.ScheduleRule{}, fmt.Errorf("%w: end: %v", engine.ErrInvalidWindow, err)
	}
	lock := models.DoorLocked
	if strings.TrimSpace(p.DoorLock) != "" {
		if lock, err = models.ParseDoorLock(p.DoorLock); err != nil {
			return models.ScheduleRule{}, fmt.Errorf("%w: %v", engine.ErrInvalidTarget, err)
		}
	}
	return models.ScheduleRule{
		ID:     strings.TrimSpace(p.ID),
		Name:   strings.TrimSpace(p.Name),
		Window: models.TimeWindow{Start: start, End: end},
		Targets: models.Targets{
			Lighting:     p.Lighting,
			TemperatureC: p.TemperatureC,
			DoorLock:     lock,
		},
	}, nil
}

func overrideMeta(cmd models.ManualOverrideCommand) map[string]any {
	meta := map[string]any{}
	if cmd.Lighting != nil {
		meta["lighting"] = *cmd.Lighting
	}
	if cmd.TemperatureC != nil {
		meta["temperature_c"] = *cmd.TemperatureC
	}
	if cmd.DoorLock != nil {
		meta["door_lock"] = *cmd.DoorLock
	}
	return meta
}
