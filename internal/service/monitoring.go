package service

import (
	"context"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
)

type MonitoringService struct {
	ctrl *engine.Controller
}

func NewMonitoringService(ctrl *engine.Controller) *MonitoringService {
	return &MonitoringService{ctrl: ctrl}
}

// GetState returns the live controller view. Timestamps are normalized to UTC.
func (s *MonitoringService) GetState(ctx context.Context) (StateView, error) {
	if err := ctx.Err(); err != nil {
		return StateView{}, err
	}
	st := s.ctrl.Current()
	st.LastUpdated = toUTC(st.LastUpdated)
	st.DoorUnlockedAt = toUTC(st.DoorUnlockedAt)

	snap := s.ctrl.LastSnapshot()
	snap.Timestamp = toUTC(snap.Timestamp)

	return StateView{Mode: s.ctrl.Mode(), State: st, Snapshot: snap}, nil
}

// ListMacros returns the registered macros sorted by name.
func (s *MonitoringService) ListMacros(ctx context.Context) []models.Macro {
	return s.ctrl.Macros().List()
}

// ListRules returns the schedule rules sorted by window start.
func (s *MonitoringService) ListRules(ctx context.Context) []models.ScheduleRule {
	return s.ctrl.Schedule().Rules()
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
