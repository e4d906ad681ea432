package service

import (
	"context"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
)

const defaultTick = 5 * time.Second

// DriverService feeds sensor snapshots to the controller on a fixed cadence and records
// every state change.
type DriverService struct {
	ctrl    *engine.Controller
	sensors SensorSource
	rec     *recorder
}

func NewDriverService(ctrl *engine.Controller, sensors SensorSource, rec *recorder) *DriverService {
	return &DriverService{ctrl: ctrl, sensors: sensors, rec: rec}
}

// Run ticks at the given interval until ctx is canceled.
func (s *DriverService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = defaultTick
	}
	s.rec.event(ctx, time.Now(), models.EventStart, "Decision loop started", map[string]any{
		"mode": s.ctrl.Mode(),
		"tick": tick.String(),
	})

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), reportWriteTimeout)
			s.rec.event(stopCtx, time.Now(), models.EventStop, "Decision loop stopped", nil)
			cancel()
			return
		case now := <-t.C:
			s.step(ctx, now.UTC())
		}
	}
}

// step runs one cycle. It reports whether the committed state changed.
func (s *DriverService) step(ctx context.Context, now time.Time) (models.DeviceState, bool) {
	snap, err := s.sensors.Read(ctx, now, s.ctrl.Current())
	if err != nil {
		s.rec.log.Warnw("sensor_read_failed", "err", err)
		return s.ctrl.Current(), false
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = now
	}

	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	mode, prev := s.ctrl.Mode(), s.ctrl.Current()
	next := s.ctrl.Tick(snap, now)
	if next.LastUpdated.Equal(prev.LastUpdated) {
		return next, false
	}
	if err := s.rec.commit(ctx, mode, next); err != nil {
		// roll back so the next tick recomputes and retries the save
		s.rec.log.Errorw("tick_failed", "err", err, "mode", mode)
		s.rec.restore(s.ctrl, mode, prev)
		return prev, false
	}
	return next, true
}
