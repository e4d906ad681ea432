package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
	"building_automation/internal/repository"

	"go.uber.org/zap"
)

// recorder persists committed state, publishes it and writes the activity log.
//
// mu is held from the controller mutation until the save returns, so commands and
// ticks reach the store in the order they were applied.
type recorder struct {
	*EventReporter
	mu        sync.Mutex
	stateRepo repository.StateRepo
	publisher StatePublisher
}

func newRecorder(stateRepo repository.StateRepo, eventRepo repository.EventRepo, pub StatePublisher, log *zap.SugaredLogger) *recorder {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &recorder{
		EventReporter: NewEventReporter(eventRepo, log),
		stateRepo:     stateRepo,
		publisher:     pub,
	}
}

// commit saves the state row and publishes it. A failed publish is logged, not returned:
// the state is already authoritative once stored.
func (r *recorder) commit(ctx context.Context, mode models.OperatingMode, st models.DeviceState) error {
	if err := r.stateRepo.Save(ctx, models.PersistedState{ID: 1, Mode: mode, Device: st}); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := r.publisher.PublishState(ctx, mode, st); err != nil {
		r.log.Warnw("publish_failed", "err", err, "mode", mode)
	}
	return nil
}

// restore puts mode and state back after a failed save. Callers hold mu.
func (r *recorder) restore(ctrl *engine.Controller, mode models.OperatingMode, st models.DeviceState) {
	if err := ctrl.Restore(mode, st); err != nil {
		r.log.Errorw("rollback_failed", "err", err, "mode", mode)
	}
}

// rejected logs a refused command and returns err unchanged.
func (r *recorder) rejected(ctx context.Context, op string, err error) error {
	code := engine.ErrorCode(err)
	r.log.Infow("command_rejected", "op", op, "code", code, "err", err)
	r.event(ctx, time.Now(), models.EventRejected, fmt.Sprintf("%s rejected: %v", op, err), map[string]any{
		"operation": op,
		"code":      code,
	})
	return err
}
