package service

import (
	"context"
	"fmt"

	"building_automation/internal/engine"
	"building_automation/internal/repository"

	"go.uber.org/zap"
)

// Restore loads the last persisted mode, device state and runtime schedule rules into
// the controller. Stored rules that now overlap a configured rule are skipped.
func Restore(ctx context.Context, repos *repository.Repository, ctrl *engine.Controller, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	st, err := repos.StateRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if st.ID != 0 {
		if err := ctrl.Restore(st.Mode, st.Device); err != nil {
			log.Warnw("state_restore_skipped", "err", err, "mode", st.Mode)
		} else {
			log.Infow("state_restored", "mode", st.Mode, "source", st.Device.Source)
		}
	}

	rules, err := repos.ScheduleRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("load schedule rules: %w", err)
	}
	for _, r := range rules {
		if _, err := ctrl.Schedule().AddRule(r); err != nil {
			log.Warnw("schedule_rule_skipped", "id", r.ID, "window", r.Window.String(), "err", err)
		}
	}
	return nil
}
