package service

import (
	"context"
	"errors"
	"time"

	"building_automation/internal/engine"
	"building_automation/internal/models"
	"building_automation/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reportWriteTimeout = 2 * time.Second

// EventReporter turns controller reports into log lines and event rows.
type EventReporter struct {
	events repository.EventRepo
	log    *zap.SugaredLogger
}

var _ engine.Reporter = (*EventReporter)(nil)

func NewEventReporter(events repository.EventRepo, log *zap.SugaredLogger) *EventReporter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EventReporter{events: events, log: log}
}

// Report handles decision-loop reports. Command reports are only logged here since
// ControlService writes their events itself.
func (r *EventReporter) Report(rep engine.Report) {
	switch rep.Kind {
	case engine.ReportSensorClamped:
		r.log.Warnw("sensor_clamped", "field", rep.Detail, "err", rep.Err, "mode", rep.Mode)
		meta := map[string]any{"field": rep.Detail}
		desc := "sensor value clamped: " + rep.Detail
		var re *engine.SensorRangeError
		if errors.As(rep.Err, &re) {
			meta["value"] = re.Value
			meta["clamped"] = re.Clamped
			desc = re.Error()
		}
		r.detached(rep.At, models.EventSensorClamp, desc, meta)
	case engine.ReportStateChanged:
		r.log.Debugw("state_changed", "mode", rep.Mode, "source", rep.Detail,
			"lighting", rep.State.Lighting, "temperature_c", rep.State.TemperatureC, "door", rep.State.DoorLock)
		r.detached(rep.At, models.EventStateChange, "state applied by "+rep.Detail, stateMeta(rep.State))
	case engine.ReportModeChanged:
		r.log.Infow("mode_changed", "from", rep.Previous, "to", rep.Mode)
	default:
		r.log.Infow(string(rep.Kind), "mode", rep.Mode, "detail", rep.Detail)
	}
}

// detached writes an event outside any request context.
func (r *EventReporter) detached(at time.Time, typ, desc string, meta any) {
	ctx, cancel := context.WithTimeout(context.Background(), reportWriteTimeout)
	defer cancel()
	r.event(ctx, at, typ, desc, meta)
}

func (r *EventReporter) event(ctx context.Context, at time.Time, typ, desc string, meta any) {
	if r.events == nil {
		return
	}
	err := r.events.Append(ctx, models.ControllerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  at.UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		r.log.Errorw("event_append_failed", "type", typ, "err", err)
	}
}

func stateMeta(st models.DeviceState) map[string]any {
	return map[string]any{
		"lighting":      st.Lighting,
		"temperature_c": st.TemperatureC,
		"door_lock":     st.DoorLock,
		"source":        st.Source,
	}
}
