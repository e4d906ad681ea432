package models

import "time"

// Event types written to the activity log.
const (
	EventStart        = "START"
	EventStop         = "STOP"
	EventModeChange   = "MODE_CHANGE"
	EventOverride     = "OVERRIDE"
	EventMacro        = "MACRO"
	EventStateChange  = "STATE_CHANGE"
	EventScheduleRule = "SCHEDULE_RULE"
	EventSensorClamp  = "SENSOR_CLAMPED"
	EventRejected     = "REJECTED"
)

// ControllerEvent is a single log entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // MODE_CHANGE | OVERRIDE | MACRO | STATE_CHANGE | ...
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
