package engine

import (
	"time"

	"building_automation/internal/models"
)

// ReportKind classifies a controller report.
type ReportKind string

const (
	ReportSensorClamped ReportKind = "sensor_clamped"
	ReportModeChanged   ReportKind = "mode_changed"
	ReportOverride      ReportKind = "override_applied"
	ReportMacro         ReportKind = "macro_applied"
	ReportStateChanged  ReportKind = "state_changed"
)

// Report is a notable controller event delivered to the external observer.
type Report struct {
	Kind     ReportKind
	At       time.Time
	Mode     models.OperatingMode
	Previous models.OperatingMode // set for ReportModeChanged
	State    models.DeviceState
	Detail   string // macro name or state source
	Err      error  // *SensorRangeError for ReportSensorClamped
}

// Reporter receives reports after the controller releases its lock, so it may
// call back into the controller.
type Reporter interface {
	Report(Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Report)

// Report calls f(r).
func (f ReporterFunc) Report(r Report) { f(r) }

type nopReporter struct{}

func (nopReporter) Report(Report) {}
