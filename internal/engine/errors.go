package engine

import (
	"errors"
	"fmt"
)

// Domain errors returned by the controller, schedule table and macro registry.
//
// Check them with errors.Is:
//
//	if errors.Is(err, engine.ErrRejectedOverride) {
//	    // switch to MANUAL first
//	}
var (
	// ErrInvalidModeTransition is returned when the requested mode is not a known OperatingMode.
	ErrInvalidModeTransition = errors.New("mode: invalid mode")

	// ErrRejectedOverride is returned when a manual override arrives outside MANUAL mode.
	ErrRejectedOverride = errors.New("override: rejected, mode is not MANUAL")

	// ErrEmptyOverride is returned when a manual override sets no field.
	ErrEmptyOverride = errors.New("override: no field set")

	// ErrUnknownMacro is returned when invoking a macro name that is not registered.
	ErrUnknownMacro = errors.New("macro: unknown")

	// ErrDuplicateMacro is returned when registering a name twice.
	ErrDuplicateMacro = errors.New("macro: duplicate name")

	// ErrInvalidMacroName is returned for an empty macro name.
	ErrInvalidMacroName = errors.New("macro: invalid name")

	// ErrOverlappingWindow is returned when a schedule rule overlaps an existing one.
	ErrOverlappingWindow = errors.New("schedule: overlapping window")

	// ErrDuplicateRule is returned when a rule ID is already present.
	ErrDuplicateRule = errors.New("schedule: duplicate rule id")

	// ErrInvalidWindow is returned for an empty or out-of-range time window.
	ErrInvalidWindow = errors.New("schedule: invalid window")

	// ErrInvalidTarget is returned for a lighting, temperature or door value out of range.
	ErrInvalidTarget = errors.New("target: invalid value")

	// ErrInvalidThresholds is returned when Auto/EnergySaving thresholds are inconsistent.
	ErrInvalidThresholds = errors.New("thresholds: invalid")

	// ErrOutOfRangeSensorValue marks a sensor reading that was clamped. It is reported, not returned.
	ErrOutOfRangeSensorValue = errors.New("sensor: value out of range")
)

// SensorRangeError describes one clamped sensor field.
type SensorRangeError struct {
	Field   string
	Value   float64
	Clamped float64
}

func (e *SensorRangeError) Error() string {
	return fmt.Sprintf("%s: %s=%.2f clamped to %.2f", ErrOutOfRangeSensorValue, e.Field, e.Value, e.Clamped)
}

func (e *SensorRangeError) Unwrap() error { return ErrOutOfRangeSensorValue }

// Stable error codes shared by the HTTP API and the CLI.
const (
	CodeInvalidMode       = "INVALID_MODE"
	CodeRejectedOverride  = "REJECTED_OVERRIDE"
	CodeEmptyOverride     = "EMPTY_OVERRIDE"
	CodeUnknownMacro      = "UNKNOWN_MACRO"
	CodeDuplicateMacro    = "DUPLICATE_MACRO"
	CodeInvalidMacroName  = "INVALID_MACRO_NAME"
	CodeOverlappingWindow = "OVERLAPPING_WINDOW"
	CodeDuplicateRule     = "DUPLICATE_RULE"
	CodeInvalidWindow     = "INVALID_WINDOW"
	CodeInvalidTarget     = "INVALID_TARGET"
	CodeOutOfRangeSensor  = "OUT_OF_RANGE_SENSOR_VALUE"
	CodeInternal          = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidModeTransition, CodeInvalidMode},
	{ErrRejectedOverride, CodeRejectedOverride},
	{ErrEmptyOverride, CodeEmptyOverride},
	{ErrUnknownMacro, CodeUnknownMacro},
	{ErrDuplicateMacro, CodeDuplicateMacro},
	{ErrInvalidMacroName, CodeInvalidMacroName},
	{ErrOverlappingWindow, CodeOverlappingWindow},
	{ErrDuplicateRule, CodeDuplicateRule},
	{ErrInvalidWindow, CodeInvalidWindow},
	{ErrInvalidTarget, CodeInvalidTarget},
	{ErrOutOfRangeSensorValue, CodeOutOfRangeSensor},
}

// ErrorCode maps an engine error to its stable code. Unknown errors map to INTERNAL.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
