package models

// Command is one of SetModeCommand, ManualOverrideCommand or InvokeMacroCommand.
type Command interface {
	commandKind() string
}

// SetModeCommand switches the operating mode.
type SetModeCommand struct {
	Mode OperatingMode
}

// ManualOverrideCommand sets any subset of the device targets. Nil fields are left as is.
type ManualOverrideCommand struct {
	Lighting     *Lighting
	TemperatureC *float64
	DoorLock     *DoorLock
}

// Empty reports whether the override carries no field.
func (c ManualOverrideCommand) Empty() bool {
	return c.Lighting == nil && c.TemperatureC == nil && c.DoorLock == nil
}

// InvokeMacroCommand applies a registered macro.
type InvokeMacroCommand struct {
	Name string
}

func (SetModeCommand) commandKind() string        { return "set_mode" }
func (ManualOverrideCommand) commandKind() string { return "manual_override" }
func (InvokeMacroCommand) commandKind() string    { return "invoke_macro" }

// CommandKind returns a short name for logging.
func CommandKind(c Command) string {
	if c == nil {
		return ""
	}
	return c.commandKind()
}
