package logger

import (
	"strings"
	"sync"
)

// Values accepted for log.level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Values accepted for log.format.
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

var (
	process *Logger
	once    sync.Once
)

// Get returns the process logger. Level and format are fixed by the first call.
func Get(level, format string) *Logger {
	once.Do(func() {
		process = newZapLogger(normalize(level), normalize(format))
	})
	return process
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
