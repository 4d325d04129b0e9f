package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// MigrateLogger adapts slog to the Printf/Verbose logger expected by golang-migrate.
type MigrateLogger struct {
	log     *slog.Logger
	verbose bool
}

// NewMigrateLogger tags every record with the given component name.
func NewMigrateLogger(log *slog.Logger, component string, verbose bool) *MigrateLogger {
	if log == nil {
		log = slog.Default()
	}
	return &MigrateLogger{log: log.With("component", component), verbose: verbose}
}

// Printf forwards migration progress as debug records.
func (l *MigrateLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Verbose reports whether migrate should emit per-step messages.
func (l *MigrateLogger) Verbose() bool {
	return l.verbose
}
