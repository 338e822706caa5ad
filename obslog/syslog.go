//go:build !windows && !plan9 && !nacl

// Package obslog adapts a *log.Logger writing to the system log, for
// satellite-side deployments that want link diagnostics folded into the
// host's regular log stream instead of a separate file. Carried over from
// the teacher's syslog package, unchanged in shape beyond the name.
package obslog

import (
	"log"
	"log/syslog"
)

// Priority is the syslog facility/severity pair passed to NewSyslogLogger.
type Priority syslog.Priority

// Severity levels, the subset this package's callers use.
const (
	Info    = Priority(syslog.LOG_INFO)
	Warning = Priority(syslog.LOG_WARNING)
	Err     = Priority(syslog.LOG_ERR)
)

// NewSyslogLogger creates a log.Logger whose output is written to the
// system log service at priority p. logFlag is passed through to log.New
// (e.g. log.LstdFlags).
func NewSyslogLogger(p Priority, logFlag int) (*log.Logger, error) {
	return syslog.NewLogger(syslog.Priority(p), logFlag)
}
