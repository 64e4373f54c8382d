// Package logging sets up per-subsystem loggers and periodic snapshot
// file naming, the way the teacher's direwolf.c sets up -l/-L logging
// and tq.go names timestamped audio save files.
package logging

/*-------------------------------------------------------------
 *
 * Purpose:	Shared charmbracelet/log construction for every package
 *		that currently builds its own discard-by-default logger
 *		(msp, air): one place to point them all at a real
 *		writer and level.
 *
 * Grounded on src/tq.go's strftime.Format usage for naming periodic
 * saved-audio files; reused here for naming periodic telemetry/
 * diagnostic snapshots instead.
 *
 *--------------------------------------------------------------*/

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// New builds a logger with prefix, writing to w at level.
func New(w io.Writer, prefix string, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
	})
	l.SetLevel(level)
	return l
}

// Discard builds a logger with prefix that writes nowhere, matching
// the default every package in this module constructs before SetLogger
// is called.
func Discard(prefix string) *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Prefix: prefix})
}

// SnapshotFilename renders pattern (an strftime format, e.g.
// "raven-snapshot-%Y%m%d-%H%M%S.yaml") against now.
func SnapshotFilename(pattern string, now time.Time) (string, error) {
	return strftime.Format(pattern, now)
}
