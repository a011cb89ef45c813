// Package telemetry provides the structured logger shared across the
// pipeline and CLI (SPEC_FULL.md "Ambient stack"). It is deliberately thin:
// one *logrus.Logger, a text formatter, and a couple of field helpers for
// the phase/file/duration triple every compile stage wants to log.
package telemetry

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger. internal/maincmd.Cmd.Main
// wires its level from the --verbose flag; library code never mutates it
// directly.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   false,
		TimestampFormat: time.RFC3339,
	})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetVerbose sets the logger to Debug level when v is true and back to Warn
// otherwise; Cmd.Main calls it with the --verbose flag's value, and the
// dbg/time verbs call it for their own duration.
func SetVerbose(v bool) {
	if v {
		Logger.SetLevel(logrus.DebugLevel)
	} else {
		Logger.SetLevel(logrus.WarnLevel)
	}
}

// Phase logs the start of a compile/VM phase and returns a function to call
// when it completes, recording its duration. Typical use:
//
//	done := telemetry.Phase("codegen", file)
//	defer done()
func Phase(phase, file string) func() {
	entry := Logger.WithFields(logrus.Fields{"phase": phase, "file": file})
	entry.Debug("phase started")
	start := time.Now()
	return func() {
		entry.WithField("duration", time.Since(start)).Debug("phase finished")
	}
}
