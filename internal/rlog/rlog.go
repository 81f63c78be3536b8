// Package rlog is the resolution engine's own logging, grounded on the
// teacher's DefaultErrorLogger (internal/core/coordination_errors.go):
// leveled *log.Logger instances writing to stderr with timestamps. The
// engine only ever warns — resolution is on the hot path and has nothing
// worth logging at info level there.
package rlog

import (
	"log"
	"os"
)

var warnLogger = log.New(os.Stderr, "[GORESOLVE-WARN] ", log.LstdFlags|log.Lmicroseconds)

// Warnf logs a warn-level message. Used for conditions the engine
// recovers from on its own but a caller may want visibility into:
// recursion-limit hits, a cleared cache, an unparseable PnP manifest.
func Warnf(format string, args ...interface{}) {
	warnLogger.Printf(format, args...)
}
