// Package monitoring provides the diagnostic log streams shared by the
// alignment tooling.
//
// There are three streams:
//   - ops: lifecycle events and actionable warnings
//   - diag: per-pipeline counts and tuning context
//   - trace: per-node movement telemetry (very chatty)
//
// A stream configured with a nil writer is muted.
package monitoring

import (
	"io"
	"log"
	"os"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

const logPrefix = "[muonalign] "

var (
	mu          sync.RWMutex
	opsLogger   = newLogger(os.Stderr)
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger(w.Ops)
	diagLogger = newLogger(w.Diag)
	traceLogger = newLogger(w.Trace)
}

// newLogger creates a *log.Logger for a given writer, or returns nil if w is nil.
func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, logPrefix, log.LstdFlags|log.Lmicroseconds)
}

func logTo(l **log.Logger, format string, args []interface{}) {
	mu.RLock()
	logger := *l
	mu.RUnlock()
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	logTo(&opsLogger, format, args)
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	logTo(&diagLogger, format, args)
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	logTo(&traceLogger, format, args)
}
