// Package report provides the progress logger the reformat pipeline threads
// through its stages. Callers pass it explicitly; there is no global logger.
// No-op when the writer is nil.
package report

import (
	"fmt"
	"io"
)

// Logger writes progress and warning lines. When the underlying writer is
// nil, all methods no-op.
type Logger struct {
	w io.Writer
}

// New returns a Logger that writes to w. If w is nil, all methods no-op.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Enabled returns true if the logger has a non-nil writer.
func (l *Logger) Enabled() bool {
	return l != nil && l.w != nil
}

// Infof writes one progress line. Format and args are as in fmt.Printf;
// a trailing newline is appended.
func (l *Logger) Infof(format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}

// Warnf writes one warning line, prefixed with "warning: ".
func (l *Logger) Warnf(format string, args ...interface{}) {
	if !l.Enabled() {
		return
	}
	fmt.Fprintf(l.w, "warning: "+format+"\n", args...)
}
