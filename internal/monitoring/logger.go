// Package monitoring holds the diagnostic logger that sim and feed report
// through, and the rotating log file behind tracksim -log-file.
package monitoring

import "log"

// Logf receives grid builds, custom track replacements and sink failures.
// It writes through log.Printf unless SetLogger swaps it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger routes Logf to f. A nil f discards everything.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Mute silences Logf and returns a func restoring the previous logger.
func Mute() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}
