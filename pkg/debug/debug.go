// Package debug provides global debug logging flags
package debug

import "fmt"

// Enabled controls whether debug logging is active
var Enabled bool

// Tracking controls whether verbose per-tick tracking logs are shown (filter,
// body policy, search phases). Use --debug-tracking to enable these very
// verbose logs
var Tracking bool

// Detect controls whether per-frame detector diagnostics are printed
// (thresholds, contour counts, reject reasons)
var Detect bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Println(msg)
	}
}

// TrackLog prints a message only if tracking debug mode is enabled
func TrackLog(format string, args ...interface{}) {
	if Tracking {
		fmt.Printf(format, args...)
	}
}

// DetectLog prints a message only if detector debug mode is enabled
func DetectLog(format string, args ...interface{}) {
	if Detect {
		fmt.Printf(format, args...)
	}
}
