// Package sink renders audio out of process and reports progress back to
// the playback coordinator.
package sink

import (
	"context"
	"errors"
)

// ErrNothingLoaded is returned by Resume when no track was ever loaded.
var ErrNothingLoaded = errors.New("sink: nothing loaded")

// Status is a point-in-time view of the renderer.
type Status struct {
	Position float64 // seconds
	Duration float64 // seconds, 0 when unknown
	EOF      bool    // the loaded track played to its end
}

// Backend is an audio renderer.
type Backend interface {
	// Start brings the renderer up if it is not running. It reports true
	// when a new renderer instance was started.
	Start(ctx context.Context) (bool, error)
	// Load replaces the current track with url.
	Load(url string) error
	SetPaused(paused bool) error
	// Seek moves to an absolute position in seconds.
	Seek(seconds float64) error
	// SetVolume sets the output volume in percent (0..100).
	SetVolume(percent float64) error
	Status() (Status, error)
	Close() error
}

// Reporter receives progress and end-of-track notifications.
type Reporter interface {
	ReportProgress(currentTime, duration float64)
	ReportEnded()
}
