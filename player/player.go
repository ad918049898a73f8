// Package player defines a unified abstraction layer for media playback engines.
package player

// Player encapsulates the required capabilities of a media playback backend.
// The Controller drives exactly one Player per mounted lecture.
type Player interface {
	// Start launches the backend with the given source and window title.
	Start(source Source, title string) error

	// Load replaces the active media with a new source in the running
	// backend, tearing down and rebuilding any rendition negotiation state.
	Load(source Source) error

	// Seek transitions playback to an absolute timestamp in seconds.
	Seek(seconds float64) error

	// Pause suspends playback; Resume lifts the suspension.
	Pause() error
	Resume() error

	// TogglePause inverts the current suspension state.
	TogglePause() error

	// GetTimePos retrieves the current absolute playback position in seconds.
	GetTimePos() (float64, error)

	// GetDuration retrieves the total length of the active media in seconds.
	GetDuration() (float64, error)

	// Observe subscribes to backend property-change events. The callback
	// receives (property, data) pairs until the backend is closed.
	Observe(callback EventCallback) error

	// IsRunning validates the liveness of the underlying playback process.
	IsRunning() bool

	// Wait returns a channel that is closed when the backend terminates.
	Wait() <-chan struct{}

	// Close terminates the playback engine and releases all associated
	// system resources. Closing an already-closed player is a no-op.
	Close() error
}
