package player

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lectio-cli/lectio/log"
	"github.com/lectio-cli/lectio/util"
)

// defaultReportInterval is the playback time (not wall-clock) between
// periodic progress reports. Paused time does not advance it.
const defaultReportInterval = 5.0

// ErrorCategory classifies a terminal media failure for user-facing display.
type ErrorCategory string

const (
	ErrorNetwork     ErrorCategory = "network"
	ErrorDecode      ErrorCategory = "decode"
	ErrorUnsupported ErrorCategory = "unsupported"
	ErrorAborted     ErrorCategory = "aborted"
)

// MediaError is a terminal playback failure. The controller never retries;
// re-mounting with the same URL is the caller's decision.
type MediaError struct {
	Category ErrorCategory
	Reason   string
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s error: %s", e.Category, e.Reason)
}

// Callbacks is the controller's outbound event surface.
type Callbacks struct {
	// OnProgress fires every ~5s of elapsed playback time, once on pause,
	// and at natural end (with currentTime == duration).
	OnProgress func(currentTime, duration float64)

	// OnPause fires when playback is suspended, before the flushed report.
	OnPause func(currentTime, duration float64)

	// OnEnded fires exactly once per playback reaching its natural end.
	OnEnded func(duration float64)

	// OnError fires once when the mount enters a terminal media error state.
	OnError func(err *MediaError)
}

// Controller wraps exactly one media backend per mounted lecture. It
// normalizes progressive and adaptive sources behind one event surface,
// applies the resume position only after metadata is known, and owns the
// report cadence.
type Controller struct {
	backend Player
	cb      Callbacks

	mu sync.Mutex

	source Source

	duration      float64
	lastTime      float64
	lastReportAt  float64
	reportEvery   float64
	resumeApplied bool
	resumeTarget  float64

	paused     bool
	ended      bool
	errored    bool
	hidden     bool
	wasPlaying bool // playing state captured when the window was hidden

	disposed    bool
	disposeOnce sync.Once
}

// NewController constructs a controller for one source and start position.
// The backend is not started until Play.
func NewController(backend Player, source Source, startPosition float64, cb Callbacks) *Controller {
	return &Controller{
		backend:      backend,
		cb:           cb,
		source:       source,
		resumeTarget: startPosition,
		reportEvery:  defaultReportInterval,
	}
}

// SetReportInterval overrides the playback-time report cadence in seconds.
func (c *Controller) SetReportInterval(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds > 0 {
		c.reportEvery = seconds
	}
}

// Play starts the backend and subscribes to its events. The resume seek is
// deferred until the duration property arrives: seeking before metadata is
// loaded is undefined behavior on most media backends.
func (c *Controller) Play(title string) error {
	if err := c.backend.Start(c.source, title); err != nil {
		return err
	}
	return c.backend.Observe(c.HandleEvent)
}

// Load switches the controller to a new source in the running backend.
// Rendition negotiation state is rebuilt, but the resume position is whatever
// was last reported - not the construction-time start - so a lecture switch
// never snaps backward.
func (c *Controller) Load(source Source) error {
	c.mu.Lock()
	c.source = source
	c.resumeTarget = c.lastTime
	c.resumeApplied = false
	c.duration = 0
	c.lastReportAt = 0
	c.ended = false
	c.errored = false
	c.mu.Unlock()

	return c.backend.Load(source)
}

// Position returns the last observed playback position and duration.
func (c *Controller) Position() (currentTime, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTime, c.duration
}

// Playing reports whether the backend is actively advancing.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.paused && !c.ended && !c.errored
}

// TogglePause forwards a pause toggle to the backend.
func (c *Controller) TogglePause() error {
	return c.backend.TogglePause()
}

// Wait exposes the backend's termination channel.
func (c *Controller) Wait() <-chan struct{} {
	return c.backend.Wait()
}

// Dispose releases the backend exactly once. Later calls are no-ops, and any
// event arriving after disposal is discarded.
func (c *Controller) Dispose() {
	c.disposeOnce.Do(func() {
		c.mu.Lock()
		c.disposed = true
		c.mu.Unlock()

		if err := c.backend.Close(); err != nil {
			log.Warnf("backend close: %v", err)
		}
	})
}

// HandleEvent consumes one backend event. It is the single entry point for
// the event listener goroutine; all controller state transitions happen here.
func (c *Controller) HandleEvent(property string, data interface{}) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}

	switch property {
	case "duration":
		c.handleDuration(data)
	case "time-pos":
		c.handleTimePos(data)
	case "pause":
		c.handlePause(data)
	case "eof-reached":
		if reached, ok := data.(bool); ok && reached {
			c.handleEnded()
			return // handleEnded unlocks
		}
	case "window-minimized":
		c.handleVisibility(data)
	case "end-file":
		c.handleEndFile(data)
		return // handleEndFile unlocks
	}

	c.mu.Unlock()
}

// handleDuration records media duration and applies the deferred resume seek.
func (c *Controller) handleDuration(data interface{}) {
	dur, ok := data.(float64)
	if !ok || dur <= 0 {
		return
	}

	c.duration = dur

	if c.resumeApplied {
		return
	}
	c.resumeApplied = true

	target := resolveStartPosition(c.resumeTarget, dur)
	if target > 0 {
		if err := c.backend.Seek(target); err != nil {
			log.Warnf("resume seek to %.1fs: %v", target, err)
			return
		}
		c.lastTime = target
		c.lastReportAt = target
	}
}

// handleTimePos tracks position and drives the playback-time report cadence.
func (c *Controller) handleTimePos(data interface{}) {
	pos, ok := data.(float64)
	if !ok {
		return
	}

	c.lastTime = pos

	// A backward jump is a seek; restart the cadence from there.
	if pos < c.lastReportAt {
		c.lastReportAt = pos
		return
	}

	if c.resumeApplied && pos-c.lastReportAt >= c.reportEvery {
		c.lastReportAt = pos
		c.emitProgress(pos, c.duration)
	}
}

// handlePause flushes one report on every transition into the paused state,
// so an abandoned session is not lost.
func (c *Controller) handlePause(data interface{}) {
	paused, ok := data.(bool)
	if !ok {
		return
	}

	wasPaused := c.paused
	c.paused = paused

	if paused && !wasPaused && !c.ended {
		pos, dur := c.lastTime, c.duration
		if c.cb.OnPause != nil {
			cb := c.cb.OnPause
			c.mu.Unlock()
			cb(pos, dur)
			c.mu.Lock()
		}
	}
}

// handleEnded fires the natural-end sequence exactly once, even when the
// backend delivers the end event through more than one channel.
// Called with the mutex held; unlocks before invoking callbacks.
func (c *Controller) handleEnded() {
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true

	dur := c.duration
	if dur <= 0 {
		dur = c.lastTime
	}
	c.lastTime = dur

	onProgress, onEnded := c.cb.OnProgress, c.cb.OnEnded
	c.mu.Unlock()

	if onProgress != nil {
		onProgress(dur, dur)
	}
	if onEnded != nil {
		onEnded(dur)
	}
}

// handleVisibility pauses tracking while the window is hidden and restores
// the previous playing state when it comes back.
func (c *Controller) handleVisibility(data interface{}) {
	minimized, ok := data.(bool)
	if !ok || minimized == c.hidden {
		return
	}
	c.hidden = minimized

	if minimized {
		c.wasPlaying = !c.paused && !c.ended
		if c.wasPlaying {
			// Flush one report, then stop; backgrounded playback must not
			// silently keep accruing progress.
			c.emitProgress(c.lastTime, c.duration)
			if err := c.backend.Pause(); err != nil {
				log.Warnf("pause on hide: %v", err)
			}
		}
		return
	}

	// Restored: resume only if it was playing before hiding. A deliberate
	// pause must not turn into a surprising auto-resume.
	if c.wasPlaying {
		if err := c.backend.Resume(); err != nil {
			log.Warnf("resume on restore: %v", err)
		}
	}
	c.wasPlaying = false
}

// handleEndFile inspects the end-file reason: eof is a natural end, error is
// a terminal media failure, quit/stop belong to the disposal path.
// Called with the mutex held; unlocks before invoking callbacks.
func (c *Controller) handleEndFile(data interface{}) {
	event, ok := data.(map[string]interface{})
	if !ok {
		c.mu.Unlock()
		return
	}

	reason, _ := event["reason"].(string)
	switch reason {
	case "eof":
		c.handleEnded()
	case "error":
		if c.errored {
			c.mu.Unlock()
			return
		}
		c.errored = true

		fileError, _ := event["file_error"].(string)
		mediaErr := &MediaError{
			Category: classifyMediaFailure(fileError),
			Reason:   fileError,
		}

		onError := c.cb.OnError
		c.mu.Unlock()

		log.Errorf("playback failed: %v", mediaErr)
		if onError != nil {
			onError(mediaErr)
		}
	default:
		c.mu.Unlock()
	}
}

// emitProgress invokes OnProgress outside the lock. Caller holds the mutex.
func (c *Controller) emitProgress(pos, dur float64) {
	if c.cb.OnProgress == nil {
		return
	}
	cb := c.cb.OnProgress
	c.mu.Unlock()
	cb(pos, dur)
	c.mu.Lock()
}

// resolveStartPosition clamps a requested resume position against the known
// duration. Anything non-finite, negative or past the end starts from 0.
func resolveStartPosition(start, duration float64) float64 {
	if !util.IsFinite(start) || start < 0 || start >= duration {
		return 0
	}
	return start
}

// classifyMediaFailure maps an mpv file error string onto the user-facing
// error taxonomy.
func classifyMediaFailure(reason string) ErrorCategory {
	r := strings.ToLower(reason)

	switch {
	case strings.Contains(r, "unrecognized") || strings.Contains(r, "unsupported") || strings.Contains(r, "no decoder"):
		return ErrorUnsupported
	case strings.Contains(r, "decod") || strings.Contains(r, "corrupt") || strings.Contains(r, "invalid data"):
		return ErrorDecode
	case strings.Contains(r, "abort") || strings.Contains(r, "interrupt") || strings.Contains(r, "cancel"):
		return ErrorAborted
	default:
		// Remote media most commonly fails at the transport.
		return ErrorNetwork
	}
}
