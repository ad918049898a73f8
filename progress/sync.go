// Package progress batches playback reports into durable writes.
package progress

import (
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/key"
	"github.com/lectio-cli/lectio/log"
)

// Writer persists one progress update and reports any completion side effects
// the persistence produced.
type Writer interface {
	SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error)
}

// Callbacks is the synchronizer's outbound surface.
type Callbacks struct {
	// OnCompletion fires when a persisted write carried completion side
	// effects (lecture completed, course completed, certificate issued).
	OnCompletion func(update api.ProgressUpdate, signal api.CompletionSignal)

	// OnDegraded fires once per degradation episode, after the failure
	// threshold is crossed. Writes keep being attempted afterwards.
	OnDegraded func(consecutiveFailures int)

	// OnRecovered fires when a write succeeds after OnDegraded fired.
	OnRecovered func()
}

// Synchronizer coalesces a stream of progress reports into debounced writes.
// It holds at most one pending update: a newer report replaces an unsent
// older one, never queues behind it.
type Synchronizer struct {
	writer Writer
	cb     Callbacks

	mu      sync.Mutex
	pending mo.Option[api.ProgressUpdate]

	debounce      *time.Timer
	debounceDelay time.Duration
	flushEvery    time.Duration

	failureThreshold int
	failures         int
	degraded         bool

	// completedSeen makes completion monotonic per lecture: once a report
	// said done, later partial reports must not regress it.
	completedSeen map[string]bool

	nextSeq     uint64
	lastApplied uint64
	lastWrite   time.Time
	writing     bool

	// live supplies a snapshot of the active playback for the periodic
	// floor, so long uninterrupted sessions still persist.
	live func() (api.ProgressUpdate, bool)

	// spill, when set, receives every failed write for durable local
	// queueing so a later session can replay it.
	spill func(api.ProgressUpdate)

	done   chan struct{}
	closed bool
}

// New builds a synchronizer around the given writer. Timing and thresholds
// come from configuration; call Start to arm the periodic floor.
func New(writer Writer, cb Callbacks) *Synchronizer {
	return &Synchronizer{
		writer:           writer,
		cb:               cb,
		debounceDelay:    time.Duration(viper.GetInt(key.SyncDebounce)) * time.Second,
		flushEvery:       time.Duration(viper.GetInt(key.SyncFlushInterval)) * time.Second,
		failureThreshold: viper.GetInt(key.SyncFailureThreshold),
		completedSeen:    make(map[string]bool),
		done:             make(chan struct{}),
	}
}

// SetTiming overrides the debounce delay and periodic floor interval.
// Must be called before Start.
func (s *Synchronizer) SetTiming(debounce, flushEvery time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounceDelay = debounce
	s.flushEvery = flushEvery
}

// SetFailureThreshold overrides the consecutive-failure count that triggers
// the degradation notice.
func (s *Synchronizer) SetFailureThreshold(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.failureThreshold = n
	}
}

// SetLive installs the snapshot supplier used by the periodic floor. The
// supplier returns ok=false when nothing is actively playing.
func (s *Synchronizer) SetLive(live func() (api.ProgressUpdate, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
}

// SetSpill installs the sink for failed writes.
func (s *Synchronizer) SetSpill(spill func(api.ProgressUpdate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spill = spill
}

// Start arms the periodic floor: while playback is active, at least one write
// lands per interval even if the debounce never settles.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	every := s.flushEvery
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.periodicFlush()
			}
		}
	}()
}

// Queue replaces the pending update and rearms the debounce timer. Reports
// arriving faster than the delay collapse into the newest one.
func (s *Synchronizer) Queue(update api.ProgressUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.stamp(&update)
	s.pending = mo.Some(update)

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.debounceDelay, s.flush)
}

// FlushNow bypasses the debounce and writes the pending update immediately.
// Pause and end-of-media go through here so an abandoned session is current.
func (s *Synchronizer) FlushNow(update api.ProgressUpdate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.stamp(&update)
	s.pending = mo.Some(update)

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	s.flush()
}

// Close stops the periodic floor and writes anything still pending. The drain
// goes through flush so it never overlaps a write already in flight.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.mu.Unlock()

	s.flush()
}

// Degraded reports whether the synchronizer is currently in a degradation
// episode (threshold crossed, no success since).
func (s *Synchronizer) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// MarkCompleted records an authoritative completion persisted outside the
// debounce path. Every later report for the lecture carries completed=true,
// and a report already waiting in the pending slot is coerced in place so the
// next flush cannot regress the flag.
func (s *Synchronizer) MarkCompleted(lectureID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completedSeen[lectureID] = true

	if update, ok := s.pending.Get(); ok && update.LectureID == lectureID {
		update.IsCompleted = true
		s.pending = mo.Some(update)
	}
}

// stamp assigns the logical write order and applies completion monotonicity.
// Caller holds the mutex.
func (s *Synchronizer) stamp(update *api.ProgressUpdate) {
	s.nextSeq++
	update.Seq = s.nextSeq

	if s.completedSeen[update.LectureID] {
		update.IsCompleted = true
	}
	if update.IsCompleted {
		s.completedSeen[update.LectureID] = true
	}
}

// periodicFlush is the floor tick: flush whatever is pending, or snapshot the
// live playback when the debounce has been quiet for a full interval.
func (s *Synchronizer) periodicFlush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.pending.IsPresent() {
		if s.debounce != nil {
			s.debounce.Stop()
			s.debounce = nil
		}
		s.mu.Unlock()
		s.flush()
		return
	}

	live := s.live
	stale := time.Since(s.lastWrite) >= s.flushEvery
	s.mu.Unlock()

	if live == nil || !stale {
		return
	}

	if update, ok := live(); ok {
		s.FlushNow(update)
	}
}

// flush takes the pending slot and writes it. At most one write is in flight;
// an update arriving mid-write is picked up when the write returns.
func (s *Synchronizer) flush() {
	s.mu.Lock()
	if s.writing {
		s.mu.Unlock()
		return
	}

	update, ok := s.pending.Get()
	if !ok {
		s.mu.Unlock()
		return
	}

	s.pending = mo.None[api.ProgressUpdate]()
	s.writing = true
	s.mu.Unlock()

	s.write(update)

	s.mu.Lock()
	s.writing = false
	// A failed write restores its own payload under the same sequence; only
	// an update that arrived during the write warrants another pass. The next
	// scheduled flush is the retry for a failure.
	next, ok := s.pending.Get()
	again := ok && next.Seq > update.Seq
	s.mu.Unlock()

	if again {
		s.flush()
	}
}

// write performs one persistence attempt and runs the failure accounting.
func (s *Synchronizer) write(update api.ProgressUpdate) {
	signal, err := s.writer.SaveProgress(update)

	s.mu.Lock()
	if err != nil {
		s.failures++
		log.Warnf("progress write failed (%d consecutive): %v", s.failures, err)

		crossed := s.failures >= s.failureThreshold
		if crossed {
			s.degraded = true
			// Rearm so another full run of failures produces another notice.
			s.failures = 0
		}

		// Keep the failed payload unless something newer superseded it.
		if s.pending.IsAbsent() && update.Seq > s.lastApplied {
			s.pending = mo.Some(update)
		}

		cb := s.cb.OnDegraded
		threshold := s.failureThreshold
		spill := s.spill
		s.mu.Unlock()

		if spill != nil {
			spill(update)
		}
		if crossed && cb != nil {
			cb(threshold)
		}
		return
	}

	s.failures = 0
	s.lastWrite = time.Now()

	// Last write wins: a stale response must not clobber a newer applied one.
	stale := update.Seq < s.lastApplied
	if !stale {
		s.lastApplied = update.Seq
	}

	recovered := s.degraded
	s.degraded = false

	onRecovered := s.cb.OnRecovered
	onCompletion := s.cb.OnCompletion
	s.mu.Unlock()

	if recovered && onRecovered != nil {
		onRecovered()
	}

	if !stale && onCompletion != nil && (signal.IsCompleted || signal.CourseCompleted) {
		onCompletion(update, signal)
	}
}
