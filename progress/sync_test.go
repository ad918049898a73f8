package progress

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lectio-cli/lectio/api"
)

// scriptedWriter records writes and fails the first failN attempts.
type scriptedWriter struct {
	mu       sync.Mutex
	writes   []api.ProgressUpdate
	attempts int
	failN    int
	signal   api.CompletionSignal
}

func (w *scriptedWriter) SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.attempts++
	if w.failN > 0 {
		w.failN--
		return api.CompletionSignal{}, errors.New("gateway timeout")
	}

	w.writes = append(w.writes, update)
	return w.signal, nil
}

func (w *scriptedWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

func (w *scriptedWriter) attemptCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

// blockingWriter parks every save until release is closed.
type blockingWriter struct {
	scriptedWriter
	entered chan struct{}
	release chan struct{}
}

func (w *blockingWriter) SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error) {
	w.entered <- struct{}{}
	<-w.release
	return w.scriptedWriter.SaveProgress(update)
}

func (w *scriptedWriter) last() api.ProgressUpdate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes[len(w.writes)-1]
}

func newTestSync(w Writer, cb Callbacks) *Synchronizer {
	s := New(w, cb)
	s.SetTiming(20*time.Millisecond, time.Hour)
	s.SetFailureThreshold(3)
	return s
}

func update(lectureID string, pos float64, completed bool) api.ProgressUpdate {
	return api.ProgressUpdate{
		EnrollmentID:        "enr-1",
		LectureID:           lectureID,
		IsCompleted:         completed,
		WatchTimeSeconds:    pos,
		LastPositionSeconds: pos,
	}
}

func TestSynchronizerDebounce(t *testing.T) {
	Convey("Given a synchronizer with a short debounce", t, func() {
		writer := &scriptedWriter{}
		s := newTestSync(writer, Callbacks{})
		defer s.Close()

		Convey("A burst of reports collapses into one write of the newest", func() {
			for i := 1; i <= 5; i++ {
				s.Queue(update("lec-1", float64(i*10), false))
			}

			time.Sleep(80 * time.Millisecond)

			So(writer.count(), ShouldEqual, 1)
			So(writer.last().LastPositionSeconds, ShouldEqual, 50)
		})

		Convey("Nothing is written before the quiet period elapses", func() {
			s.Queue(update("lec-1", 10, false))
			So(writer.count(), ShouldEqual, 0)

			time.Sleep(80 * time.Millisecond)
			So(writer.count(), ShouldEqual, 1)
		})

		Convey("A report during an in-flight write is not lost", func() {
			s.Queue(update("lec-1", 10, false))
			time.Sleep(80 * time.Millisecond)
			s.Queue(update("lec-1", 20, false))
			time.Sleep(80 * time.Millisecond)

			So(writer.count(), ShouldEqual, 2)
			So(writer.last().LastPositionSeconds, ShouldEqual, 20)
		})
	})
}

func TestSynchronizerFlushNow(t *testing.T) {
	Convey("Given a synchronizer holding a debounced update", t, func() {
		writer := &scriptedWriter{}
		s := newTestSync(writer, Callbacks{})
		defer s.Close()

		s.Queue(update("lec-1", 30, false))

		Convey("FlushNow writes immediately without waiting", func() {
			s.FlushNow(update("lec-1", 42, false))

			So(writer.count(), ShouldEqual, 1)
			So(writer.last().LastPositionSeconds, ShouldEqual, 42)

			Convey("And the stale debounce does not fire a duplicate", func() {
				time.Sleep(80 * time.Millisecond)
				So(writer.count(), ShouldEqual, 1)
			})
		})
	})
}

func TestSynchronizerPeriodicFloor(t *testing.T) {
	Convey("Given an active playback with no settling debounce", t, func() {
		writer := &scriptedWriter{}
		s := New(writer, Callbacks{})
		s.SetTiming(time.Hour, 25*time.Millisecond)
		s.SetLive(func() (api.ProgressUpdate, bool) {
			return update("lec-1", 77, false), true
		})
		s.Start()
		defer s.Close()

		Convey("Writes still land at the floor interval", func() {
			time.Sleep(90 * time.Millisecond)

			So(writer.count(), ShouldBeGreaterThanOrEqualTo, 2)
			So(writer.last().LastPositionSeconds, ShouldEqual, 77)
		})
	})

	Convey("Given an idle session", t, func() {
		writer := &scriptedWriter{}
		s := New(writer, Callbacks{})
		s.SetTiming(time.Hour, 25*time.Millisecond)
		s.SetLive(func() (api.ProgressUpdate, bool) {
			return api.ProgressUpdate{}, false
		})
		s.Start()
		defer s.Close()

		Convey("The floor writes nothing", func() {
			time.Sleep(90 * time.Millisecond)
			So(writer.count(), ShouldEqual, 0)
		})
	})
}

func TestSynchronizerDegradation(t *testing.T) {
	Convey("Given a writer that keeps failing", t, func() {
		writer := &scriptedWriter{failN: 3}

		var mu sync.Mutex
		var degraded, recovered int
		s := newTestSync(writer, Callbacks{
			OnDegraded: func(n int) {
				mu.Lock()
				defer mu.Unlock()
				degraded++
			},
			OnRecovered: func() {
				mu.Lock()
				defer mu.Unlock()
				recovered++
			},
		})
		defer s.Close()

		Convey("The notice fires once after three consecutive failures", func() {
			for i := 0; i < 3; i++ {
				s.FlushNow(update("lec-1", float64(i), false))
			}

			mu.Lock()
			So(degraded, ShouldEqual, 1)
			mu.Unlock()
			So(s.Degraded(), ShouldBeTrue)

			Convey("A later success recovers and clears the episode", func() {
				s.FlushNow(update("lec-1", 99, false))

				mu.Lock()
				So(recovered, ShouldEqual, 1)
				mu.Unlock()
				So(s.Degraded(), ShouldBeFalse)
				So(writer.count(), ShouldEqual, 1)
			})
		})

		Convey("The counter rearms for another full run of failures", func() {
			for i := 0; i < 3; i++ {
				s.FlushNow(update("lec-1", float64(i), false))
			}
			writer.mu.Lock()
			writer.failN = 3
			writer.mu.Unlock()
			for i := 0; i < 3; i++ {
				s.FlushNow(update("lec-1", float64(i), false))
			}

			mu.Lock()
			So(degraded, ShouldEqual, 2)
			mu.Unlock()
		})
	})
}

func TestSynchronizerNoAutoRetry(t *testing.T) {
	Convey("Given a writer that is down", t, func() {
		writer := &scriptedWriter{failN: 1000}
		s := newTestSync(writer, Callbacks{})
		defer s.Close()

		Convey("A failed flush attempts the write exactly once", func() {
			s.FlushNow(update("lec-1", 10, false))
			So(writer.attemptCount(), ShouldEqual, 1)

			Convey("And the kept payload goes out with the next scheduled flush", func() {
				writer.mu.Lock()
				writer.failN = 0
				writer.mu.Unlock()

				s.FlushNow(update("lec-1", 20, false))
				So(writer.attemptCount(), ShouldEqual, 2)
				So(writer.last().LastPositionSeconds, ShouldEqual, 20)
			})
		})
	})
}

func TestSynchronizerMarkCompleted(t *testing.T) {
	Convey("Given a partial report waiting in the debounce", t, func() {
		writer := &scriptedWriter{}
		s := newTestSync(writer, Callbacks{})
		defer s.Close()

		s.Queue(update("lec-1", 100, false))

		Convey("An authoritative completion coerces the pending report", func() {
			s.MarkCompleted("lec-1")
			time.Sleep(80 * time.Millisecond)

			So(writer.count(), ShouldEqual, 1)
			So(writer.last().IsCompleted, ShouldBeTrue)
			So(writer.last().LastPositionSeconds, ShouldEqual, 100)
		})

		Convey("Every later report for the lecture stays completed", func() {
			s.MarkCompleted("lec-1")
			s.FlushNow(update("lec-1", 130, false))
			So(writer.last().IsCompleted, ShouldBeTrue)
		})

		Convey("Other lectures are unaffected", func() {
			s.MarkCompleted("lec-1")
			s.FlushNow(update("lec-2", 5, false))
			So(writer.last().IsCompleted, ShouldBeFalse)
		})
	})
}

func TestSynchronizerCloseDuringWrite(t *testing.T) {
	Convey("Given a write in flight when Close arrives", t, func() {
		writer := &blockingWriter{
			entered: make(chan struct{}, 1),
			release: make(chan struct{}),
		}
		s := newTestSync(writer, Callbacks{})

		go s.FlushNow(update("lec-1", 10, false))
		<-writer.entered

		s.Queue(update("lec-1", 20, false))
		s.Close()

		Convey("Close does not start an overlapping write", func() {
			So(writer.count(), ShouldEqual, 0)

			close(writer.release)
			time.Sleep(50 * time.Millisecond)

			So(writer.count(), ShouldEqual, 2)
			So(writer.last().LastPositionSeconds, ShouldEqual, 20)
		})
	})
}

func TestSynchronizerMonotonicCompletion(t *testing.T) {
	Convey("Given a lecture already reported as completed", t, func() {
		writer := &scriptedWriter{}
		s := newTestSync(writer, Callbacks{})
		defer s.Close()

		s.FlushNow(update("lec-1", 300, true))

		Convey("A later partial report cannot regress completion", func() {
			s.FlushNow(update("lec-1", 50, false))

			So(writer.count(), ShouldEqual, 2)
			So(writer.last().IsCompleted, ShouldBeTrue)
			So(writer.last().LastPositionSeconds, ShouldEqual, 50)
		})

		Convey("Other lectures are unaffected", func() {
			s.FlushNow(update("lec-2", 10, false))
			So(writer.last().IsCompleted, ShouldBeFalse)
		})
	})
}

func TestSynchronizerCompletionSignal(t *testing.T) {
	Convey("Given a writer whose persistence completes the course", t, func() {
		writer := &scriptedWriter{signal: api.CompletionSignal{
			IsCompleted:          true,
			CourseCompleted:      true,
			CertificateGenerated: true,
			CertificateURL:       "https://marketplace.example.com/certs/abc",
		}}

		var mu sync.Mutex
		var signals []api.CompletionSignal
		s := newTestSync(writer, Callbacks{
			OnCompletion: func(u api.ProgressUpdate, sig api.CompletionSignal) {
				mu.Lock()
				defer mu.Unlock()
				signals = append(signals, sig)
			},
		})
		defer s.Close()

		Convey("The completion side effects reach the callback", func() {
			s.FlushNow(update("lec-1", 300, true))

			mu.Lock()
			defer mu.Unlock()
			So(len(signals), ShouldEqual, 1)
			So(signals[0].CourseCompleted, ShouldBeTrue)
			So(signals[0].CertificateURL, ShouldNotBeEmpty)
		})
	})
}

func TestSynchronizerClose(t *testing.T) {
	Convey("Given a synchronizer with an update still pending", t, func() {
		writer := &scriptedWriter{}
		s := newTestSync(writer, Callbacks{})

		s.Queue(update("lec-1", 64, false))

		Convey("Close writes it out before shutting down", func() {
			s.Close()

			So(writer.count(), ShouldEqual, 1)
			So(writer.last().LastPositionSeconds, ShouldEqual, 64)
		})

		Convey("Reports after Close are dropped", func() {
			s.Close()
			s.Queue(update("lec-1", 99, false))
			s.FlushNow(update("lec-1", 99, false))
			time.Sleep(50 * time.Millisecond)

			So(writer.count(), ShouldEqual, 1)
		})
	})
}
