package watch

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/nav"
	"github.com/lectio-cli/lectio/player"
	"github.com/lectio-cli/lectio/progress"
	"github.com/lectio-cli/lectio/session"
)

func init() {
	filesystem.SetMemMapFs()
}

func twoSectionCourse() *content.Course {
	course := &content.Course{
		CourseID:     "crs-1",
		EnrollmentID: "enr-1",
		Title:        "Streaming Fundamentals",
		Sections: []*content.Section{
			{
				SectionID: "sec-1",
				Title:     "Basics",
				Lectures: []*content.Lecture{
					{LectureID: "lec-1", Title: "Welcome", DurationMinutes: 5},
					{LectureID: "lec-2", Title: "Manifests", DurationMinutes: 10},
				},
			},
			{
				SectionID: "sec-2",
				Title:     "Advanced",
				Lectures: []*content.Lecture{
					{LectureID: "lec-3", Title: "ABR", DurationMinutes: 12},
				},
			},
		},
	}
	return course.Link()
}

// fakeCompleter records completion writes for the session machine.
type fakeCompleter struct {
	mu       sync.Mutex
	updates  []api.ProgressUpdate
	signal   api.CompletionSignal
	failNext bool
}

func (c *fakeCompleter) SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failNext {
		c.failNext = false
		return api.CompletionSignal{}, errors.New("gateway timeout")
	}

	c.updates = append(c.updates, update)
	return c.signal, nil
}

func (c *fakeCompleter) SubmitReview(courseID string, rating int, comment string) error {
	return nil
}

type stubReviewer struct{}

func (stubReviewer) CollectReview(course *content.Course) (int, string, bool) {
	return 0, "", false
}

type stubCelebrant struct{}

func (stubCelebrant) Congratulate(course *content.Course, signal api.CompletionSignal) {}

// recordingWriter collects the synchronizer's debounced writes.
type recordingWriter struct {
	mu     sync.Mutex
	writes []api.ProgressUpdate
}

func (w *recordingWriter) SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, update)
	return api.CompletionSignal{}, nil
}

func (w *recordingWriter) last() api.ProgressUpdate {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes[len(w.writes)-1]
}

// stubPlayer satisfies the backend interface without a real media process.
type stubPlayer struct {
	exited chan struct{}
}

func newStubPlayer() *stubPlayer {
	return &stubPlayer{exited: make(chan struct{})}
}

func (p *stubPlayer) Start(source player.Source, title string) error { return nil }
func (p *stubPlayer) Load(source player.Source) error                { return nil }
func (p *stubPlayer) Seek(seconds float64) error                     { return nil }
func (p *stubPlayer) Pause() error                                   { return nil }
func (p *stubPlayer) Resume() error                                  { return nil }
func (p *stubPlayer) TogglePause() error                             { return nil }
func (p *stubPlayer) GetTimePos() (float64, error)                   { return 0, nil }
func (p *stubPlayer) GetDuration() (float64, error)                  { return 0, nil }
func (p *stubPlayer) Observe(cb player.EventCallback) error          { return nil }
func (p *stubPlayer) IsRunning() bool                                { return true }
func (p *stubPlayer) Wait() <-chan struct{}                          { return p.exited }
func (p *stubPlayer) Close() error                                   { return nil }

func TestFinishLecture(t *testing.T) {
	Convey("Given a lecture that played to its natural end", t, func() {
		course := twoSectionCourse()
		completer := &fakeCompleter{signal: api.CompletionSignal{IsCompleted: true}}
		w := &watcher{
			course:  course,
			nav:     nav.New(course),
			machine: session.NewMachine(completer, stubReviewer{}, stubCelebrant{}, course),
		}
		w.machine.SetAdvanceDelay(time.Millisecond)

		lecture := course.Sections[0].Lectures[0]

		ctrl := player.NewController(newStubPlayer(), player.Source{}, 0, player.Callbacks{})
		ctrl.HandleEvent("duration", 300.0)
		ctrl.HandleEvent("eof-reached", true)

		writer := &recordingWriter{}
		sync := progress.New(writer, progress.Callbacks{})
		sync.SetTiming(10*time.Millisecond, time.Hour)
		defer sync.Close()

		Convey("The end drives the completion write and the advance", func() {
			next, advanced := w.finishLecture(lecture, ctrl, sync)

			So(advanced, ShouldBeTrue)
			So(next, ShouldEqual, course.Sections[0].Lectures[1])
			So(lecture.IsCompleted, ShouldBeTrue)

			completer.mu.Lock()
			So(len(completer.updates), ShouldEqual, 1)
			So(completer.updates[0].IsCompleted, ShouldBeTrue)
			So(completer.updates[0].LastPositionSeconds, ShouldEqual, 300)
			completer.mu.Unlock()

			So(w.machine.State(), ShouldEqual, session.Advancing)
		})

		Convey("A report queued before the completion cannot undo it", func() {
			sync.Queue(api.ProgressUpdate{
				EnrollmentID:        course.EnrollmentID,
				LectureID:           lecture.LectureID,
				LastPositionSeconds: 100,
			})

			_, advanced := w.finishLecture(lecture, ctrl, sync)
			So(advanced, ShouldBeTrue)

			time.Sleep(50 * time.Millisecond)
			So(writer.last().IsCompleted, ShouldBeTrue)
		})

		Convey("A failed completion write stays on the lecture", func() {
			completer.failNext = true

			next, advanced := w.finishLecture(lecture, ctrl, sync)
			So(advanced, ShouldBeFalse)
			So(next, ShouldBeNil)
			So(lecture.IsCompleted, ShouldBeFalse)
		})

		Convey("The final lecture completes but does not advance", func() {
			last := course.Sections[1].Lectures[0]

			next, advanced := w.finishLecture(last, ctrl, sync)
			So(advanced, ShouldBeFalse)
			So(next, ShouldBeNil)
			So(last.IsCompleted, ShouldBeTrue)
		})
	})
}
