package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/content"
)

// fakeCompleter scripts the marketplace side of the workflow.
type fakeCompleter struct {
	mu       sync.Mutex
	writes   []api.ProgressUpdate
	reviews  []int
	signals  []api.CompletionSignal // consumed in order; last one repeats
	failNext bool
	block    chan struct{} // when set, SaveProgress waits on it
}

func (f *fakeCompleter) SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error) {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext {
		f.failNext = false
		return api.CompletionSignal{}, errors.New("bad gateway")
	}

	f.writes = append(f.writes, update)

	if len(f.signals) == 0 {
		return api.CompletionSignal{IsCompleted: true}, nil
	}
	signal := f.signals[0]
	if len(f.signals) > 1 {
		f.signals = f.signals[1:]
	}
	return signal, nil
}

func (f *fakeCompleter) SubmitReview(courseID string, rating int, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, rating)
	return nil
}

// memCeremonies is an in-memory CeremonyStore shared across machines to model
// the durable flag surviving a reload.
type memCeremonies struct {
	mu    sync.Mutex
	flags map[string]bool
}

func newMemCeremonies() *memCeremonies {
	return &memCeremonies{flags: make(map[string]bool)}
}

func (c *memCeremonies) Shown(accountID, courseID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[accountID+":"+courseID], nil
}

func (c *memCeremonies) Mark(accountID, courseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags[accountID+":"+courseID] = true
	return nil
}

type scriptedReviewer struct {
	rating  int
	dismiss bool
	asked   int
}

func (r *scriptedReviewer) CollectReview(course *content.Course) (int, string, bool) {
	r.asked++
	if r.dismiss {
		return 0, "", false
	}
	return r.rating, "great course", true
}

type countingCelebrant struct {
	shown int
}

func (c *countingCelebrant) Congratulate(course *content.Course, signal api.CompletionSignal) {
	c.shown++
}

func twoLectureCourse() *content.Course {
	course := &content.Course{
		CourseID:     "crs-1",
		EnrollmentID: "enr-1",
		Title:        "Kernel Bypass Networking",
		Sections: []*content.Section{
			{
				SectionID: "sec-1",
				Title:     "DPDK",
				Lectures: []*content.Lecture{
					{LectureID: "lec-1", Title: "Poll Mode Drivers"},
					{LectureID: "lec-2", Title: "Zero Copy"},
				},
			},
		},
		TotalLectures: 2,
	}
	return course.Link()
}

func newTestMachine(completer Completer, reviewer Reviewer, celebrant Celebrant, course *content.Course, store CeremonyStore) *Machine {
	m := NewMachine(completer, reviewer, celebrant, course)
	m.SetCeremonyStore(store)
	m.SetAdvanceDelay(time.Millisecond)
	m.accountID = "acc-1"
	return m
}

func TestCompleteLecture(t *testing.T) {
	Convey("Given a machine on an in-progress lecture", t, func() {
		course := twoLectureCourse()
		completer := &fakeCompleter{}
		reviewer := &scriptedReviewer{rating: 5}
		celebrant := &countingCelebrant{}
		m := newTestMachine(completer, reviewer, celebrant, course, newMemCeremonies())

		lecture := course.Sections[0].Lectures[0]
		lecture.WatchTimeSeconds = 500
		lecture.LastPositionSeconds = 480

		Convey("Explicit completion writes completed=true at the furthest position", func() {
			signal, err := m.CompleteLecture(lecture, 300)

			So(err, ShouldBeNil)
			So(signal.IsCompleted, ShouldBeTrue)
			So(m.State(), ShouldEqual, LectureCompleted)
			So(lecture.IsCompleted, ShouldBeTrue)

			So(completer.writes, ShouldHaveLength, 1)
			So(completer.writes[0].IsCompleted, ShouldBeTrue)
			So(completer.writes[0].EnrollmentID, ShouldEqual, "enr-1")
			So(completer.writes[0].WatchTimeSeconds, ShouldEqual, 500)
			So(completer.writes[0].LastPositionSeconds, ShouldEqual, 480)
		})

		Convey("A failed write returns to InProgress and can simply be retried", func() {
			completer.failNext = true

			_, err := m.CompleteLecture(lecture, 300)
			So(err, ShouldNotBeNil)
			So(m.State(), ShouldEqual, InProgress)
			So(completer.writes, ShouldBeEmpty)

			_, err = m.CompleteLecture(lecture, 300)
			So(err, ShouldBeNil)
			So(completer.writes, ShouldHaveLength, 1)
		})

		Convey("A second request while one is in flight is ignored", func() {
			completer.block = make(chan struct{})

			done := make(chan error, 1)
			go func() {
				_, err := m.CompleteLecture(lecture, 300)
				done <- err
			}()

			// Wait for the first write to enter the blocked completer.
			for m.State() != LectureCompleting {
				time.Sleep(time.Millisecond)
			}

			_, err := m.CompleteLecture(lecture, 300)
			So(err, ShouldEqual, ErrCompletionInFlight)

			close(completer.block)
			So(<-done, ShouldBeNil)
			So(completer.writes, ShouldHaveLength, 1)
		})
	})
}

func TestCeremony(t *testing.T) {
	courseCompleted := api.CompletionSignal{
		IsCompleted:          true,
		CourseCompleted:      true,
		CertificateGenerated: true,
		CertificateURL:       "https://marketplace.example.com/certs/abc",
	}

	Convey("Given a completion write that finishes the course", t, func() {
		course := twoLectureCourse()
		store := newMemCeremonies()
		completer := &fakeCompleter{signals: []api.CompletionSignal{courseCompleted}}
		reviewer := &scriptedReviewer{rating: 4}
		celebrant := &countingCelebrant{}
		m := newTestMachine(completer, reviewer, celebrant, course, store)

		lecture := course.Sections[0].Lectures[1]

		Convey("Review runs first, congratulations after it is submitted", func() {
			_, err := m.CompleteLecture(lecture, 100)

			So(err, ShouldBeNil)
			So(m.State(), ShouldEqual, CourseCompletionPending)
			So(reviewer.asked, ShouldEqual, 1)
			So(completer.reviews, ShouldResemble, []int{4})
			So(celebrant.shown, ShouldEqual, 1)

			Convey("Re-observing the signal never repeats the ceremony", func() {
				_, err := m.CompleteLecture(lecture, 100)

				So(err, ShouldBeNil)
				So(reviewer.asked, ShouldEqual, 1)
				So(celebrant.shown, ShouldEqual, 1)
			})

			Convey("The flag survives a reload into a fresh machine", func() {
				m2 := newTestMachine(completer, reviewer, celebrant, course, store)

				_, err := m2.CompleteLecture(lecture, 100)
				So(err, ShouldBeNil)
				So(reviewer.asked, ShouldEqual, 1)
				So(celebrant.shown, ShouldEqual, 1)
			})
		})

		Convey("A dismissed review skips congratulations but burns the flag", func() {
			reviewer.dismiss = true

			_, err := m.CompleteLecture(lecture, 100)

			So(err, ShouldBeNil)
			So(celebrant.shown, ShouldEqual, 0)

			shown, _ := store.Shown("acc-1", "crs-1")
			So(shown, ShouldBeTrue)
		})

		Convey("The flag is scoped per account", func() {
			_, err := m.CompleteLecture(lecture, 100)
			So(err, ShouldBeNil)

			other := newTestMachine(completer, reviewer, celebrant, course, store)
			other.accountID = "acc-2"

			_, err = other.CompleteLecture(lecture, 100)
			So(err, ShouldBeNil)
			So(celebrant.shown, ShouldEqual, 2)
		})
	})
}

func TestScheduleAdvance(t *testing.T) {
	Convey("Given a completed lecture with a successor", t, func() {
		course := twoLectureCourse()
		m := newTestMachine(&fakeCompleter{}, &scriptedReviewer{}, &countingCelebrant{}, course, newMemCeremonies())

		Convey("The machine navigates to it after the delay", func() {
			var landed *content.Lecture
			m.ScheduleAdvance(course.AdjacentLecture("lec-1", content.Next), func(l *content.Lecture) {
				landed = l
			})

			So(landed, ShouldNotBeNil)
			So(landed.LectureID, ShouldEqual, "lec-2")
		})

		Convey("With no successor the session stays put", func() {
			called := false
			m.ScheduleAdvance(mo.None[*content.Lecture](), func(*content.Lecture) {
				called = true
			})

			So(called, ShouldBeFalse)
		})
	})
}

func TestFullCourseFlow(t *testing.T) {
	Convey("Given a fresh two-lecture course", t, func() {
		course := twoLectureCourse()
		store := newMemCeremonies()
		completer := &fakeCompleter{signals: []api.CompletionSignal{
			{IsCompleted: true},
			{IsCompleted: true, CourseCompleted: true, CertificateGenerated: true},
		}}
		reviewer := &scriptedReviewer{rating: 5}
		celebrant := &countingCelebrant{}
		m := newTestMachine(completer, reviewer, celebrant, course, store)

		Convey("Completing both lectures walks the whole workflow once", func() {
			first := course.Sections[0].Lectures[0]
			_, err := m.CompleteLecture(first, 700)
			So(err, ShouldBeNil)
			So(m.State(), ShouldEqual, LectureCompleted)
			So(celebrant.shown, ShouldEqual, 0)

			var current *content.Lecture
			m.ScheduleAdvance(course.AdjacentLecture(first.LectureID, content.Next), func(l *content.Lecture) {
				current = l
			})
			So(current.LectureID, ShouldEqual, "lec-2")
			m.BeginLecture()
			So(m.State(), ShouldEqual, InProgress)

			_, err = m.CompleteLecture(current, 1100)
			So(err, ShouldBeNil)
			So(m.State(), ShouldEqual, CourseCompletionPending)
			So(completer.reviews, ShouldResemble, []int{5})
			So(celebrant.shown, ShouldEqual, 1)

			Convey("And there is no next lecture to advance to", func() {
				So(course.AdjacentLecture(current.LectureID, content.Next).IsAbsent(), ShouldBeTrue)
			})
		})
	})
}
