// Package watch implements the interactive lecture viewing session: mount a
// lecture in the external player, keep remote progress current, and drive the
// completion workflow between lectures.
package watch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/history"
	"github.com/lectio-cli/lectio/icon"
	internalsync "github.com/lectio-cli/lectio/internal/sync"
	"github.com/lectio-cli/lectio/key"
	"github.com/lectio-cli/lectio/log"
	"github.com/lectio-cli/lectio/nav"
	"github.com/lectio-cli/lectio/player"
	"github.com/lectio-cli/lectio/progress"
	"github.com/lectio-cli/lectio/session"
	"github.com/lectio-cli/lectio/style"
	"github.com/lectio-cli/lectio/util"
)

// Options configures one watch session.
type Options struct {
	// Target is a course ID or a full lecture address
	// (/courses/{id}/lectures/{lecture}).
	Target string

	// Continue reopens the most recently watched course from local history.
	Continue bool
}

type action int

const (
	actComplete action = iota
	actNext
	actPrev
	actReplay
	actQuit
)

type watcher struct {
	client  *api.Client
	course  *content.Course
	nav     *nav.Navigator
	machine *session.Machine
}

// Run drives a full watch session until the user quits or the course ends.
func Run(options *Options) error {
	if backend := viper.GetString(key.Player); backend != "mpv" {
		return fmt.Errorf("unsupported player backend %q, only mpv is available", backend)
	}

	client := api.New()

	target := options.Target
	var resumeLectureID string

	if options.Continue {
		record, err := pickHistory()
		if err != nil {
			return err
		}
		target = record.CourseID
		resumeLectureID = record.LectureID
	}

	courseID := target
	lectureSegment := ""
	if strings.HasPrefix(target, "/") {
		var err error
		courseID, lectureSegment, err = nav.Parse(target)
		if err != nil {
			return err
		}
	}

	erase := working("Fetching course content..")
	course, err := client.CourseContent(courseID)
	erase()
	if err != nil {
		return err
	}

	w := &watcher{
		client:  client,
		course:  course,
		nav:     nav.New(course),
		machine: session.NewMachine(client, surveyReviewer{}, surveyCelebrant{}, course),
	}

	entry, err := w.entry(lectureSegment, resumeLectureID)
	if err != nil {
		return err
	}
	if entry.Redirected {
		fmt.Println(style.Faint("-> " + entry.Canonical.Path()))
	}

	title(fmt.Sprintf("%s  %s", course.Title, course.Progress()))

	lecture := entry.Lecture
	for lecture != nil {
		next, err := w.playLecture(lecture)
		if err != nil {
			return err
		}
		lecture = next
	}

	return nil
}

// entry resolves where the session starts.
func (w *watcher) entry(lectureSegment, resumeLectureID string) (nav.Entry, error) {
	switch {
	case lectureSegment != "":
		return w.nav.Resolve(nav.Address{CourseID: w.course.CourseID}.Path() + "/lectures/" + lectureSegment)
	case resumeLectureID != "":
		pos, ok := w.course.FindLecture(resumeLectureID).Get()
		if !ok {
			// The lecture may have been removed from the course; fall back.
			return w.nav.EntryPoint()
		}
		return nav.Entry{Lecture: pos.Lecture, Canonical: nav.Canonical(pos.Lecture)}, nil
	default:
		return w.nav.EntryPoint()
	}
}

// playLecture mounts one lecture and blocks until the user picks the next
// step. Returns the next lecture to mount, or nil to end the session.
func (w *watcher) playLecture(lecture *content.Lecture) (*content.Lecture, error) {
	w.machine.BeginLecture()

	erase := working("Resolving media..")
	mediaURL, err := w.client.MediaURL(lecture.VideoAssetRef)
	erase()
	if err != nil {
		return nil, err
	}

	source := player.DetectSource(mediaURL)
	log.Infof("mounting %s as %s source", lecture.LectureID, source.Kind)

	ctrl, sync, ended := w.mount(lecture, source)
	defer func() {
		cur, dur := ctrl.Position()
		sync.FlushNow(w.update(lecture, cur, dur))
		sync.Close()
		ctrl.Dispose()
	}()

	if err := ctrl.Play(fmt.Sprintf("%s - %s", w.course.Title, lecture.Title)); err != nil {
		return nil, err
	}

	fmt.Printf("%s %s\n", style.Bold(lecture.Title), style.Faint(util.FormatTime(float64(lecture.DurationMinutes*60))))

	choice := make(chan action, 1)
	menuErr := make(chan error, 1)
	spawnMenu := func() {
		go func() {
			a, err := w.menu(lecture)
			if err != nil {
				menuErr <- err
				return
			}
			choice <- a
		}()
	}
	spawnMenu()

	for {
		select {
		case <-ctrl.Wait():
			// Player window closed; the deferred flush preserves position.
			return nil, nil

		case <-ended:
			success("Lecture finished")
			// Natural end is a completion trigger in its own right.
			if next, advanced := w.finishLecture(lecture, ctrl, sync); advanced {
				return next, nil
			}

		case err := <-menuErr:
			return nil, err

		case a := <-choice:
			switch a {
			case actComplete:
				if next, advanced := w.finishLecture(lecture, ctrl, sync); advanced {
					return next, nil
				}
				// Failed write or final lecture: stay on it.
				spawnMenu()

			case actNext:
				if next, ok := w.nav.Advance(lecture.LectureID, content.Next).Get(); ok {
					return next.Lecture, nil
				}
				fail("Already at the last lecture")
				spawnMenu()

			case actPrev:
				if prev, ok := w.nav.Advance(lecture.LectureID, content.Previous).Get(); ok {
					return prev.Lecture, nil
				}
				fail("Already at the first lecture")
				spawnMenu()

			case actReplay:
				lecture.LastPositionSeconds = 0
				return lecture, nil

			case actQuit:
				return nil, nil
			}
		}
	}
}

// mount wires the controller and synchronizer for one lecture.
func (w *watcher) mount(lecture *content.Lecture, source player.Source) (*player.Controller, *progress.Synchronizer, <-chan struct{}) {
	ended := make(chan struct{}, 1)

	var noticeEraser func()
	sync := progress.New(w.client, progress.Callbacks{
		OnDegraded: func(failures int) {
			noticeEraser = util.PrintErasable(fmt.Sprintf(
				"%s Progress sync is degraded; your position is kept locally", icon.Get(icon.SyncWarn)))
		},
		OnRecovered: func() {
			if noticeEraser != nil {
				noticeEraser()
				noticeEraser = nil
			}
		},
		OnCompletion: func(update api.ProgressUpdate, signal api.CompletionSignal) {
			util.Ignore(func() error { return api.InvalidateCourse(w.course.CourseID) })
		},
	})

	sync.SetSpill(func(update api.ProgressUpdate) {
		if err := internalsync.QueueFailure(update); err != nil {
			log.Warnf("spilling failed write: %v", err)
		}
	})

	ctrl := player.NewController(player.NewMPV(), source, lecture.LastPositionSeconds, player.Callbacks{
		OnProgress: func(cur, dur float64) {
			sync.Queue(w.update(lecture, cur, dur))
			w.saveHistory(lecture, cur)
		},
		OnPause: func(cur, dur float64) {
			sync.FlushNow(w.update(lecture, cur, dur))
			w.saveHistory(lecture, cur)
		},
		OnEnded: func(dur float64) {
			sync.FlushNow(w.update(lecture, dur, dur))
			select {
			case ended <- struct{}{}:
			default:
			}
		},
		OnError: func(err *player.MediaError) {
			fail(fmt.Sprintf("Playback failed (%s): %s", err.Category, err.Reason))
		},
	})

	ctrl.SetReportInterval(viper.GetFloat64(key.PlayerReportInterval))

	sync.SetLive(func() (api.ProgressUpdate, bool) {
		if !ctrl.Playing() {
			return api.ProgressUpdate{}, false
		}
		cur, dur := ctrl.Position()
		return w.update(lecture, cur, dur), true
	})
	sync.Start()

	return ctrl, sync, ended
}

// finishLecture runs the completion write and schedules the advance to the
// next lecture. Returns the lecture to mount next and whether the session
// moves on; on the final lecture or a failed write it stays put.
func (w *watcher) finishLecture(lecture *content.Lecture, ctrl *player.Controller, sync *progress.Synchronizer) (*content.Lecture, bool) {
	if done := w.complete(lecture, ctrl, sync); !done {
		return nil, false
	}

	next := w.nav.Advance(lecture.LectureID, content.Next)
	if next.IsAbsent() {
		return nil, false
	}

	var landing *content.Lecture
	w.machine.ScheduleAdvance(lectureOf(next), func(l *content.Lecture) {
		landing = l
	})
	return landing, true
}

// complete runs the explicit completion write. Returns true when the session
// should advance.
func (w *watcher) complete(lecture *content.Lecture, ctrl *player.Controller, sync *progress.Synchronizer) bool {
	cur, _ := ctrl.Position()

	signal, err := w.machine.CompleteLecture(lecture, cur)
	if errors.Is(err, session.ErrCompletionInFlight) {
		return false
	}
	if err != nil {
		fail(fmt.Sprintf("Could not mark complete: %v. Try again.", err))
		return false
	}

	// Pin the flag in the synchronizer so a report queued before the
	// completion cannot flush completed=false after it.
	sync.MarkCompleted(lecture.LectureID)

	success("Lecture completed")
	util.Ignore(func() error { return api.InvalidateCourse(w.course.CourseID) })

	return !signal.CourseCompleted
}

// update builds the wire payload for the current position.
func (w *watcher) update(lecture *content.Lecture, cur, dur float64) api.ProgressUpdate {
	return api.ProgressUpdate{
		EnrollmentID:        w.course.EnrollmentID,
		LectureID:           lecture.LectureID,
		IsCompleted:         lecture.IsCompleted,
		WatchTimeSeconds:    util.Max(lecture.WatchTimeSeconds, cur),
		LastPositionSeconds: cur,
	}
}

func (w *watcher) saveHistory(lecture *content.Lecture, cur float64) {
	if !viper.GetBool(key.HistorySaveOnWatch) {
		return
	}
	if err := history.Save(lecture, cur, util.Max(lecture.WatchTimeSeconds, cur)); err != nil {
		log.Warnf("saving history: %v", err)
	}
}

// menu blocks on the between-actions prompt.
func (w *watcher) menu(lecture *content.Lecture) (action, error) {
	labels := []string{"Mark complete & continue"}
	actions := []action{actComplete}

	if w.nav.Advance(lecture.LectureID, content.Next).IsPresent() {
		labels = append(labels, "Next lecture")
		actions = append(actions, actNext)
	}
	if w.nav.Advance(lecture.LectureID, content.Previous).IsPresent() {
		labels = append(labels, "Previous lecture")
		actions = append(actions, actPrev)
	}
	labels = append(labels, "Replay from start", "Quit")
	actions = append(actions, actReplay, actQuit)

	var picked string
	prompt := &survey.Select{
		Message: lecture.Title,
		Options: labels,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return actQuit, err
	}

	idx := lo.IndexOf(labels, picked)
	if idx < 0 {
		return actQuit, nil
	}
	return actions[idx], nil
}

// pickHistory selects the resume record, prompting when several courses have
// history.
func pickHistory() (*history.SavedLecture, error) {
	saved, err := history.Get()
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, fmt.Errorf("no watch history yet; start with a course ID")
	}

	records := lo.Values(saved)
	if len(records) == 1 {
		return records[0], nil
	}

	labels := lo.Map(records, func(r *history.SavedLecture, _ int) string {
		return r.String()
	})

	var picked string
	prompt := &survey.Select{
		Message: "Continue watching",
		Options: labels,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return nil, err
	}

	idx := lo.IndexOf(labels, picked)
	if idx < 0 {
		return nil, fmt.Errorf("no course selected")
	}
	return records[idx], nil
}

func lectureOf(entry mo.Option[nav.Entry]) mo.Option[*content.Lecture] {
	e, ok := entry.Get()
	if !ok {
		return mo.None[*content.Lecture]()
	}
	return mo.Some(e.Lecture)
}
