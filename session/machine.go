// Package session drives the lecture completion workflow: the explicit
// completion write, the advance to the next lecture, and the once-per-course
// review and congratulations ceremony.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/viper"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/history"
	"github.com/lectio-cli/lectio/key"
	"github.com/lectio-cli/lectio/log"
)

// State is the lecture completion lifecycle.
type State int

const (
	InProgress State = iota
	LectureCompleting
	LectureCompleted
	Advancing
	CourseCompletionPending
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in progress"
	case LectureCompleting:
		return "completing"
	case LectureCompleted:
		return "completed"
	case Advancing:
		return "advancing"
	case CourseCompletionPending:
		return "course completion pending"
	default:
		return "unknown"
	}
}

// ErrCompletionInFlight is returned when a completion request arrives while a
// previous one is still being written. The second request is ignored, not
// queued.
var ErrCompletionInFlight = errors.New("completion write already in flight")

// Completer persists the completion write and the collected review.
type Completer interface {
	SaveProgress(update api.ProgressUpdate) (api.CompletionSignal, error)
	SubmitReview(courseID string, rating int, comment string) error
}

// Reviewer collects a course review from the user. ok=false means the user
// dismissed the prompt.
type Reviewer interface {
	CollectReview(course *content.Course) (rating int, comment string, ok bool)
}

// Celebrant presents the congratulations ceremony.
type Celebrant interface {
	Congratulate(course *content.Course, signal api.CompletionSignal)
}

// CeremonyStore is the durable once-per-(account, course) ceremony flag.
type CeremonyStore interface {
	Shown(accountID, courseID string) (bool, error)
	Mark(accountID, courseID string) error
}

// durableCeremonies delegates to the on-disk flag registry.
type durableCeremonies struct{}

func (durableCeremonies) Shown(accountID, courseID string) (bool, error) {
	return history.CeremonyShown(accountID, courseID)
}

func (durableCeremonies) Mark(accountID, courseID string) error {
	return history.MarkCeremonyShown(accountID, courseID)
}

// Machine runs the completion workflow for one course session. The in-flight
// guard exists because the completion write blocks on the network and a user
// can mash the complete action while it does.
type Machine struct {
	completer  Completer
	reviewer   Reviewer
	celebrant  Celebrant
	ceremonies CeremonyStore

	course    *content.Course
	accountID string

	mu           sync.Mutex
	state        State
	inflight     bool
	advanceDelay time.Duration
}

// NewMachine builds the workflow machine for one course. The account scopes
// the ceremony flag so shared machines celebrate per account.
func NewMachine(completer Completer, reviewer Reviewer, celebrant Celebrant, course *content.Course) *Machine {
	return &Machine{
		completer:    completer,
		reviewer:     reviewer,
		celebrant:    celebrant,
		ceremonies:   durableCeremonies{},
		course:       course,
		accountID:    viper.GetString(key.AccountID),
		state:        InProgress,
		advanceDelay: time.Duration(viper.GetInt(key.PlayerAdvanceDelay)) * time.Millisecond,
	}
}

// SetCeremonyStore swaps the durable flag registry.
func (m *Machine) SetCeremonyStore(store CeremonyStore) {
	m.ceremonies = store
}

// SetAdvanceDelay overrides the pause before auto-advancing.
func (m *Machine) SetAdvanceDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceDelay = d
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BeginLecture resets the lifecycle when a new lecture is mounted.
func (m *Machine) BeginLecture() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = InProgress
}

// CompleteLecture performs the explicit completion write: completed=true with
// the furthest position, sent directly without debounce. A failed write
// returns the machine to InProgress so the user can simply complete again;
// there is no automatic retry.
func (m *Machine) CompleteLecture(lecture *content.Lecture, position float64) (api.CompletionSignal, error) {
	m.mu.Lock()
	if m.inflight {
		m.mu.Unlock()
		return api.CompletionSignal{}, ErrCompletionInFlight
	}
	m.inflight = true
	m.state = LectureCompleting
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inflight = false
		m.mu.Unlock()
	}()

	course := lecture.Course()
	update := api.ProgressUpdate{
		LectureID:           lecture.LectureID,
		IsCompleted:         true,
		WatchTimeSeconds:    furthest(lecture.WatchTimeSeconds, position),
		LastPositionSeconds: furthest(lecture.LastPositionSeconds, position),
	}
	if course != nil {
		update.EnrollmentID = course.EnrollmentID
	}

	signal, err := m.completer.SaveProgress(update)
	if err != nil {
		m.setState(InProgress)
		return api.CompletionSignal{}, err
	}

	lecture.IsCompleted = true
	m.setState(LectureCompleted)

	if signal.CourseCompleted {
		m.setState(CourseCompletionPending)
		m.runCeremony(signal)
	}

	return signal, nil
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// ScheduleAdvance moves to the next lecture after the configured delay. With
// no next lecture the session stays on the final one.
func (m *Machine) ScheduleAdvance(next mo.Option[*content.Lecture], navigate func(*content.Lecture)) {
	lecture, ok := next.Get()
	if !ok {
		log.Infof("no next lecture; staying on the final one")
		return
	}

	m.setState(Advancing)
	m.mu.Lock()
	delay := m.advanceDelay
	m.mu.Unlock()
	time.Sleep(delay)
	navigate(lecture)
}

// runCeremony performs the once-per-(account, course) completion ceremony:
// review collection first, congratulations only after the review submission
// succeeds. The durable flag is written the moment the completion signal is
// first observed, so a crash mid-ceremony errs toward never repeating it.
func (m *Machine) runCeremony(signal api.CompletionSignal) {
	shown, err := m.ceremonies.Shown(m.accountID, m.course.CourseID)
	if err != nil {
		log.Warnf("reading ceremony flag: %v", err)
	}
	if shown {
		log.Debugf("ceremony for course %s already shown", m.course.CourseID)
		return
	}

	if err := m.ceremonies.Mark(m.accountID, m.course.CourseID); err != nil {
		log.Warnf("writing ceremony flag: %v", err)
	}

	rating, comment, ok := m.reviewer.CollectReview(m.course)
	if !ok {
		log.Infof("review dismissed; skipping congratulations")
		return
	}

	if err := m.completer.SubmitReview(m.course.CourseID, rating, comment); err != nil {
		log.Warnf("submitting review: %v", err)
		return
	}

	m.celebrant.Congratulate(m.course, signal)
}

func furthest(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
