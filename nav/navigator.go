package nav

import (
	"fmt"
	"strings"

	"github.com/samber/mo"

	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/log"
)

// Entry is the outcome of resolving a requested address.
type Entry struct {
	Lecture   *content.Lecture
	Canonical Address

	// Redirected is set when the requested address was not already canonical:
	// a bare course entry, a stale slug, or a missing one. The canonical
	// address resolves directly, so at most one redirect ever happens.
	Redirected bool
}

// Navigator resolves requested addresses against one course snapshot.
type Navigator struct {
	course *content.Course
}

// New builds a navigator over a linked course snapshot.
func New(course *content.Course) *Navigator {
	return &Navigator{course: course}
}

// Resolve maps a raw requested path onto a lecture and its canonical address.
// A bare course path lands on the first incomplete lecture, or the first
// lecture when the course is fully complete.
func (n *Navigator) Resolve(path string) (Entry, error) {
	courseID, segment, err := Parse(path)
	if err != nil {
		return Entry{}, err
	}

	if courseID != n.course.CourseID {
		return Entry{}, fmt.Errorf("address %q does not belong to course %s", path, n.course.CourseID)
	}

	if segment == "" {
		return n.entryPoint()
	}

	lecture, ok := n.lectureForSegment(segment).Get()
	if !ok {
		return Entry{}, fmt.Errorf("no lecture matches %q in course %s", segment, courseID)
	}

	canonical := Canonical(lecture)
	entry := Entry{
		Lecture:    lecture,
		Canonical:  canonical,
		Redirected: segment != lastPathSegment(canonical.Path()),
	}

	if entry.Redirected {
		log.Infof("address slug corrected to %s", canonical)
	}
	return entry, nil
}

// EntryPoint resolves a bare course entry directly.
func (n *Navigator) EntryPoint() (Entry, error) {
	return n.entryPoint()
}

// Advance returns the canonical entry for the given lecture's neighbor, or
// None at the course boundary.
func (n *Navigator) Advance(currentID string, dir content.Direction) mo.Option[Entry] {
	lecture, ok := n.course.AdjacentLecture(currentID, dir).Get()
	if !ok {
		return mo.None[Entry]()
	}
	return mo.Some(Entry{Lecture: lecture, Canonical: Canonical(lecture)})
}

func (n *Navigator) entryPoint() (Entry, error) {
	lecture, ok := n.course.FirstIncompleteLecture().Get()
	if !ok {
		// Fully completed course: land on the first lecture.
		lecture, ok = n.course.FirstLecture().Get()
		if !ok {
			return Entry{}, fmt.Errorf("course %s has no lectures", n.course.CourseID)
		}
	}

	return Entry{
		Lecture:    lecture,
		Canonical:  Canonical(lecture),
		Redirected: true,
	}, nil
}

// lectureForSegment matches a raw {lectureID}-{slug} segment against the
// course. The ID is authoritative; the slug, stale or absent, is ignored.
// IDs may contain hyphens, so the longest matching ID wins.
func (n *Navigator) lectureForSegment(segment string) mo.Option[*content.Lecture] {
	var best *content.Lecture
	for _, lecture := range n.course.Lectures() {
		if segment != lecture.LectureID && !strings.HasPrefix(segment, lecture.LectureID+"-") {
			continue
		}
		if best == nil || len(lecture.LectureID) > len(best.LectureID) {
			best = lecture
		}
	}
	if best == nil {
		return mo.None[*content.Lecture]()
	}
	return mo.Some(best)
}

func lastPathSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}
