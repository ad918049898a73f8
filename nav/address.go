// Package nav resolves lecture addresses against a course content tree.
package nav

import (
	"fmt"
	"strings"

	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/util"
)

// Address is the canonical location of a lecture within a course. The slug
// exists for legibility only; the lecture ID carries identity.
type Address struct {
	CourseID  string
	LectureID string
	Slug      string
}

// Path renders the address as /courses/{courseID}/lectures/{lectureID}-{slug}.
// A course address without a lecture renders as /courses/{courseID}.
func (a Address) Path() string {
	if a.LectureID == "" {
		return fmt.Sprintf("/courses/%s", a.CourseID)
	}
	if a.Slug == "" {
		return fmt.Sprintf("/courses/%s/lectures/%s", a.CourseID, a.LectureID)
	}
	return fmt.Sprintf("/courses/%s/lectures/%s-%s", a.CourseID, a.LectureID, a.Slug)
}

func (a Address) String() string {
	return a.Path()
}

// Canonical builds the canonical address of a linked lecture.
func Canonical(lecture *content.Lecture) Address {
	addr := Address{
		LectureID: lecture.LectureID,
		Slug:      util.Slugify(lecture.Title),
	}
	if course := lecture.Course(); course != nil {
		addr.CourseID = course.CourseID
	}
	return addr
}

// Parse splits a raw path into its course and lecture segments. The lecture
// segment is kept verbatim; splitting ID from slug needs the content tree,
// since IDs may themselves contain hyphens.
func Parse(path string) (courseID, lectureSegment string, err error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("empty address")
	}

	parts := strings.Split(trimmed, "/")
	if parts[0] != "courses" || len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("address %q: expected /courses/{id}[/lectures/{lecture}]", path)
	}
	courseID = parts[1]

	switch {
	case len(parts) == 2:
		return courseID, "", nil
	case len(parts) == 4 && parts[2] == "lectures" && parts[3] != "":
		return courseID, parts[3], nil
	default:
		return "", "", fmt.Errorf("address %q: expected /courses/{id}[/lectures/{lecture}]", path)
	}
}
