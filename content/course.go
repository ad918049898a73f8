// Package content defines the course content tree and pure traversal over it.
package content

import (
	"fmt"

	"github.com/samber/lo"
)

// Course is an immutable snapshot of one enrolled course's content tree.
// It is fetched wholesale, never mutated in place; a completion-causing write
// is followed by a full refetch rather than an optimistic local edit.
type Course struct {
	CourseID     string `json:"course_id"`
	EnrollmentID string `json:"enrollment_id"`
	Title        string `json:"title"`

	// Sections in declared order. Order defines lecture adjacency across
	// section boundaries.
	Sections []*Section `json:"sections"`

	// Aggregate progress counters as reported by the marketplace.
	OverallProgress   float64 `json:"overall_progress"`
	CompletedLectures int     `json:"completed_lectures"`
	TotalLectures     int     `json:"total_lectures"`
}

func (c *Course) String() string {
	return c.Title
}

// Link wires section and lecture back-references after deserialization.
// Must be called once on every freshly decoded snapshot.
func (c *Course) Link() *Course {
	for _, s := range c.Sections {
		s.Course = c
		for _, l := range s.Lectures {
			l.Section = s
		}
	}
	return c
}

// Lectures returns every lecture of the course in declared order.
func (c *Course) Lectures() []*Lecture {
	return lo.FlatMap(c.Sections, func(s *Section, _ int) []*Lecture {
		return s.Lectures
	})
}

// Progress renders the aggregate counters for display.
func (c *Course) Progress() string {
	return fmt.Sprintf("%d/%d lectures · %.0f%%", c.CompletedLectures, c.TotalLectures, c.OverallProgress)
}
