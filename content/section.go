package content

import "fmt"

// Section is an ordered group of lectures within a course.
type Section struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`

	// Lectures in declared order.
	Lectures []*Lecture `json:"lectures"`

	LectureCount       int     `json:"lecture_count"`
	CompletedLectures  int     `json:"completed_lectures"`
	ProgressPercentage float64 `json:"progress_percentage"`

	Course *Course `json:"-"`
}

func (s *Section) String() string {
	return fmt.Sprintf("%s (%d/%d)", s.Title, s.CompletedLectures, s.LectureCount)
}
