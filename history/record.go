package history

import "fmt"

// SavedLecture is a single resume entry preserved in the local history.
type SavedLecture struct {
	CourseID            string  `json:"course_id"`
	CourseTitle         string  `json:"course_title"`
	EnrollmentID        string  `json:"enrollment_id"`
	LectureID           string  `json:"lecture_id"`
	LectureTitle        string  `json:"lecture_title"`
	SectionTitle        string  `json:"section_title"`
	LastPositionSeconds float64 `json:"last_position_seconds"`
	WatchTimeSeconds    float64 `json:"watch_time_seconds"`
	DurationMinutes     int     `json:"duration_minutes"`
}

func (s *SavedLecture) encode() string {
	return s.CourseID
}

func (s *SavedLecture) String() string {
	return fmt.Sprintf("%s : %s", s.CourseTitle, s.LectureTitle)
}
