// Package history provides the implementation for tracking and persisting local resume state.
package history

import (
	"github.com/metafates/gache"

	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/where"
)

// cacher provides an abstracted, disk-backed registry keyed by course: one
// resume point per course, pointing at the last lecture touched.
var cacher = gache.New[map[string]*SavedLecture](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns the complete collection of resume records from the persistent store.
func Get() (map[string]*SavedLecture, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*SavedLecture), nil
	}
	return cached, nil
}

// For returns the resume record for one course, or nil when none exists.
func For(courseID string) (*SavedLecture, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}
	return saved[courseID], nil
}

// Save persists the resume point for a lecture. Accumulated watch time is
// monotonic so a rewatch never shrinks it.
func Save(lecture *content.Lecture, position, watchTime float64) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	record := newSavedLecture(lecture)
	record.LastPositionSeconds = position
	record.WatchTimeSeconds = watchTime

	if existing, exists := saved[record.encode()]; exists {
		if existing.LectureID == record.LectureID && watchTime < existing.WatchTimeSeconds {
			record.WatchTimeSeconds = existing.WatchTimeSeconds
		}
	}

	saved[record.encode()] = record

	return cacher.Set(saved)
}

// Remove permanently deletes the resume record of a course.
func Remove(record *SavedLecture) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, record.encode())
	return cacher.Set(saved)
}

func newSavedLecture(lecture *content.Lecture) *SavedLecture {
	record := &SavedLecture{
		LectureID:       lecture.LectureID,
		LectureTitle:    lecture.Title,
		DurationMinutes: lecture.DurationMinutes,
	}

	if lecture.Section != nil {
		record.SectionTitle = lecture.Section.Title
		if course := lecture.Course(); course != nil {
			record.CourseID = course.CourseID
			record.CourseTitle = course.Title
			record.EnrollmentID = course.EnrollmentID
		}
	}

	return record
}
