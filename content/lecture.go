package content

import (
	"encoding/json"
	"fmt"
)

// Lecture is a single playable unit within a section.
type Lecture struct {
	LectureID string `json:"lecture_id"`
	Title     string `json:"title"`

	// Opaque reference resolved to a playable URL by the media origin.
	VideoAssetRef string `json:"video_asset_ref"`

	DurationMinutes int  `json:"duration_minutes"`
	IsCompleted     bool `json:"is_completed"`

	// WatchTimeSeconds is monotonically non-decreasing within a viewing
	// session; stale writes never regress it.
	WatchTimeSeconds    float64 `json:"watch_time_seconds"`
	LastPositionSeconds float64 `json:"last_position_seconds"`

	// Resources is owned by the resources collaborator; carried opaquely.
	Resources json.RawMessage `json:"resources,omitempty"`

	Section *Section `json:"-"`
}

func (l *Lecture) String() string {
	return fmt.Sprintf("%s (%dm)", l.Title, l.DurationMinutes)
}

// Course returns the owning course, or nil for an unlinked lecture.
func (l *Lecture) Course() *Course {
	if l.Section == nil {
		return nil
	}
	return l.Section.Course
}
