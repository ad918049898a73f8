// Package api implements the course marketplace client: content tree reads,
// idempotent progress writes, media URL resolution and review submission.
package api

// ProgressUpdate is the only unit ever sent to the progress store. Replaying
// the same payload is safe; the server treats it as an idempotent upsert.
type ProgressUpdate struct {
	EnrollmentID        string  `json:"enrollment_id"`
	LectureID           string  `json:"lecture_id"`
	IsCompleted         bool    `json:"is_completed"`
	WatchTimeSeconds    float64 `json:"watch_time_seconds"`
	LastPositionSeconds float64 `json:"last_position_seconds"`

	// Seq orders concurrent producers (debounce flush vs explicit completion)
	// within one session. Local bookkeeping, never sent on the wire.
	Seq uint64 `json:"-"`
}

// CompletionSignal is the server's answer to a single progress write: whether
// this lecture is now complete, whether the write transitively completed the
// whole course, and whether a certificate was generated for it.
type CompletionSignal struct {
	IsCompleted          bool   `json:"is_completed"`
	CourseCompleted      bool   `json:"course_completed"`
	CertificateGenerated bool   `json:"certificate_generated"`
	CertificateURL       string `json:"certificate_url,omitempty"`
}

// playbackResponse is the media origin's answer for a video asset reference.
type playbackResponse struct {
	URL string `json:"url"`
}

// reviewRequest is the payload for course review submission.
type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}
