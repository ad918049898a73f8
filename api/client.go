package api

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/lectio-cli/lectio/auth"
	"github.com/lectio-cli/lectio/constant"
	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/key"
	"github.com/lectio-cli/lectio/log"
	"github.com/lectio-cli/lectio/network"
	"github.com/spf13/viper"
)

// Client talks to the course marketplace API. One instance per process is
// enough; it is safe for concurrent use.
type Client struct {
	http *resty.Client
}

// New constructs a marketplace client on top of the shared tuned transport.
// The bearer token is read from the system keyring if present.
func New() *Client {
	r := resty.NewWithClient(network.Client).
		SetBaseURL(viper.GetString(key.APIURL)).
		SetHeader("User-Agent", constant.UserAgent).
		SetHeader("Accept", "application/json")

	if token, err := auth.GetToken(); err == nil && token != "" {
		r.SetAuthToken(token)
	}

	return &Client{http: r}
}

// CourseContent fetches the full content tree for a course. Snapshots are
// servable from the local cache for a short window; completion-causing writes
// must call InvalidateCourse to force a refetch.
func (c *Client) CourseContent(courseID string) (*content.Course, error) {
	if cached, ok := cachedCourseContent(courseID); ok {
		log.Debugf("course %s served from cache", courseID)
		return cached, nil
	}

	var course content.Course
	resp, err := c.http.R().
		SetResult(&course).
		SetPathParam("courseID", courseID).
		Get("/courses/{courseID}/content")
	if err != nil {
		return nil, fmt.Errorf("fetch course content: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch course content: status %d", resp.StatusCode())
	}

	course.Link()
	if err := cacheCourseContent(courseID, &course); err != nil {
		log.Warnf("caching course %s: %v", courseID, err)
	}

	return &course, nil
}

// SaveProgress upserts one progress record and returns the completion signal.
// Safe to call repeatedly with the same payload; failed writes are not retried
// here - the caller's next scheduled flush is the retry.
func (c *Client) SaveProgress(update ProgressUpdate) (CompletionSignal, error) {
	var signal CompletionSignal
	resp, err := c.http.R().
		SetBody(update).
		SetResult(&signal).
		SetPathParam("enrollmentID", update.EnrollmentID).
		Put("/enrollments/{enrollmentID}/progress")
	if err != nil {
		return CompletionSignal{}, fmt.Errorf("save progress: %w", err)
	}
	if resp.IsError() {
		return CompletionSignal{}, fmt.Errorf("save progress: status %d", resp.StatusCode())
	}

	return signal, nil
}

// MediaURL resolves a video asset reference to a playable URL. The URL is
// opaque to the caller; it may be a direct file or a temporary signed manifest.
func (c *Client) MediaURL(assetRef string) (string, error) {
	var playback playbackResponse
	resp, err := c.http.R().
		SetResult(&playback).
		SetPathParam("assetRef", assetRef).
		Get("/assets/{assetRef}/playback")
	if err != nil {
		return "", fmt.Errorf("resolve media url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("resolve media url: status %d", resp.StatusCode())
	}
	if playback.URL == "" {
		return "", fmt.Errorf("resolve media url: empty url for asset %s", assetRef)
	}

	return playback.URL, nil
}

// SubmitReview posts a course review collected before the congratulations step.
func (c *Client) SubmitReview(courseID string, rating int, comment string) error {
	resp, err := c.http.R().
		SetBody(reviewRequest{Rating: rating, Comment: comment}).
		SetPathParam("courseID", courseID).
		Post("/courses/{courseID}/reviews")
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("submit review: status %d", resp.StatusCode())
	}

	return nil
}
