package api

import (
	"sync"
	"time"

	"github.com/lectio-cli/lectio/content"
	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/key"
	"github.com/lectio-cli/lectio/where"
	"github.com/metafates/gache"
	"github.com/spf13/viper"
)

// cachedCourse pairs a snapshot with its fetch time; staleness is evaluated
// per entry against the configured lifetime at read time.
type cachedCourse struct {
	Course    *content.Course `json:"course"`
	FetchedAt int64           `json:"fetched_at"`
}

type courseCacheData struct {
	Courses map[string]*cachedCourse `json:"courses"`
}

var (
	courseCacheMu sync.Mutex

	courseCacher = gache.New[*courseCacheData](&gache.Options{
		Path:       where.Courses(),
		FileSystem: &filesystem.GacheFs{},
	})
)

// cachedCourseContent returns a still-servable snapshot for the course, if any.
func cachedCourseContent(courseID string) (*content.Course, bool) {
	courseCacheMu.Lock()
	defer courseCacheMu.Unlock()

	data, expired, err := courseCacher.Get()
	if err != nil || expired || data == nil {
		return nil, false
	}

	entry, ok := data.Courses[courseID]
	if !ok || entry.Course == nil {
		return nil, false
	}

	lifetime := time.Duration(viper.GetInt(key.APICacheLifetime)) * time.Minute
	if time.Since(time.Unix(entry.FetchedAt, 0)) > lifetime {
		return nil, false
	}

	return entry.Course.Link(), true
}

// cacheCourseContent persists a freshly fetched snapshot.
func cacheCourseContent(courseID string, course *content.Course) error {
	courseCacheMu.Lock()
	defer courseCacheMu.Unlock()

	data, expired, err := courseCacher.Get()
	if err != nil || expired || data == nil {
		data = &courseCacheData{Courses: make(map[string]*cachedCourse)}
	}
	if data.Courses == nil {
		data.Courses = make(map[string]*cachedCourse)
	}

	data.Courses[courseID] = &cachedCourse{
		Course:    course,
		FetchedAt: time.Now().Unix(),
	}

	return courseCacher.Set(data)
}

// InvalidateCourse drops the cached snapshot for a course. Called after any
// completion-causing write so the next read reflects server-side counters.
func InvalidateCourse(courseID string) error {
	courseCacheMu.Lock()
	defer courseCacheMu.Unlock()

	data, expired, err := courseCacher.Get()
	if err != nil || expired || data == nil || data.Courses == nil {
		return nil
	}

	delete(data.Courses, courseID)
	return courseCacher.Set(data)
}
