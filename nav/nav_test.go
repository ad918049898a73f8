package nav

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lectio-cli/lectio/content"
)

func sampleCourse() *content.Course {
	course := &content.Course{
		CourseID: "crs-1",
		Title:    "Intro to Streaming",
		Sections: []*content.Section{
			{
				SectionID: "sec-1",
				Title:     "Basics",
				Lectures: []*content.Lecture{
					{LectureID: "lec-1", Title: "What is HLS?", IsCompleted: true},
					{LectureID: "lec-2", Title: "Segments & Playlists"},
				},
			},
			{
				SectionID: "sec-2",
				Title:     "Advanced",
				Lectures: []*content.Lecture{
					{LectureID: "lec-3", Title: "ABR Ladders"},
				},
			},
		},
	}
	return course.Link()
}

func TestAddress(t *testing.T) {
	Convey("Given a linked lecture", t, func() {
		course := sampleCourse()
		lecture := course.Sections[0].Lectures[0]

		Convey("Its canonical address embeds the slugged title", func() {
			addr := Canonical(lecture)

			So(addr.CourseID, ShouldEqual, "crs-1")
			So(addr.LectureID, ShouldEqual, "lec-1")
			So(addr.Path(), ShouldEqual, "/courses/crs-1/lectures/lec-1-what-is-hls")
		})

		Convey("A bare course address renders without a lecture segment", func() {
			addr := Address{CourseID: "crs-1"}
			So(addr.Path(), ShouldEqual, "/courses/crs-1")
		})
	})

	Convey("Parse splits well-formed paths", t, func() {
		courseID, segment, err := Parse("/courses/crs-1/lectures/lec-2-segments-playlists")
		So(err, ShouldBeNil)
		So(courseID, ShouldEqual, "crs-1")
		So(segment, ShouldEqual, "lec-2-segments-playlists")

		courseID, segment, err = Parse("/courses/crs-1")
		So(err, ShouldBeNil)
		So(courseID, ShouldEqual, "crs-1")
		So(segment, ShouldBeEmpty)
	})

	Convey("Parse rejects malformed paths", t, func() {
		for _, path := range []string{"", "/", "/lectures/lec-1", "/courses", "/courses/crs-1/videos/lec-1", "/courses/crs-1/lectures/"} {
			_, _, err := Parse(path)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestNavigatorResolve(t *testing.T) {
	Convey("Given a navigator over a partially completed course", t, func() {
		nav := New(sampleCourse())

		Convey("A canonical address resolves without a redirect", func() {
			entry, err := nav.Resolve("/courses/crs-1/lectures/lec-2-segments-playlists")

			So(err, ShouldBeNil)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-2")
			So(entry.Redirected, ShouldBeFalse)
		})

		Convey("A stale slug still resolves by ID, redirected to canonical", func() {
			entry, err := nav.Resolve("/courses/crs-1/lectures/lec-2-old-renamed-title")

			So(err, ShouldBeNil)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-2")
			So(entry.Redirected, ShouldBeTrue)
			So(entry.Canonical.Path(), ShouldEqual, "/courses/crs-1/lectures/lec-2-segments-playlists")

			Convey("Resolving the canonical address again does not redirect", func() {
				entry, err := nav.Resolve(entry.Canonical.Path())
				So(err, ShouldBeNil)
				So(entry.Redirected, ShouldBeFalse)
			})
		})

		Convey("A bare ID with no slug resolves, redirected to canonical", func() {
			entry, err := nav.Resolve("/courses/crs-1/lectures/lec-3")

			So(err, ShouldBeNil)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-3")
			So(entry.Redirected, ShouldBeTrue)
		})

		Convey("A bare course entry redirects to the first incomplete lecture", func() {
			entry, err := nav.Resolve("/courses/crs-1")

			So(err, ShouldBeNil)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-2")
			So(entry.Redirected, ShouldBeTrue)
		})

		Convey("Unknown lectures and foreign courses are errors", func() {
			_, err := nav.Resolve("/courses/crs-1/lectures/lec-99-ghost")
			So(err, ShouldNotBeNil)

			_, err = nav.Resolve("/courses/crs-other/lectures/lec-1-what-is-hls")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a fully completed course", t, func() {
		course := sampleCourse()
		for _, lecture := range course.Lectures() {
			lecture.IsCompleted = true
		}
		nav := New(course)

		Convey("A bare entry lands on the first lecture", func() {
			entry, err := nav.Resolve("/courses/crs-1")

			So(err, ShouldBeNil)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-1")
		})
	})
}

func TestNavigatorAdvance(t *testing.T) {
	Convey("Given a navigator over the sample course", t, func() {
		nav := New(sampleCourse())

		Convey("Advance crosses section boundaries", func() {
			entry, ok := nav.Advance("lec-2", content.Next).Get()

			So(ok, ShouldBeTrue)
			So(entry.Lecture.LectureID, ShouldEqual, "lec-3")
			So(entry.Canonical.Path(), ShouldEqual, "/courses/crs-1/lectures/lec-3-abr-ladders")
		})

		Convey("Advance past the final lecture yields nothing", func() {
			So(nav.Advance("lec-3", content.Next).IsAbsent(), ShouldBeTrue)
		})

		Convey("Advance backward from the first lecture yields nothing", func() {
			So(nav.Advance("lec-1", content.Previous).IsAbsent(), ShouldBeTrue)
		})
	})
}
