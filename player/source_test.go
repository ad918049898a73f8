package player

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectSource(t *testing.T) {
	Convey("DetectSource", t, func() {
		Convey("Manifest suffixes resolve to adaptive", func() {
			So(DetectSource("https://cdn.example.com/l1/master.m3u8").Kind, ShouldEqual, Adaptive)
			So(DetectSource("https://cdn.example.com/l1/manifest.mpd").Kind, ShouldEqual, Adaptive)
		})

		Convey("Progressive file suffixes resolve to progressive", func() {
			for _, u := range []string{
				"https://cdn.example.com/l1.mp4",
				"https://cdn.example.com/l1.webm",
				"https://cdn.example.com/l1.mov",
				"https://cdn.example.com/l1.ogg",
			} {
				So(DetectSource(u).Kind, ShouldEqual, Progressive)
			}
		})

		Convey("Signed URL query strings do not confuse sniffing", func() {
			src := DetectSource("https://cdn.example.com/l1/master.m3u8?token=abc.mp4")
			So(src.Kind, ShouldEqual, Adaptive)
		})

		Convey("Unknown suffixes default to progressive", func() {
			So(DetectSource("https://cdn.example.com/stream").Kind, ShouldEqual, Progressive)
		})

		Convey("The original URL is carried through untouched", func() {
			raw := "https://cdn.example.com/l1.mp4?sig=xyz"
			So(DetectSource(raw).URL, ShouldEqual, raw)
		})
	})
}
