package where

import (
	"strings"
	"testing"

	"github.com/lectio-cli/lectio/filesystem"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestWhere(t *testing.T) {
	Convey("Config", t, func() {
		So(Config(), ShouldNotBeEmpty)
	})

	Convey("Logs", t, func() {
		So(strings.HasPrefix(Logs(), Config()), ShouldBeTrue)
	})

	Convey("History", t, func() {
		So(strings.HasSuffix(History(), "history.json"), ShouldBeTrue)
	})

	Convey("Ceremonies", t, func() {
		So(strings.HasSuffix(Ceremonies(), "ceremonies.json"), ShouldBeTrue)
	})

	Convey("Courses", t, func() {
		So(strings.HasPrefix(Courses(), Cache()), ShouldBeTrue)
	})
}
