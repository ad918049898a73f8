package config

import (
	"testing"

	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/key"
	"github.com/spf13/viper"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Given a fresh configuration", t, func() {
		Convey("When Setup is called", func() {
			err := Setup()

			Convey("Then no error occurs and defaults are applied", func() {
				So(err, ShouldBeNil)
				So(viper.GetInt(key.SyncDebounce), ShouldEqual, 2)
				So(viper.GetInt(key.SyncFlushInterval), ShouldEqual, 30)
				So(viper.GetInt(key.SyncFailureThreshold), ShouldEqual, 3)
				So(viper.GetString(key.Player), ShouldEqual, "mpv")
			})
		})
	})
}

func TestFieldEnv(t *testing.T) {
	Convey("Field env names carry the application prefix", t, func() {
		f := Default[key.APIURL]
		So(f.Env(), ShouldEqual, "LECTIO_API_URL")
	})
}
