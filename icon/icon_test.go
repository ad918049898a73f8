package icon

import (
	"testing"

	"github.com/lectio-cli/lectio/key"
	"github.com/spf13/viper"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIcons(t *testing.T) {
	Convey("Every registered icon renders in every variant", t, func() {
		for _, variant := range AvailableVariants() {
			viper.Set(key.IconsVariant, variant)
			for i := range icons {
				So(Get(i), ShouldNotBeEmpty)
			}
		}
	})

	Convey("Unknown variant falls back to plain", t, func() {
		viper.Set(key.IconsVariant, "bogus")
		So(Get(Success), ShouldEqual, "[ok]")
	})
}
