package history

import (
	"fmt"
	"time"

	"github.com/metafates/gache"

	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/where"
)

// ceremonyCacher is the durable registry of course completion ceremonies that
// have already been shown. Keyed per account so a shared machine does not
// swallow another account's celebration.
var ceremonyCacher = gache.New[map[string]int64](
	&gache.Options{
		Path:       where.Ceremonies(),
		FileSystem: &filesystem.GacheFs{},
	},
)

func ceremonyKey(accountID, courseID string) string {
	return fmt.Sprintf("%s:%s", accountID, courseID)
}

// CeremonyShown reports whether the completion ceremony for the course has
// already been presented to this account.
func CeremonyShown(accountID, courseID string) (bool, error) {
	flags, expired, err := ceremonyCacher.Get()
	if err != nil {
		return false, err
	}
	if expired || flags == nil {
		return false, nil
	}

	_, shown := flags[ceremonyKey(accountID, courseID)]
	return shown, nil
}

// MarkCeremonyShown durably records that the ceremony was presented. The flag
// is written before the ceremony renders, so a crash mid-celebration errs on
// the side of never repeating it.
func MarkCeremonyShown(accountID, courseID string) error {
	flags, expired, err := ceremonyCacher.Get()
	if err != nil {
		return err
	}
	if expired || flags == nil {
		flags = make(map[string]int64)
	}

	flags[ceremonyKey(accountID, courseID)] = time.Now().Unix()
	return ceremonyCacher.Set(flags)
}
