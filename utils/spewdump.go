package utils

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.SortKeys = true
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// LogDump writes a spew dump of a at debug level.
func LogDump(log logrus.FieldLogger, title string, a ...interface{}) {
	log.Debugf("%s:\n%s", title, spewConfig.Sdump(a...))
}
