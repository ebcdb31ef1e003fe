package synchrony

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-wide diagnostic logger. It discards everything by
// default; Configure(GlobalConfig{Debug: true}) raises it to DebugLevel.
// efile calls Log.Debug/Debugf at state transitions and spill points;
// every call site is guarded by logrus's own level check, so it costs
// nothing while Debug is off.
var Log = logrus.New()

func init() {
	configureLogger(false)
}

func configureLogger(debug bool) {
	if debug {
		Log.SetOutput(os.Stderr)
		Log.SetLevel(logrus.DebugLevel)
		return
	}
	Log.SetOutput(io.Discard)
	Log.SetLevel(logrus.PanicLevel)
}
