package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-wide subsystem logger. It discards everything until a
// caller installs a real logger via UseLogger, matching the standard
// lnd/btcsuite subsystem-logger idiom.
var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the logger used by this package. Passing nil is equivalent
// to btclog.Disabled.
func UseLogger(logger btclog.Logger) {
	if logger == nil {
		logger = btclog.Disabled
	}
	log = logger
}
