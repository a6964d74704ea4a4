package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that trigger a graceful shutdown.
// SIGTERM is delivered on Windows for console close and shutdown events.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
