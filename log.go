package kcore

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// debugLog is the kernel's ambient trace logger, the Go analogue of RIOT's
// DEBUG()/ENABLE_DEBUG() macro pair: silent by default (io.Discard), and
// pointed at stderr via EnableDebugLog when a caller wants to see scheduling
// decisions, hand-offs, and delivery events.
var debugLog = log.NewWithOptions(io.Discard, log.Options{
	Prefix: "kcore",
})

// EnableDebugLog turns on trace-level kernel logging to stderr. Mirrors
// flipping ENABLE_DEBUG from 0 to 1 in a RIOT module.
func EnableDebugLog() {
	debugLog.SetOutput(os.Stderr)
	debugLog.SetLevel(log.DebugLevel)
}

// DisableDebugLog silences kernel trace logging again.
func DisableDebugLog() {
	debugLog.SetOutput(io.Discard)
}
