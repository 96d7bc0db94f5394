package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// can be replaced with SetLogger, e.g. to mute output in tests.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// EveryN logs only every Nth call, for errors that can repeat at frame rate.
type EveryN struct {
	N     int
	count atomic.Uint64
}

func (e *EveryN) Logf(format string, v ...any) {
	n := e.N
	if n < 1 {
		n = 1
	}
	if e.count.Add(1)%uint64(n) == 0 {
		Logf(format, v...)
	}
}
