package store

import "time"

// Clock returns the current wall-clock time in milliseconds since the
// epoch. It is a field on Engine (rather than a bare time.Now call) so
// tests can inject a deterministic clock; production code uses
// realClock.
type Clock func() int64

func realClock() int64 {
	return time.Now().UnixMilli()
}
