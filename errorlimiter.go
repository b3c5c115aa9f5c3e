package reactor

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// defaultErrorLogRates caps callback-exception log volume per reaction
//: a reaction panicking on every invocation must
// not flood the sink.
var defaultErrorLogRates = map[time.Duration]int{
	time.Second: 10,
	time.Minute: 100,
}

// errorLogLimiter rate-limits ERROR-level callback-exception logging
// per reaction id, using catrate's multi-window sliding counter. The
// exception is always recorded in the task's statistics regardless of
// whether the log line is suppressed.
type errorLogLimiter struct {
	limiter *catrate.Limiter
}

func newErrorLogLimiter(rates map[time.Duration]int) *errorLogLimiter {
	if len(rates) == 0 {
		rates = defaultErrorLogRates
	}
	return &errorLogLimiter{limiter: catrate.NewLimiter(rates)}
}

// allow reports whether a log line for this reaction should be emitted
// now. It never blocks.
func (l *errorLogLimiter) allow(reactionID uint64) bool {
	if l == nil || l.limiter == nil {
		return true
	}
	_, ok := l.limiter.Allow(reactionID)
	return ok
}
