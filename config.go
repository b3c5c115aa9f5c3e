package reactor

import (
	"runtime"
	"time"

	"github.com/joeycumines/go-microbatch"
)

// Config carries every Runtime construction knob.
type Config struct {
	// Workers is the ordinary worker-pool size. Left at 0
	// (and NoWorkers unset), it defaults to 1+GOMAXPROCS. Set NoWorkers
	// to request the zero-workers boundary explicitly: no ordinary
	// tasks ever run, but main-thread tasks still run on the caller
	// of Start.
	Workers int

	// NoWorkers opts into the zero-workers boundary case instead of
	// having a zero Workers field silently filled with the default.
	NoWorkers bool

	// ChronoEnabled starts the periodic-event thread.
	ChronoEnabled bool

	// IOEnabled starts the I/O multiplexer thread.
	IOEnabled bool

	// Clock overrides time.Now, for deterministic Chrono tests.
	Clock Clock

	// Logger is the structured logger every component logs through.
	// Left nil, a discarding logger is installed.
	Logger *Logger

	// ErrorLogRate caps callback-exception log volume per reaction.
	// Left nil, defaultErrorLogRates applies.
	ErrorLogRate map[time.Duration]int

	// StatBatch configures the task-statistics batcher. Left zero,
	// microbatch's own defaults apply.
	StatBatch microbatch.BatcherConfig
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Workers == 0 && !c.NoWorkers {
		c.Workers = 1 + runtime.GOMAXPROCS(0)
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.Logger == nil {
		c.Logger = discardLogger()
	}
	if c.ErrorLogRate == nil {
		c.ErrorLogRate = defaultErrorLogRates
	}
	return c
}
