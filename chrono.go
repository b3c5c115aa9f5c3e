package reactor

import (
	"sync"
	"time"
)

// chronoEntry is one registered emitter within a Step: a key used for idempotent re-registration, plus the
// callback to invoke on fire.
type chronoEntry struct {
	key  any
	emit func(time.Time)
}

// chronoStep groups every emitter sharing a single period, so
// Every<1000ms> and Every<1s> coalesce into one scheduling slot.
type chronoStep struct {
	period  time.Duration
	next    time.Time
	entries []chronoEntry
}

// Chrono is the periodic-event source: a single dedicated thread
// maintaining a set of Steps, sleeping until the nearest one's next
// fire time.
type Chrono struct {
	clock Clock

	mu       sync.Mutex
	steps    map[time.Duration]*chronoStep
	wake     chan struct{}
	shutdown bool
	done     chan struct{}

	logger *Logger
}

// NewChrono constructs a Chrono bound to clock; call Run in its own
// goroutine to start the dedicated thread.
func NewChrono(clock Clock, logger *Logger) *Chrono {
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Chrono{
		clock:  clock,
		steps:  make(map[time.Duration]*chronoStep),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Register adds emit to the Step for period, creating the Step (and
// seeding its first-fire time, ticks periods from now — ticks=0 fires
// immediately, then every period) if this is the first registration
// at this period. Registration is idempotent per (period, key) pair.
func (c *Chrono) Register(period time.Duration, ticks int, key any, emit func(time.Time)) error {
	if period <= 0 {
		period = time.Millisecond
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrChronoClosed
	}

	step, ok := c.steps[period]
	if !ok {
		step = &chronoStep{
			period: period,
			next:   c.clock.Now().Add(time.Duration(ticks) * period),
		}
		c.steps[period] = step
	} else {
		for _, e := range step.entries {
			if e.key == key {
				c.mu.Unlock()
				return nil // idempotent no-op
			}
		}
	}
	step.entries = append(step.entries, chronoEntry{key: key, emit: emit})
	c.mu.Unlock()

	c.wakeLocked()
	return nil
}

// Unregister removes the entry matching key from period's Step, if any.
func (c *Chrono) Unregister(period time.Duration, key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step, ok := c.steps[period]
	if !ok {
		return
	}
	for i, e := range step.entries {
		if e.key == key {
			step.entries = append(step.entries[:i], step.entries[i+1:]...)
			break
		}
	}
	if len(step.entries) == 0 {
		delete(c.steps, period)
	}
}

func (c *Chrono) wakeLocked() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run is the Chrono thread's main loop; it blocks until Shutdown is
// called.
func (c *Chrono) Run() {
	defer close(c.done)
	for {
		c.mu.Lock()
		if c.shutdown {
			c.mu.Unlock()
			return
		}
		delay, hasSteps := c.nextDelayLocked()
		c.mu.Unlock()

		if !hasSteps {
			<-c.wake
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
		}

		c.fireExpired()
	}
}

// nextDelayLocked returns the duration to sleep until the nearest
// Step's next fire time; caller must hold c.mu.
func (c *Chrono) nextDelayLocked() (time.Duration, bool) {
	if len(c.steps) == 0 {
		return 0, false
	}
	now := c.clock.Now()
	var earliest time.Time
	for _, s := range c.steps {
		if earliest.IsZero() || s.next.Before(earliest) {
			earliest = s.next
		}
	}
	d := earliest.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// fireExpired invokes every Step whose next fire time has passed, then
// advances it; a Step that was preempted past multiple periods skips
// forward so next stays strictly after now, preventing tick flooding
// after a suspend.
func (c *Chrono) fireExpired() {
	now := c.clock.Now()

	c.mu.Lock()
	type firing struct {
		entries []chronoEntry
		at      time.Time
	}
	var toFire []firing
	for _, s := range c.steps {
		if s.next.After(now) {
			continue
		}
		at := s.next
		entries := make([]chronoEntry, len(s.entries))
		copy(entries, s.entries)
		toFire = append(toFire, firing{entries: entries, at: at})

		for !s.next.After(now) {
			s.next = s.next.Add(s.period)
		}
	}
	c.mu.Unlock()

	for _, f := range toFire {
		for _, e := range f.entries {
			c.safeInvoke(e, f.at)
		}
	}
}

func (c *Chrono) safeInvoke(e chronoEntry, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Err().Log("chrono: emitter panicked")
		}
	}()
	e.emit(at)
}

// Shutdown stops the Chrono thread and waits for Run to return.
func (c *Chrono) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.shutdown = true
	c.mu.Unlock()
	c.wakeLocked()
	<-c.done
}
