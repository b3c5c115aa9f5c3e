package reactor

import (
	"reflect"
	"sync"
)

// EmitScope selects how an emitted value is delivered.
type EmitScope int

const (
	// Local is the normal path: store in TypedCache, then schedule
	// every matching subscriber's task through the TaskScheduler.
	Local EmitScope = iota
	// Direct bypasses the scheduler entirely; the emitting goroutine
	// runs every matching subscriber inline before the emit returns.
	Direct
	// Initialize behaves like Local, but is queued until the runtime
	// finishes its startup phase.
	Initialize
	// Network hands the value to the external NetworkSink collaborator.
	Network
	// UDP hands the value to the external UDPSink collaborator.
	UDP
)

func (s EmitScope) String() string {
	switch s {
	case Local:
		return "Local"
	case Direct:
		return "Direct"
	case Initialize:
		return "Initialize"
	case Network:
		return "Network"
	case UDP:
		return "UDP"
	default:
		return "EmitScope(?)"
	}
}

// NetworkSink and UDPSink are the external collaborators a Runtime
// plugs in to give the Network/UDP emit scopes somewhere to go. With
// neither configured, a Network or UDP emit is dropped silently
// (logged at Debug) rather than treated as an error.
type NetworkSink interface{ Send(v any) error }
type UDPSink interface{ Send(v any) error }

type pendingEmit struct {
	key typeKey
	v   any
}

// Dispatcher is the subscription registry and emit router.
// One Dispatcher is owned per Runtime.
type Dispatcher struct {
	cache     *TypedCache
	scheduler *TaskScheduler
	errLimit  *errorLogLimiter
	logger    *Logger

	mu   sync.RWMutex
	subs map[typeKey][]*Reaction

	initMu  sync.Mutex
	running bool
	pending []pendingEmit

	networkSink NetworkSink
	udpSink     UDPSink
}

// NewDispatcher constructs a Dispatcher bound to cache and scheduler.
func NewDispatcher(cache *TypedCache, scheduler *TaskScheduler, errLimit *errorLogLimiter, logger *Logger) *Dispatcher {
	if logger == nil {
		logger = discardLogger()
	}
	return &Dispatcher{
		cache:     cache,
		scheduler: scheduler,
		errLimit:  errLimit,
		logger:    logger,
		subs:      make(map[typeKey][]*Reaction),
	}
}

// Subscribe registers r as a consumer of type T's subscription table.
// Returns an unsubscribe func suitable for Reaction.unbind.
func Subscribe[T any](d *Dispatcher, r *Reaction) func() {
	key := keyOf[T]()
	d.mu.Lock()
	d.subs[key] = append(d.subs[key], r)
	d.mu.Unlock()
	return func() { d.unsubscribeFrom(key, r) }
}

func (d *Dispatcher) unsubscribeFrom(key typeKey, r *Reaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.subs[key]
	for i, sub := range list {
		if sub == r {
			// preserve registration order for the reactions that remain.
			d.subs[key] = append(append([]*Reaction{}, list[:i]...), list[i+1:]...)
			return
		}
	}
}

// MarkRunning flushes every emit queued for the Initialize scope as a
// Local emit, then switches future Initialize emits to deliver
// immediately, once startup has completed.
func (d *Dispatcher) MarkRunning(rt *Runtime) {
	d.initMu.Lock()
	queued := d.pending
	d.pending = nil
	d.running = true
	d.initMu.Unlock()

	for _, pe := range queued {
		d.dispatchLocal(rt, pe.key, pe.v)
	}
}

// Emit routes v according to scope. The dynamic type of v
// determines its TypedCache slot and subscription list.
func (d *Dispatcher) Emit(rt *Runtime, scope EmitScope, v any) error {
	key := reflect.TypeOf(v)

	switch scope {
	case Local:
		d.dispatchLocal(rt, key, v)
		return nil

	case Direct:
		d.dispatchDirect(rt, key, v)
		return nil

	case Initialize:
		d.initMu.Lock()
		if d.running {
			d.initMu.Unlock()
			d.dispatchLocal(rt, key, v)
			return nil
		}
		d.pending = append(d.pending, pendingEmit{key: key, v: v})
		d.initMu.Unlock()
		return nil

	case Network:
		if d.networkSink == nil {
			d.logger.Debug().Log("dispatcher: Network emit dropped, no sink configured")
			return nil
		}
		return d.networkSink.Send(v)

	case UDP:
		if d.udpSink == nil {
			d.logger.Debug().Log("dispatcher: UDP emit dropped, no sink configured")
			return nil
		}
		return d.udpSink.Send(v)

	default:
		return nil
	}
}

// dispatchLocal stores v as the type's latest cached value, then
// offers every subscriber a chance to generate a task.
func (d *Dispatcher) dispatchLocal(rt *Runtime, key typeKey, v any) {
	d.cache.slotFor(key).set(v)

	subs := d.snapshotSubs(key)
	for _, r := range subs {
		tc := acquireTaskContext()
		priority, runnable, ok := r.generate(rt, tc)
		releaseTaskContext(tc)
		if !ok {
			continue
		}
		task := r.buildTask(rt, priority, runnable)
		if task == nil {
			continue // reschedule suppressed the task
		}
		if err := d.scheduler.Submit(task); err != nil {
			d.logger.Debug().Str("reaction", r.Label()).Log("dispatcher: submit rejected, runtime shutting down")
		}
	}
}

// dispatchDirect runs every matching subscriber inline, synchronously,
// on the calling goroutine.
func (d *Dispatcher) dispatchDirect(rt *Runtime, key typeKey, v any) {
	d.cache.slotFor(key).set(v)

	subs := d.snapshotSubs(key)
	for _, r := range subs {
		tc := acquireTaskContext()
		priority, runnable, ok := r.generate(rt, tc)
		releaseTaskContext(tc)
		if !ok {
			continue
		}
		task := r.buildTask(rt, priority, runnable)
		if task == nil {
			continue
		}
		task.started = timeNow()
		task.run(d.errLimit, d.logger)
		task.ended = timeNow()
		d.scheduler.metrics.observe(task)
	}
}

// snapshotSubs copies the current subscriber list for key under a
// read lock, so that a concurrent Subscribe/Unsubscribe mid-emit
// cannot race the iteration.
func (d *Dispatcher) snapshotSubs(key typeKey) []*Reaction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	list := d.subs[key]
	out := make([]*Reaction, len(list))
	copy(out, list)
	return out
}
