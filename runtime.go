package reactor

import (
	"context"
	"fmt"
	"sync"
)

// Runtime is the Powerplant: it owns every reactor, the
// thread pool, the scheduler, the dispatcher, the cache, and the two
// dedicated service threads (Chrono, IOMultiplexer). Lifecycle:
// constructed → Start() runs startup reactions and blocks until
// Shutdown() → Shutdown() signals all workers and drains.
type Runtime struct {
	cfg Config

	cache      *TypedCache
	scheduler  *TaskScheduler
	dispatcher *Dispatcher
	pool       *ThreadPool
	chrono     *Chrono
	ioMux      *IOMultiplexer
	stats      *statsStream
	errLimit   *errorLogLimiter

	state      *fastState
	reactorsMu sync.Mutex
	reactors   []*Reactor

	stopped  chan struct{} // closed when Shutdown completes
	stopOnce sync.Once

	logger *Logger
}

// New constructs a Runtime from cfg (defaults filled via
// Config.WithDefaults). The Runtime does not start any thread until
// Start is called.
func New(cfg Config) *Runtime {
	cfg = cfg.WithDefaults()

	rt := &Runtime{
		cfg:     cfg,
		cache:   NewTypedCache(),
		state:   newFastState(StateAwake),
		stopped: make(chan struct{}),
		logger:  cfg.Logger,
	}

	rt.errLimit = newErrorLogLimiter(cfg.ErrorLogRate)
	rt.scheduler = NewTaskScheduler()
	rt.dispatcher = NewDispatcher(rt.cache, rt.scheduler, rt.errLimit, rt.logger)
	rt.stats = newStatsStream(rt, cfg.StatBatch)
	rt.pool = NewThreadPool(cfg.Workers, rt.scheduler, rt.stats, rt.errLimit, rt.logger)

	if cfg.ChronoEnabled {
		rt.chrono = NewChrono(cfg.Clock, rt.logger)
		rt.pool.RegisterService("chrono", rt.chrono.Run, rt.chrono.Shutdown)
	}
	if cfg.IOEnabled {
		mux, err := NewIOMultiplexer(rt.logger)
		if err != nil {
			rt.logger.Crit().Str("error", err.Error()).Log("io multiplexer: failed to initialize, IO disabled")
		} else {
			rt.ioMux = mux
			rt.pool.RegisterService("io-multiplexer", func() {
				mux.Run()
				if !mux.shutdown.Load() {
					// Run returned on its own: the readiness primitive failed.
					go rt.Shutdown(context.Background())
				}
			}, rt.ioMux.Shutdown)
		}
	}

	return rt
}

// Cache exposes the TypedCache for direct reads/writes outside a
// reaction body (e.g. seeding initial state before Start).
func (rt *Runtime) Cache() *TypedCache { return rt.cache }

// Dispatcher exposes the subscription registry, primarily so words.go
// can call Subscribe[T] at bind time.
func (rt *Runtime) Dispatcher() *Dispatcher { return rt.dispatcher }

// Scheduler exposes the TaskScheduler, primarily for metrics.
func (rt *Runtime) Scheduler() *TaskScheduler { return rt.scheduler }

// Chrono exposes the periodic-event source, or nil if
// Config.ChronoEnabled was false.
func (rt *Runtime) Chrono() *Chrono { return rt.chrono }

// IOMultiplexer exposes the I/O readiness engine, or nil if
// Config.IOEnabled was false (or initialization failed).
func (rt *Runtime) IOMultiplexer() *IOMultiplexer { return rt.ioMux }

// SetNetworkSink installs the external collaborator for Network emits.
func (rt *Runtime) SetNetworkSink(sink NetworkSink) { rt.dispatcher.networkSink = sink }

// SetUDPSink installs the external collaborator for UDP emits.
func (rt *Runtime) SetUDPSink(sink UDPSink) { rt.dispatcher.udpSink = sink }

// Metrics returns a snapshot of the scheduler's latency percentiles.
func (rt *Runtime) Metrics() SchedulerMetricsSnapshot { return rt.scheduler.Metrics() }

// Emit routes v through the dispatcher at the given scope. Emitting a
// Shutdown value — from any scope — is a graceful shutdown request,
// run on a separate goroutine since the emitting task may itself be
// running on a worker that Shutdown needs to drain.
func (rt *Runtime) Emit(scope EmitScope, v any) error {
	if _, ok := v.(Shutdown); ok {
		go rt.Shutdown(context.Background())
		return nil
	}
	if rt.state.Load() == StateTerminated {
		return ErrRuntimeTerminated
	}
	return rt.dispatcher.Emit(rt, scope, v)
}

// installReactor registers a Reactor for cleanup on Shutdown.
func (rt *Runtime) installReactor(r *Reactor) {
	rt.reactorsMu.Lock()
	rt.reactors = append(rt.reactors, r)
	rt.reactorsMu.Unlock()
}

// Start transitions the runtime to Running, starts the worker pool and
// every service thread, flushes queued Initialize emits, then blocks
// the calling goroutine servicing the main-thread queue until Shutdown
// completes. A second call (concurrent or nested) observes the state
// machine's CAS fail and returns an error instead of starting a second
// worker pool.
func (rt *Runtime) Start(ctx context.Context) error {
	if !rt.state.TryTransition(StateAwake, StateRunning) {
		switch rt.state.Load() {
		case StateRunning, StateTerminating:
			return ErrRuntimeAlreadyRunning
		default:
			return ErrRuntimeTerminated
		}
	}

	rt.pool.Start()
	rt.dispatcher.dispatchLocal(rt, keyOf[Startup](), Startup{})
	rt.dispatcher.MarkRunning(rt)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			rt.Shutdown(context.Background())
		case <-done:
		}
	}()

	rt.pool.RunMain()
	close(done)
	<-rt.stopped
	return nil
}

// Shutdown transitions the runtime to Terminating, unbinds every
// installed Reactor's reactions, stops every service thread and
// worker, and drains the task-statistics batcher. Safe to call more
// than once or concurrently with Start.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if !rt.state.TryTransition(StateRunning, StateTerminating) {
		if rt.state.Load() == StateAwake {
			// never started; still fine to tear down installed reactors.
			rt.state.Store(StateTerminated)
		}
	}

	rt.dispatcher.dispatchDirect(rt, keyOf[Shutdown](), Shutdown{})

	rt.reactorsMu.Lock()
	reactors := rt.reactors
	rt.reactors = nil
	rt.reactorsMu.Unlock()
	for _, r := range reactors {
		r.destroy()
	}

	rt.pool.Shutdown()
	rt.stats.shutdown()
	rt.state.Store(StateTerminated)
	rt.stopOnce.Do(func() { close(rt.stopped) })
	return nil
}

// String aids debugging/log lines.
func (rt *Runtime) String() string {
	return fmt.Sprintf("Runtime{state=%s}", rt.state.Load())
}
