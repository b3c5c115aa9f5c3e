package reactor

import "time"

// Word is the minimal binding-DSL adapter: a value that contributes
// some subset of {bind-time side effect, precondition, argument
// provider, post-schedule transform} to a Reaction under construction.
// Rather than an interface with a sprawl of optional methods, each
// Word mutates a shared binder directly — simpler in Go than
// simulating optional interface methods.
type Word interface {
	apply(b *binder)
}

// input is one argument-provider contributed by a Word.
type input struct {
	required bool
	get      func(rt *Runtime, tc *taskContext) (any, bool)
}

// binder accumulates every Word's contribution while On(...).Then(...)
// composes the final Reaction.
type binder struct {
	priority Priority
	syncKey  any
	single   bool
	mainOnly bool

	// subscribe is the bind-time side effect exactly one triggering
	// Word must supply: it registers the reaction with whatever
	// produces its stimulus (Dispatcher, Chrono, or IOMultiplexer) and
	// returns the matching unbind/cleanup func.
	subscribe func(rt *Runtime, r *Reaction) func()

	inputs        []input
	preconditions []func(rt *Runtime, tc *taskContext) bool
}

// Binding is the fluent builder returned by On(...); call Then to
// finish composing and register the Reaction.
type Binding struct {
	reactor *Reactor
	words   []Word
}

// On starts a reaction declaration on reactor: a fluent expression of
// the shape On(WordA, WordB, ...).Then(label, callback).
func (x *Reactor) On(words ...Word) *Binding {
	return &Binding{reactor: x, words: words}
}

// Then composes every bound Word into a Reaction's Generator and
// registers it with the runtime. callback receives the resolved
// arguments in word order; an absent Optional input is passed as nil.
func (b *Binding) Then(label string, callback func(args []any)) (*Reaction, error) {
	bd := &binder{priority: PriorityDefault}
	for _, w := range b.words {
		w.apply(bd)
	}
	if bd.subscribe == nil {
		return nil, ErrNoTriggerWord
	}

	rt := b.reactor.rt
	r := &Reaction{
		id:          nextReactionID(),
		reactorName: b.reactor.name,
		label:       label,
		syncKey:     bd.syncKey,
		single:      bd.single,
	}
	r.enabled.Store(true)

	r.generator = func(rt *Runtime, tc *taskContext) (Priority, func(), bool) {
		for _, pc := range bd.preconditions {
			if !pc(rt, tc) {
				return 0, nil, false
			}
		}
		args := make([]any, len(bd.inputs))
		for i, in := range bd.inputs {
			v, ok := in.get(rt, tc)
			if !ok {
				if in.required {
					rt.logger.Debug().Str("reaction", r.Label()).Int("input", i).Log("reaction skipped, required input missing")
					return 0, nil, false
				}
				v = nil
			}
			args[i] = v
		}
		return bd.priority, func() { callback(args) }, true
	}

	if bd.mainOnly {
		r.reschedule = func(_ *Runtime, t *ReactionTask) *ReactionTask {
			t.mainOnly = true
			return t
		}
	}

	unbind := bd.subscribe(rt, r)
	r.unbind = unbind

	b.reactor.own(r)
	return r, nil
}

// ---------------------------------------------------------------------
// Words
// ---------------------------------------------------------------------

type triggerWord[T any] struct{}

// Trigger schedules the reaction whenever T is emitted (any scope that
// reaches the dispatcher's Local/Direct/Initialize path) and supplies
// the latest T as an argument.
func Trigger[T any]() Word { return triggerWord[T]{} }

func (triggerWord[T]) apply(b *binder) {
	if b.subscribe == nil {
		b.subscribe = func(rt *Runtime, r *Reaction) func() {
			return Subscribe[T](rt.Dispatcher(), r)
		}
	}
	b.inputs = append(b.inputs, input{
		required: true,
		get: func(rt *Runtime, _ *taskContext) (any, bool) {
			v, ok := Latest[T](rt.Cache())
			return v, ok
		},
	})
}

type withWord[T any] struct{}

// With includes the latest T as an argument without scheduling by
// itself: it must be combined with at least one triggering Word.
func With[T any]() Word { return withWord[T]{} }

func (withWord[T]) apply(b *binder) {
	b.inputs = append(b.inputs, input{
		required: true,
		get: func(rt *Runtime, _ *taskContext) (any, bool) {
			v, ok := Latest[T](rt.Cache())
			return v, ok
		},
	})
}

type lastWord[T any] struct{ n int }

// Last includes the most recent n values of T, oldest first; it is always satisfied, even with fewer than n recorded.
func Last[T any](n int) Word { return lastWord[T]{n: n} }

func (w lastWord[T]) apply(b *binder) {
	b.inputs = append(b.inputs, input{
		required: false,
		get: func(rt *Runtime, _ *taskContext) (any, bool) {
			RequireHistory[T](rt.Cache(), w.n)
			return LastN[T](rt.Cache(), w.n), true
		},
	})
}

type optionalWord struct{ inner Word }

// Optional marks inner's contributed inputs as not required, so a
// missing value produces nil rather than skipping the reaction.
func Optional(inner Word) Word { return optionalWord{inner: inner} }

func (w optionalWord) apply(b *binder) {
	tmp := &binder{}
	w.inner.apply(tmp)
	for _, in := range tmp.inputs {
		in.required = false
		b.inputs = append(b.inputs, in)
	}
	b.preconditions = append(b.preconditions, tmp.preconditions...)
	if tmp.subscribe != nil && b.subscribe == nil {
		b.subscribe = tmp.subscribe
	}
}

// Per is sugar for naming a Chrono period inline, giving Every calls
// a `Every(100, Per(seconds))` shape. It returns d unchanged, so
// Every(100, Per(time.Second)) is the same call as
// Every(100, time.Second): first fire 100 seconds after bind, then
// once a second. It does not turn ticks into a rate per period.
func Per(d time.Duration) time.Duration { return d }

type everyWord struct {
	ticks  int
	period time.Duration
}

// Every schedules the reaction periodically: ticks periods from bind
// time for the first fire (ticks=0 fires immediately), then every
// period thereafter. The argument supplied is the firing timestamp.
func Every(ticks int, period time.Duration) Word { return everyWord{ticks: ticks, period: period} }

func (w everyWord) apply(b *binder) {
	b.subscribe = func(rt *Runtime, r *Reaction) func() {
		chrono := rt.Chrono()
		if chrono == nil {
			return func() {}
		}
		if err := chrono.Register(w.period, w.ticks, r, func(at time.Time) {
			submitFromStimulus(rt, r, func(tc *taskContext) {
				tc.chronoTime = at.UnixNano()
				tc.hasChronoTime = true
			})
		}); err != nil {
			rt.logger.Err().Str("reaction", r.Label()).Str("error", err.Error()).Log("every: chrono registration failed")
		}
		return func() { chrono.Unregister(w.period, r) }
	}
	b.inputs = append(b.inputs, input{
		required: true,
		get: func(_ *Runtime, tc *taskContext) (any, bool) {
			if tc == nil || !tc.hasChronoTime {
				return nil, false
			}
			return time.Unix(0, tc.chronoTime), true
		},
	})
}

type ioWord struct {
	fd     int
	events IOEvents
}

// IO schedules the reaction on fd readiness; the argument supplied
// is the IOEvents readiness mask.
func IO(fd int, events IOEvents) Word { return ioWord{fd: fd, events: events} }

func (w ioWord) apply(b *binder) {
	b.subscribe = func(rt *Runtime, r *Reaction) func() {
		mux := rt.IOMultiplexer()
		if mux == nil {
			return func() {}
		}
		if err := mux.Bind(w.fd, w.events, r.ID(), func(events IOEvents) {
			submitFromStimulus(rt, r, func(tc *taskContext) {
				tc.ioEvents = events
				tc.hasIOEvents = true
			})
		}); err != nil {
			rt.logger.Err().Str("reaction", r.Label()).Str("error", err.Error()).Log("io: multiplexer bind failed")
		}
		return func() { mux.Unbind(r.ID()) }
	}
	b.inputs = append(b.inputs, input{
		required: true,
		get: func(_ *Runtime, tc *taskContext) (any, bool) {
			if tc == nil || !tc.hasIOEvents {
				return nil, false
			}
			return tc.ioEvents, true
		},
	})
}

// submitFromStimulus runs a reaction's full generate → buildTask →
// submit pipeline outside the Dispatcher's own emit path, for
// stimuli — Chrono ticks, I/O readiness — that aren't typed emits.
func submitFromStimulus(rt *Runtime, r *Reaction, setTC func(tc *taskContext)) {
	tc := acquireTaskContext()
	setTC(tc)
	priority, runnable, ok := r.generate(rt, tc)
	releaseTaskContext(tc)
	if !ok {
		return
	}
	task := r.buildTask(rt, priority, runnable)
	if task == nil {
		return
	}
	if err := rt.Scheduler().Submit(task); err != nil {
		rt.logger.Debug().Str("reaction", r.Label()).Log("stimulus dropped, scheduler shutting down")
	}
}

// Startup is the synthetic event emitted once when Start begins
// running its reactions.
type Startup struct{}

type startupWord struct{}

// StartupWord returns the Startup Word; exported as a func (not a
// value) to match the other words' call style.
func StartupWord() Word { return startupWord{} }

func (startupWord) apply(b *binder) {
	b.subscribe = func(rt *Runtime, r *Reaction) func() {
		return Subscribe[Startup](rt.Dispatcher(), r)
	}
}

// Shutdown is the synthetic event both subscribed to (as the
// lifecycle-boundary Word, run once during teardown) and emitted (as a
// graceful-shutdown request — see Runtime.Emit).
type Shutdown struct{}

type shutdownWord struct{}

// ShutdownWord returns the Shutdown Word.
func ShutdownWord() Word { return shutdownWord{} }

func (shutdownWord) apply(b *binder) {
	b.subscribe = func(rt *Runtime, r *Reaction) func() {
		return Subscribe[Shutdown](rt.Dispatcher(), r)
	}
}

type mainThreadWord struct{}

// MainThread redirects the reaction's tasks to the main-thread queue.
func MainThread() Word { return mainThreadWord{} }

func (mainThreadWord) apply(b *binder) { b.mainOnly = true }

type syncWord struct{ key any }

// Sync joins the reaction to a mutual-exclusion group keyed by key.
func Sync(key any) Word { return syncWord{key: key} }

func (w syncWord) apply(b *binder) { b.syncKey = w.key }

type singleWord struct{}

// Single drops submissions while one task for this reaction is already
// queued or running.
func Single() Word { return singleWord{} }

func (singleWord) apply(b *binder) { b.single = true }

type priorityWord struct{ p Priority }

// PriorityWord sets the reaction's scheduling priority.
func PriorityWord(p Priority) Word { return priorityWord{p: p} }

func (w priorityWord) apply(b *binder) { b.priority = w.p }
