// Package reactor implements a reactive, in-process runtime for composing
// concurrent software out of independent modules ("reactors") that react
// to typed events.
//
// The runtime owns a worker thread pool (ThreadPool), a priority and
// mutual-exclusion aware task scheduler (TaskScheduler), a typed value
// cache (TypedCache) feeding reactions with their latest or historical
// data, a clock-driven periodic event source (Chrono), and an I/O
// readiness multiplexer (IOMultiplexer) that turns file descriptor
// events into scheduled tasks.
//
// # Quick start
//
//	rt := reactor.New(reactor.Config{Workers: 4, ChronoEnabled: true})
//
//	type Tick struct{ N int }
//
//	react := reactor.NewReactor(rt, "ticker")
//	react.On(reactor.Trigger[Tick]()).Then("log-tick", func(args []any) {
//		fmt.Println("tick", args[0].(Tick).N)
//	})
//
//	go rt.Start(context.Background())
//	rt.Emit(reactor.Local, Tick{N: 1})
//	rt.Shutdown(context.Background())
//
// The declaration surface seen by user code is intentionally minimal:
// words.go implements just enough of the fluent On(...).Then(...)
// pipeline to bind and test the core end to end. A richer compile-time
// DSL is expected to be layered on top, consuming Reaction and Runtime
// exactly as words.go does.
package reactor
