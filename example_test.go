package reactor_test

import (
	"context"
	"fmt"

	reactor "github.com/corewave/reactor"
)

// Example_basicUsage demonstrates binding a reaction to a type and
// emitting a value directly, bypassing the scheduler so the callback
// runs inline before Emit returns.
func Example_basicUsage() {
	rt := reactor.New(reactor.Config{NoWorkers: true})

	type Greeting struct{ Name string }

	greeter := reactor.NewReactor(rt, "greeter")
	greeter.On(reactor.Trigger[Greeting]()).Then("say-hello", func(args []any) {
		fmt.Printf("Hello, %s!\n", args[0].(Greeting).Name)
	})

	rt.Emit(reactor.Direct, Greeting{Name: "World"})

	// Output:
	// Hello, World!
}

// Example_history demonstrates Last<N>, which supplies a reaction with
// the most recent N values of a type alongside the triggering value.
func Example_history() {
	rt := reactor.New(reactor.Config{NoWorkers: true})

	type Tick struct{ N int }

	r := reactor.NewReactor(rt, "history")
	r.On(reactor.Trigger[Tick](), reactor.Last[Tick](3)).Then("print-history", func(args []any) {
		var ns []int
		for _, tk := range args[1].([]Tick) {
			ns = append(ns, tk.N)
		}
		fmt.Println(ns)
	})

	for i := 1; i <= 5; i++ {
		rt.Emit(reactor.Direct, Tick{N: i})
	}

	// Output:
	// [1]
	// [1 2]
	// [1 2 3]
	// [2 3 4]
	// [3 4 5]
}

// Example_startupAndShutdown demonstrates the Startup/Shutdown
// lifecycle words: Start runs every Startup-bound reaction once, then
// blocks the caller until a Shutdown is requested.
func Example_startupAndShutdown() {
	rt := reactor.New(reactor.Config{NoWorkers: true})

	app := reactor.NewReactor(rt, "app")
	app.On(reactor.StartupWord(), reactor.MainThread()).Then("on-startup", func([]any) {
		fmt.Println("started")
		rt.Emit(reactor.Local, reactor.Shutdown{})
	})
	app.On(reactor.ShutdownWord(), reactor.MainThread()).Then("on-shutdown", func([]any) {
		fmt.Println("shutting down")
	})

	rt.Start(context.Background())
	fmt.Println("stopped")

	// Output:
	// started
	// shutting down
	// stopped
}
