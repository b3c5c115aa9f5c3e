package reactor

import "sync"

// Reactor is the user-extensible base type: a reference to the
// runtime, a name, and a list of reaction handles for cleanup. Embed
// it in a domain type and call On(...).Then(...) to register
// reactions; Runtime.Shutdown destroys the Reactor, unbinding every
// reaction it owns.
type Reactor struct {
	rt   *Runtime
	name string

	mu        sync.Mutex
	reactions []*Reaction
}

// NewReactor constructs a Reactor named name, owned by rt, and
// registers it with rt for cleanup on Shutdown.
func NewReactor(rt *Runtime, name string) *Reactor {
	r := &Reactor{rt: rt, name: name}
	rt.installReactor(r)
	return r
}

// Runtime returns the owning Runtime, for reaction bodies that need to
// Emit or read the Cache directly.
func (x *Reactor) Runtime() *Runtime { return x.rt }

// Name is this Reactor's human-readable identity, used to build each
// of its reactions' labels.
func (x *Reactor) Name() string { return x.name }

// own records a reaction built by On(...).Then(...) so destroy can
// unbind it later; called by Binding.Then in words.go.
func (x *Reactor) own(r *Reaction) {
	x.mu.Lock()
	x.reactions = append(x.reactions, r)
	x.mu.Unlock()
}

// destroy unbinds every reaction this Reactor owns. In-flight tasks continue; no new ones start.
func (x *Reactor) destroy() {
	x.mu.Lock()
	reactions := x.reactions
	x.reactions = nil
	x.mu.Unlock()
	for _, r := range reactions {
		r.Unbind()
	}
}
