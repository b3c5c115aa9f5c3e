package reactor

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ioBinding is an IOMultiplexer.Task: a bound fd, the
// interest mask a reaction registered for, and the callback that
// builds and submits its ReactionTask on readiness.
type ioBinding struct {
	fd         int
	events     IOEvents
	reactionID uint64
	submit     func(IOEvents)
}

// IOMultiplexer translates file-descriptor readiness into reaction
// tasks. Binding/unbinding only ever touches an in-memory
// sorted list and flips a dirty flag; the dedicated poll thread is the
// sole writer of the underlying epoll/kqueue registration, reconciling
// it with the binding list whenever woken.
type IOMultiplexer struct {
	poller *fastPoller

	mu       sync.Mutex
	bindings []ioBinding // sorted by fd, for equal-range lookup
	registry map[int]IOEvents // fd -> currently-registered mask with the poller

	dirty    atomic.Bool
	shutdown atomic.Bool

	wakeReadFD, wakeWriteFD int

	logger *Logger
	done   chan struct{}
}

// NewIOMultiplexer constructs the poll engine and its wake pipe; call
// Run in a dedicated goroutine to start the service thread, outside
// the ordinary worker pool.
func NewIOMultiplexer(logger *Logger) (*IOMultiplexer, error) {
	if logger == nil {
		logger = discardLogger()
	}
	poller, err := newFastPoller()
	if err != nil {
		return nil, err
	}
	readFD, writeFD, err := createWakeFd()
	if err != nil {
		_ = poller.Close()
		return nil, err
	}

	m := &IOMultiplexer{
		poller:      poller,
		registry:    make(map[int]IOEvents),
		wakeReadFD:  readFD,
		wakeWriteFD: writeFD,
		logger:      logger,
		done:        make(chan struct{}),
	}

	if readFD >= 0 {
		if err := poller.RegisterFD(readFD, EventRead, func(IOEvents) {
			drainWake(m.wakeReadFD)
		}); err != nil {
			_ = poller.Close()
			closeWakeFd(readFD, writeFD)
			return nil, err
		}
	}

	return m, nil
}

// Bind registers fd with events under reactionID; submit is invoked
// (with the readiness mask) whenever fd becomes ready and events
// intersects it.
func (m *IOMultiplexer) Bind(fd int, events IOEvents, reactionID uint64, submit func(IOEvents)) error {
	if m.shutdown.Load() {
		return ErrPollerClosed
	}
	if fd < 0 {
		return ErrFDOutOfRange
	}

	m.mu.Lock()
	for _, b := range m.bindings {
		if b.fd == fd && b.reactionID == reactionID {
			m.mu.Unlock()
			return ErrFDAlreadyRegistered
		}
	}
	m.bindings = append(m.bindings, ioBinding{fd: fd, events: events, reactionID: reactionID, submit: submit})
	sort.Slice(m.bindings, func(i, j int) bool { return m.bindings[i].fd < m.bindings[j].fd })
	m.mu.Unlock()

	m.dirty.Store(true)
	m.wake()
	return nil
}

// Unbind removes every binding owned by reactionID.
func (m *IOMultiplexer) Unbind(reactionID uint64) {
	m.mu.Lock()
	kept := m.bindings[:0]
	for _, b := range m.bindings {
		if b.reactionID != reactionID {
			kept = append(kept, b)
		}
	}
	m.bindings = kept
	m.mu.Unlock()

	m.dirty.Store(true)
	m.wake()
}

func (m *IOMultiplexer) wake() {
	if m.wakeWriteFD >= 0 {
		signalWake(m.wakeWriteFD)
	}
}

// Run is the IOMultiplexer's dedicated thread main loop:
// reconcile the poller registration with the binding list whenever
// dirty, then block in the readiness primitive until woken.
func (m *IOMultiplexer) Run() {
	defer close(m.done)
	for {
		if m.shutdown.Load() {
			return
		}
		if m.dirty.CompareAndSwap(true, false) {
			m.rebuild()
		}

		if _, err := m.poller.PollIO(-1); err != nil {
			m.logger.Crit().Str("error", err.Error()).Log("io multiplexer: readiness primitive failed")
			return
		}
	}
}

// rebuild reconciles the kernel-side poller registration with the
// current binding list, merging multiple reactions' interest on the
// same fd into a single registration.
func (m *IOMultiplexer) rebuild() {
	m.mu.Lock()
	desired := make(map[int]IOEvents, len(m.bindings))
	for _, b := range m.bindings {
		desired[b.fd] |= b.events
	}
	m.mu.Unlock()

	for fd, mask := range desired {
		if fd == m.wakeReadFD {
			continue
		}
		cur, ok := m.registry[fd]
		switch {
		case !ok:
			if err := m.poller.RegisterFD(fd, mask, m.dispatchFor(fd)); err != nil {
				m.logger.Err().Int("fd", fd).Str("error", err.Error()).Log("io multiplexer: register failed")
				continue
			}
			m.registry[fd] = mask
		case cur != mask:
			if err := m.poller.ModifyFD(fd, mask); err != nil {
				m.logger.Err().Int("fd", fd).Str("error", err.Error()).Log("io multiplexer: modify failed")
				continue
			}
			m.registry[fd] = mask
		}
	}
	for fd := range m.registry {
		if fd == m.wakeReadFD {
			continue
		}
		if _, ok := desired[fd]; !ok {
			_ = m.poller.UnregisterFD(fd)
			delete(m.registry, fd)
		}
	}
}

// dispatchFor returns the poller callback for fd: an equal-range
// lookup over the binding list, dispatching to every entry whose
// interest mask intersects the reported events. A fd reporting
// readiness with zero matching entries (stale, raced with an Unbind)
// marks the multiplexer dirty rather than erroring — bind/unbind
// races are tolerated, not treated as faults (Open Question, resolved
// in DESIGN.md).
func (m *IOMultiplexer) dispatchFor(fd int) IOCallback {
	return func(events IOEvents) {
		m.mu.Lock()
		i := sort.Search(len(m.bindings), func(i int) bool { return m.bindings[i].fd >= fd })
		var matched []ioBinding
		for ; i < len(m.bindings) && m.bindings[i].fd == fd; i++ {
			if m.bindings[i].events&events != 0 {
				matched = append(matched, m.bindings[i])
			}
		}
		m.mu.Unlock()

		if len(matched) == 0 {
			m.dirty.Store(true)
			return
		}
		for _, b := range matched {
			m.safeSubmit(b, events)
		}
	}
}

func (m *IOMultiplexer) safeSubmit(b ioBinding, events IOEvents) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Err().Int("fd", b.fd).Log("io multiplexer: submit callback panicked")
		}
	}()
	b.submit(events)
}

// Shutdown stops the poll thread and releases the underlying poller
// and wake pipe.
func (m *IOMultiplexer) Shutdown() {
	if !m.shutdown.CompareAndSwap(false, true) {
		return
	}
	m.wake()
	<-m.done
	_ = m.poller.Close()
	closeWakeFd(m.wakeReadFD, m.wakeWriteFD)
}
