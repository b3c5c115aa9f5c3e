package reactor

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIOMultiplexerFiresOnReadiness verifies the basic readiness flow: bind a
// reaction to a pipe's read end for READ events, write a byte, and
// expect at least one fire (readiness is level-triggered, so the count
// can keep growing until the byte is drained); after Unbind, a second
// write must not fire.
func TestIOMultiplexerFiresOnReadiness(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	m, err := NewIOMultiplexer(nil)
	require.NoError(t, err)
	go m.Run()
	defer m.Shutdown()

	var mu sync.Mutex
	fires := 0
	const reactionID = 1
	require.NoError(t, m.Bind(int(r.Fd()), EventRead, reactionID, func(IOEvents) {
		mu.Lock()
		fires++
		mu.Unlock()
	}))

	_, err = w.Write([]byte{1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fires >= 1
	}, time.Second, time.Millisecond)

	// Drain so the fd stops reporting readiness before we assert the
	// steady-state fire count.
	buf := make([]byte, 1)
	_, _ = r.Read(buf)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	steady := fires
	mu.Unlock()

	m.Unbind(reactionID)
	time.Sleep(20 * time.Millisecond)

	_, err = w.Write([]byte{2})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, steady, fires, "unbound fd must not fire again")
}

func TestIOMultiplexerBindRejectsDuplicateReactionOnSameFD(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	m, err := NewIOMultiplexer(nil)
	require.NoError(t, err)
	defer m.Shutdown()
	go m.Run()

	require.NoError(t, m.Bind(int(r.Fd()), EventRead, 1, func(IOEvents) {}))
	assert.ErrorIs(t, m.Bind(int(r.Fd()), EventRead, 1, func(IOEvents) {}), ErrFDAlreadyRegistered)
}

func TestIOMultiplexerBindRejectsNegativeFD(t *testing.T) {
	m, err := NewIOMultiplexer(nil)
	require.NoError(t, err)
	defer m.Shutdown()
	go m.Run()

	assert.ErrorIs(t, m.Bind(-1, EventRead, 1, func(IOEvents) {}), ErrFDOutOfRange)
}

func TestIOMultiplexerShutdownRejectsBind(t *testing.T) {
	m, err := NewIOMultiplexer(nil)
	require.NoError(t, err)
	go m.Run()
	m.Shutdown()

	assert.ErrorIs(t, m.Bind(0, EventRead, 1, func(IOEvents) {}), ErrPollerClosed)
}
