//go:build !linux && !darwin

package reactor

// createWakeFd has no native fd-based implementation on this
// platform; IOMultiplexer's poll loop only ever sleeps in bounded
// increments (see poller_other.go), so no real interrupt mechanism is
// required — these are no-op stand-ins.
func createWakeFd() (readFD, writeFD int, err error) {
	return -1, -1, nil
}

func closeWakeFd(readFD, writeFD int) {}

func signalWake(writeFD int) {}

func drainWake(readFD int) {}
