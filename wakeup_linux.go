//go:build linux

package reactor

import "golang.org/x/sys/unix"

// createWakeFd creates an eventfd used to interrupt a blocked
// EpollWait when a new fd is bound or the multiplexer is shutting down.
// Read and write ends are the same descriptor.
func createWakeFd() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func closeWakeFd(readFD, writeFD int) {
	if readFD >= 0 {
		_ = unix.Close(readFD)
	}
}

func signalWake(writeFD int) {
	var buf [8]byte
	buf[7] = 1
	_, _ = unix.Write(writeFD, buf[:])
}

func drainWake(readFD int) {
	var buf [8]byte
	for {
		if _, err := unix.Read(readFD, buf[:]); err != nil {
			return
		}
	}
}
