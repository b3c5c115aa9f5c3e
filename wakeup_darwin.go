//go:build darwin

package reactor

import "syscall"

// createWakeFd creates a self-pipe used to interrupt a blocked kevent
// wait when a new fd is bound or the multiplexer is shutting down.
func createWakeFd() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func closeWakeFd(readFD, writeFD int) {
	if readFD >= 0 {
		_ = syscall.Close(readFD)
	}
	if writeFD >= 0 && writeFD != readFD {
		_ = syscall.Close(writeFD)
	}
}

func signalWake(writeFD int) {
	var buf [1]byte
	_, _ = syscall.Write(writeFD, buf[:])
}

func drainWake(readFD int) {
	var buf [64]byte
	for {
		n, err := syscall.Read(readFD, buf[:])
		if err != nil || n <= 0 {
			return
		}
	}
}
