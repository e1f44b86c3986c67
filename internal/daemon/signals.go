package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// signalSource bridges os/signal delivery into the readiness facility via
// a self-pipe: a relay goroutine writes each signal's number as one byte
// into the pipe, and the read end is registered with epoll like any other
// source. The relay touches nothing but the pipe, so the port table and
// all other daemon state stay confined to the main loop's thread.
type signalSource struct {
	readFd  int
	writeFd int
	ch      chan os.Signal
}

// newSignalSource subscribes to TERM/INT/HUP and starts the pipe relay.
func newSignalSource() (*signalSource, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("signal pipe: %w", err)
	}

	s := &signalSource{readFd: fds[0], writeFd: fds[1], ch: make(chan os.Signal, 8)}
	signal.Notify(s.ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	go func() {
		for sig := range s.ch {
			num, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			// A full pipe means signals are already pending unread;
			// dropping the byte loses nothing the reader hasn't seen.
			unix.Write(s.writeFd, []byte{byte(num)})
		}
	}()
	return s, nil
}

// Fd returns the pipe's read end for registration with the readiness
// facility.
func (s *signalSource) Fd() int { return s.readFd }

// Close unsubscribes and closes both pipe ends.
func (s *signalSource) Close() error {
	signal.Stop(s.ch)
	close(s.ch)
	unix.Close(s.writeFd)
	return unix.Close(s.readFd)
}

// signalKind identifies which of the three watched signals fired.
type signalKind int

const (
	signalNone signalKind = iota
	signalTerm
	signalInt
	signalHup
)

// Read drains one pending signal byte from the pipe and reports which
// signal it carried.
func (s *signalSource) Read() (signalKind, error) {
	buf := make([]byte, 1)
	n, err := unix.Read(s.readFd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return signalNone, nil
		}
		return signalNone, err
	}
	if n < 1 {
		return signalNone, nil
	}
	switch syscall.Signal(buf[0]) {
	case syscall.SIGTERM:
		return signalTerm, nil
	case syscall.SIGINT:
		return signalInt, nil
	case syscall.SIGHUP:
		return signalHup, nil
	default:
		return signalNone, nil
	}
}
