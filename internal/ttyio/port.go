// Package ttyio opens and configures tty device nodes: raw 8N1 termios at a
// chosen baud for passive (read-only) monitoring, or a read-write open plus
// a PTY pair for proxy mode. The termios dance goes through
// golang.org/x/sys/unix directly, with VMIN=0/VTIME=0 so reads never block
// the epoll core.
package ttyio

import (
	"fmt"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// closedFd marks a descriptor field that has been closed.
const closedFd = -1

// Handle is an open serial device, optionally paired with a PTY for proxy
// mode. It is owned exclusively by the monitored port that created it.
type Handle struct {
	fd        int // the real tty fd; always valid until Close
	ptyMaster int // PTY master fd, or closedFd outside proxy mode
	slavePath string
}

// OpenReadOnly opens path read-only, non-blocking, with no controlling
// terminal, and configures raw 8N1 at baud.
func OpenReadOnly(path string, baud int) (*Handle, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := configureRaw(fd, baud); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}
	return &Handle{fd: fd, ptyMaster: closedFd}, nil
}

// OpenProxy opens path read-write, configures raw 8N1 at baud, attempts to
// mark the device exclusive (best effort), and allocates a PTY pair whose
// slave is configured the same way before the slave fd is closed (retaining
// only its path).
func OpenProxy(path string, baud int) (*Handle, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := configureRaw(fd, baud); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}

	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		// Non-fatal: exclusive access is an advisory nicety, not a
		// correctness requirement.
	}

	master, slave, err := pty.Open()
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("open pty: %w", err)
	}
	slavePath := slave.Name()
	if t, err := unix.IoctlGetTermios(int(slave.Fd()), unix.TCGETS); err == nil {
		applyRaw(t, baud)
		_ = unix.IoctlSetTermios(int(slave.Fd()), unix.TCSETS, t)
	}
	slave.Close()

	masterFd := int(master.Fd())
	if err := unix.SetNonblock(masterFd, true); err != nil {
		master.Close()
		unix.Close(fd)
		return nil, fmt.Errorf("set pty master non-blocking: %w", err)
	}

	return &Handle{fd: fd, ptyMaster: masterFd, slavePath: slavePath}, nil
}

// configureRaw zeroes then applies the raw termios settings to fd.
func configureRaw(fd int, baud int) error {
	t := &unix.Termios{}
	applyRaw(t, baud)
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// applyRaw mutates t in place to a raw 8N1 discipline: input and
// output speed set to baud, control flags enabling 8-bit/receiver/ignore-
// modem-lines, all input/output/local processing cleared, VMIN=0, VTIME=0.
func applyRaw(t *unix.Termios, baud int) {
	speed := baudConstant(baud)
	t.Iflag = 0
	t.Oflag = 0
	t.Lflag = 0
	t.Cflag = speed | unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
}

// Fd returns the real device's file descriptor.
func (h *Handle) Fd() int { return h.fd }

// MasterFd returns the PTY master's file descriptor, or closedFd if this
// handle was not opened in proxy mode.
func (h *Handle) MasterFd() int { return h.ptyMaster }

// SlavePath returns the PTY slave's path ("" outside proxy mode).
func (h *Handle) SlavePath() string { return h.slavePath }

// HasPTY reports whether this handle carries a PTY master.
func (h *Handle) HasPTY() bool { return h.ptyMaster != closedFd }

// Read reads from the real device fd.
func (h *Handle) Read(buf []byte) (int, error) {
	return unix.Read(h.fd, buf)
}

// Write writes to the real device fd (used in proxy mode to forward bytes
// arriving on the PTY master back out to the device).
func (h *Handle) Write(buf []byte) (int, error) {
	return unix.Write(h.fd, buf)
}

// ReadMaster reads from the PTY master fd.
func (h *Handle) ReadMaster(buf []byte) (int, error) {
	return unix.Read(h.ptyMaster, buf)
}

// WriteMaster writes to the PTY master fd, echoing device bytes out to
// whatever holds the PTY slave open.
func (h *Handle) WriteMaster(buf []byte) (int, error) {
	if h.ptyMaster == closedFd {
		return 0, nil
	}
	return unix.Write(h.ptyMaster, buf)
}

// Close is idempotent: it closes the PTY master (if present) then the real
// fd, reverting both fields to closedFd.
func (h *Handle) Close() error {
	var err error
	if h.ptyMaster != closedFd {
		if e := unix.Close(h.ptyMaster); e != nil {
			err = e
		}
		h.ptyMaster = closedFd
	}
	if h.fd != closedFd {
		if e := unix.Close(h.fd); e != nil {
			err = e
		}
		h.fd = closedFd
	}
	h.slavePath = ""
	return err
}
