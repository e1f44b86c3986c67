// Package notify sends systemd service readiness notifications over the
// sd_notify protocol: a single datagram to the unix socket named by
// NOTIFY_SOCKET, supporting both filesystem and Linux abstract-namespace
// (@-prefixed) socket addresses.
package notify

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Ready sends "READY=1" to the service manager if NOTIFY_SOCKET is set. It
// is a no-op, returning nil, when the daemon is not running under a
// service manager.
func Ready() error {
	return send("READY=1")
}

// Stopping sends "STOPPING=1" to the service manager if NOTIFY_SOCKET is
// set.
func Stopping() error {
	return send("STOPPING=1")
}

// send writes msg as a single datagram to NOTIFY_SOCKET, translating a
// leading '@' into the abstract-namespace convention (a NUL byte in place
// of the '@').
func send(msg string) error {
	path := os.Getenv("NOTIFY_SOCKET")
	if path == "" {
		return nil
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("create notify socket: %w", err)
	}
	defer unix.Close(fd)

	// SockaddrUnix maps a leading '@' to the abstract-namespace NUL, so
	// both socket address forms systemd hands out work unmodified.
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		return fmt.Errorf("connect to %s: %w", path, err)
	}
	if err := unix.Send(fd, []byte(msg), 0); err != nil {
		return fmt.Errorf("send to %s: %w", path, err)
	}
	return nil
}
