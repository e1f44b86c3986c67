package hotplug

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// ueventBufSize bounds a single netlink uevent datagram read.
const ueventBufSize = 2048

// netlinkSource is the primary hot-plug backend: a non-blocking datagram
// socket bound to the kernel uevent multicast group.
type netlinkSource struct {
	fd int
}

// openNetlink creates and binds the uevent netlink socket.
func openNetlink() (Source, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("create netlink socket: %w", err)
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind netlink socket: %w", err)
	}
	return &netlinkSource{fd: fd}, nil
}

func (s *netlinkSource) Fd() int { return s.fd }

func (s *netlinkSource) Close() error {
	return unix.Close(s.fd)
}

// Read reads one datagram and parses it into an Event if it matches a
// watched tty ADD/REMOVE uevent.
func (s *netlinkSource) Read() (Event, bool, error) {
	buf := make([]byte, ueventBufSize)
	n, err := unix.Read(s.fd, buf)
	if err != nil {
		if err == unix.EAGAIN {
			return Event{}, false, nil
		}
		return Event{}, false, err
	}
	if n <= 0 {
		return Event{}, false, nil
	}
	return parseUevent(buf[:n])
}

// parseUevent splits a netlink uevent datagram into NUL-terminated
// KEY=VALUE fields and extracts ACTION/SUBSYSTEM/DEVNAME.
func parseUevent(data []byte) (Event, bool, error) {
	var action, subsystem, devname string
	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}
		s := string(field)
		idx := strings.IndexByte(s, '=')
		if idx < 0 {
			continue
		}
		key, value := s[:idx], s[idx+1:]
		switch key {
		case "ACTION":
			action = value
		case "SUBSYSTEM":
			subsystem = value
		case "DEVNAME":
			devname = value
		}
	}

	if subsystem != "tty" || !matchesWatchedPrefix(devname) {
		return Event{}, false, nil
	}

	var act Action
	switch action {
	case "add":
		act = ADD
	case "remove":
		act = REMOVE
	default:
		return Event{}, false, nil
	}

	return Event{Action: act, DevName: devname, DevPath: "/dev/" + devname}, true, nil
}
