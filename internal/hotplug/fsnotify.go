package hotplug

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// inotifyEventHeaderSize is the fixed portion of struct inotify_event
// (wd, mask, cookie, len) preceding its variable-length, NUL-padded name.
const inotifyEventHeaderSize = 16

// inotifySource is the fallback hot-plug backend: an inotify watch on /dev
// for create/remove events, used when the netlink socket cannot be created
// or bound. unix.InotifyInit1 hands back a genuinely pollable fd, so this
// registers directly with the readiness facility like every other source —
// no relay goroutine, no self-pipe.
type inotifySource struct {
	fd int
	wd int

	pending []Event
}

// openFSNotify opens an inotify instance watching /dev for file creation
// and removal.
func openFSNotify() (Source, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}

	wd, err := unix.InotifyAddWatch(fd, "/dev", unix.IN_CREATE|unix.IN_DELETE|unix.IN_MOVED_FROM|unix.IN_MOVED_TO)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch /dev: %w", err)
	}

	return &inotifySource{fd: fd, wd: wd}, nil
}

// Fd returns the inotify instance's fd for registration with the readiness
// facility.
func (s *inotifySource) Fd() int { return s.fd }

func (s *inotifySource) Close() error {
	unix.InotifyRmWatch(s.fd, uint32(s.wd))
	return unix.Close(s.fd)
}

// Read drains whatever inotify events are currently available, queues the
// ones matching a watched tty prefix, and returns the first queued event.
// Subsequent calls drain the queue before reading the fd again.
func (s *inotifySource) Read() (Event, bool, error) {
	if len(s.pending) == 0 {
		if err := s.fill(); err != nil {
			return Event{}, false, err
		}
	}
	if len(s.pending) == 0 {
		return Event{}, false, nil
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true, nil
}

// fill reads one batch of raw inotify events off the fd and appends the
// ones matching a watched tty prefix to s.pending.
func (s *inotifySource) fill() error {
	var buf [4096]byte
	n, err := unix.Read(s.fd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("read inotify fd: %w", err)
	}
	s.pending = append(s.pending, parseInotifyBuf(buf[:n])...)
	return nil
}

// parseInotifyBuf walks a raw buffer of back-to-back struct inotify_event
// records and returns the subset naming a watched tty device.
func parseInotifyBuf(buf []byte) []Event {
	var events []Event
	for off := 0; off+inotifyEventHeaderSize <= len(buf); {
		mask := binary.LittleEndian.Uint32(buf[off+4 : off+8])
		nameLen := int(binary.LittleEndian.Uint32(buf[off+12 : off+16]))
		nameStart := off + inotifyEventHeaderSize
		nameEnd := nameStart + nameLen
		if nameEnd > len(buf) {
			break
		}
		name := cString(buf[nameStart:nameEnd])
		off = nameEnd

		if name == "" || !matchesWatchedPrefix(name) {
			continue
		}
		devPath := filepath.Join("/dev", name)
		switch {
		case mask&unix.IN_CREATE != 0 || mask&unix.IN_MOVED_TO != 0:
			events = append(events, Event{Action: ADD, DevName: name, DevPath: devPath})
		case mask&unix.IN_DELETE != 0 || mask&unix.IN_MOVED_FROM != 0:
			events = append(events, Event{Action: REMOVE, DevName: name, DevPath: devPath})
		}
	}
	return events
}

// cString trims the NUL padding struct inotify_event fills the name field
// out to.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
