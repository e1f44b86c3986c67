package daemon

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readinessFacility wraps a Linux epoll instance: the event core's single
// blocking call. Every fd registered here is non-blocking; the facility
// only reports which are ready.
type readinessFacility struct {
	epfd int
}

// newReadinessFacility creates a cloexec epoll instance.
func newReadinessFacility() (*readinessFacility, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &readinessFacility{epfd: fd}, nil
}

// setKey packs key into the event's 64-bit data union, which x/sys/unix
// exposes as the Fd and Pad fields.
func setKey(ev *unix.EpollEvent, key uint64) {
	ev.Fd = int32(uint32(key))
	ev.Pad = int32(uint32(key >> 32))
}

// eventKey reverses setKey.
func eventKey(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Pad))<<32 | uint64(uint32(ev.Fd))
}

// Register arms fd for readability, tagging the registration with key so
// Wait can report which logical source became ready.
func (r *readinessFacility) Register(fd int, key uint64) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN}
	setKey(&ev, key)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl add fd %d: %w", fd, err)
	}
	return nil
}

// Modify re-registers an already-registered fd for readability with an
// updated tag, used by the port-table compaction step when an entry's index
// shifts.
func (r *readinessFacility) Modify(fd int, key uint64) error {
	return r.ModifyEvents(fd, unix.EPOLLIN, key)
}

// ModifyEvents re-registers an already-registered fd under an arbitrary
// event mask, used by the control connection state machine to flip a
// socket between EPOLLIN (awaiting a request line) and EPOLLOUT (draining
// a queued response) without closing and re-adding it.
func (r *readinessFacility) ModifyEvents(fd int, events uint32, key uint64) error {
	ev := unix.EpollEvent{Events: events}
	setKey(&ev, key)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl mod fd %d: %w", fd, err)
	}
	return nil
}

// Unregister removes fd from the facility. Errors are expected and
// ignored when the fd has already been closed (the kernel drops the
// registration automatically on close).
func (r *readinessFacility) Unregister(fd int) {
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks up to timeoutMs for readiness, returning the registration
// keys of the ready sources (at most MaxPorts+16 per call).
func (r *readinessFacility) Wait(timeoutMs int) ([]uint64, error) {
	events := make([]unix.EpollEvent, MaxPorts+16)
	n, err := unix.EpollWait(r.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}
	keys := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, eventKey(&events[i]))
	}
	return keys, nil
}

// Close closes the epoll instance.
func (r *readinessFacility) Close() error {
	return unix.Close(r.epfd)
}
