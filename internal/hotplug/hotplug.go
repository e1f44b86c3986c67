// Package hotplug detects tty device addition and removal. The primary
// backend binds a netlink socket to the kernel uevent multicast group
// (see netlink.go); an inotify watch on /dev covers hosts where that
// socket cannot be created (see fsnotify.go).
package hotplug

import "strings"

// Action distinguishes tty arrival from departure.
type Action int

const (
	// ADD indicates a tty device appeared.
	ADD Action = iota
	// REMOVE indicates a tty device disappeared.
	REMOVE
)

// Event is one filtered, normalized hot-plug notification.
type Event struct {
	Action  Action
	DevName string // e.g. "ttyUSB0"
	DevPath string // "/dev/" + DevName
}

// Source is a hot-plug backend: a readable fd plus a drain method that
// consumes and returns zero or one matching event.
type Source interface {
	// Fd returns the file descriptor to register with the readiness
	// facility.
	Fd() int
	// Read drains one pending notification. It returns ok=false when the
	// traffic present didn't match a tty add/remove (the caller should
	// re-arm readiness and keep going).
	Read() (ev Event, ok bool, err error)
	// Close releases the backend's resources.
	Close() error
}

// watchedPrefixes lists the tty device-name prefixes this daemon monitors.
var watchedPrefixes = []string{"ttyUSB", "ttyACM", "ttyUART"}

// matchesWatchedPrefix reports whether devName names a tty device this
// daemon tracks.
func matchesWatchedPrefix(devName string) bool {
	for _, p := range watchedPrefixes {
		if strings.HasPrefix(devName, p) {
			return true
		}
	}
	return false
}

// Open tries the netlink backend first, falling back to the inotify
// backend if the netlink socket cannot be created or bound.
func Open() (Source, error) {
	src, err := openNetlink()
	if err == nil {
		return src, nil
	}
	return openFSNotify()
}
