package daemon

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isWouldBlock reports whether err is the non-blocking "try again" signal
// that a read should be silently ignored rather than treated as a
// terminal error.
func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
