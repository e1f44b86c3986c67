package control

import "strings"

// Ops is the set of port operations the protocol dispatcher needs from the
// event core. Each returns a human-readable outcome the dispatcher turns
// into a wire response.
type Ops struct {
	// Status returns the current status document as a JSON payload, or an
	// error if it cannot be produced.
	Status func() (string, error)
	// Yield requests a port (named by device path or tty name) stop being
	// monitored. found indicates the port was found; alreadyDone indicates it
	// was already yielded.
	Yield func(dev string) (alreadyDone bool, found bool, err error)
	// Reclaim requests a yielded port resume monitoring.
	Reclaim func(dev string) (alreadyDone bool, found bool, err error)
	// Quit requests daemon shutdown.
	Quit func()
}

// Dispatch parses one request line against the command table (STATUS,
// YIELD, RECLAIM, QUIT) and returns the response line (including its
// trailing newline).
func Dispatch(line string, ops Ops) string {
	switch {
	case line == "STATUS":
		doc, err := ops.Status()
		if err != nil {
			return "ERROR cannot read status\n"
		}
		return doc + "\n"

	case strings.HasPrefix(line, "YIELD "):
		dev := strings.TrimSpace(strings.TrimPrefix(line, "YIELD "))
		already, found, err := ops.Yield(dev)
		if err != nil || !found {
			return "ERROR port not found: " + dev + "\n"
		}
		if already {
			return "OK already yielded " + dev + "\n"
		}
		return "OK yielded " + dev + "\n"

	case strings.HasPrefix(line, "RECLAIM "):
		dev := strings.TrimSpace(strings.TrimPrefix(line, "RECLAIM "))
		already, found, err := ops.Reclaim(dev)
		if !found {
			return "ERROR port not found: " + dev + "\n"
		}
		if err != nil {
			// err's message is one of "cannot reopen <dev>" or "epoll
			// add failed for <dev>".
			return "ERROR " + err.Error() + "\n"
		}
		if already {
			return "OK already monitoring " + dev + "\n"
		}
		return "OK reclaimed " + dev + "\n"

	case line == "QUIT":
		ops.Quit()
		return "OK shutting down\n"

	default:
		return "ERROR unknown command: " + line + "\n"
	}
}
