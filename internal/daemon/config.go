// Package daemon implements the event core: the single-threaded,
// readiness-driven main loop that owns the port table and wires together
// the signal, hot-plug, control, and per-port serial sources.
package daemon

import "strings"

// MaxPorts bounds the dense port table.
const MaxPorts = 64

// ReadBufSize bounds a single non-blocking serial read.
const ReadBufSize = 4096

// DefaultBaud is used when Config.Baud is zero.
const DefaultBaud = 115200

// LogMaxSessions is the session-retention count applied at startup.
const LogMaxSessions = 10

// Config holds the daemon's startup parameters, populated from CLI flags
// and environment.
type Config struct {
	BaseDir      string
	Baud         int
	Systemd      bool
	OnlyFilter   string
	OverridePath string
	// Proxy enables PTY-proxy mode: in addition to logging, each port
	// gets a pty/<label> pseudo-terminal that forwards bytes
	// bidirectionally to the real device.
	Proxy bool
}

// BaudOrDefault returns c.Baud, defaulting to DefaultBaud when unset.
func (c Config) BaudOrDefault() int {
	if c.Baud <= 0 {
		return DefaultBaud
	}
	return c.Baud
}

// filterTokens splits a comma-separated filter into trimmed, non-empty
// tokens.
func filterTokens(filter string) []string {
	if filter == "" {
		return nil
	}
	parts := strings.Split(filter, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchesFilter reports whether devPath or its trailing tty name matches
// one of filter's comma-separated tokens. An empty filter matches
// everything.
func MatchesFilter(filter, devPath, ttyName string) bool {
	tokens := filterTokens(filter)
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		if t == devPath || t == ttyName {
			return true
		}
	}
	return false
}
