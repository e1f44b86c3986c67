package daemon

import (
	"github.com/dgarske/uart-monitor/internal/identity"
	"github.com/dgarske/uart-monitor/internal/logwriter"
	"github.com/dgarske/uart-monitor/internal/ttyio"
)

// sourceKind distinguishes the non-port event sources registered with the
// readiness facility from per-port serial sources.
type sourceKind int

const (
	sourceSignal sourceKind = iota
	sourceHotplug
	sourceControl
	sourcePort
	// sourcePTY tags a proxy port's PTY-master fd, registered as a
	// readable source whose handler forwards client writes back out to
	// the real device. See DESIGN.md for why it's registered at all.
	sourcePTY
	// sourceControlConn tags an accepted control-socket client
	// connection. PortIndex carries the slot into Core.connTable rather
	// than a MonitoredPort index.
	sourceControlConn
)

// sourceTag is bound to a registered fd at registration time. For
// sourcePort it carries the owning port's current index into State.Ports;
// that index is rewritten whenever an earlier port is removed and the
// array compacts.
type sourceTag struct {
	Kind      sourceKind
	PortIndex int
}

// encodeKey packs a sourceTag into the uint64 the readiness facility hands
// back on Wait, avoiding a heap lookup on the hot path.
func encodeKey(kind sourceKind, portIndex int) uint64 {
	return uint64(kind)<<32 | uint64(uint32(portIndex))
}

// decodeKey reverses encodeKey.
func decodeKey(key uint64) (kind sourceKind, portIndex int) {
	return sourceKind(key >> 32), int(uint32(key))
}

// MonitoredPort composes an identified port with its serial handle, log
// writer, yielded flag, and the event-source tag that ties it back to a
// registered fd. Owned exclusively by the event core.
type MonitoredPort struct {
	Port      identity.Port
	Handle    *ttyio.Handle
	Log       *logwriter.Writer
	Yielded   bool
	BytesRead int64
	Tag       *sourceTag
	Baud      int
	Proxy     bool
	// PTYRegistered reports whether Handle's PTY master fd is currently
	// registered with the readiness facility under sourcePTY.
	PTYRegistered bool
}

// Status returns the port's status-document state string.
func (p *MonitoredPort) Status() string {
	if p.Yielded {
		return "yielded"
	}
	return "monitoring"
}

// Board resolves the status document's "board" field: an explicit override first,
// then the known device's first candidate board, else "Unknown".
func (p *MonitoredPort) Board() string {
	if p.Port.BoardOverride != "" {
		return p.Port.BoardOverride
	}
	if p.Port.Known != nil && len(p.Port.Known.CandidateBoards) > 0 {
		return p.Port.Known.CandidateBoards[0]
	}
	return "Unknown"
}

// State is the daemon's process-wide, single-instance data: base and
// session paths, default baud, device filter, run flags, and the dense,
// index-stable port array. The readiness facility and auxiliary sources
// are held by Core, not here. There is exactly one State per process and it is only ever
// touched from the main loop's single OS thread.
type State struct {
	BaseDir     string
	SessionDir  string
	DefaultBaud int
	Filter      string
	Systemd     bool
	Running     bool

	Ports     [MaxPorts]*MonitoredPort
	PortCount int
}

// findByDevPath returns the index of the monitored port with the given
// dev_path, or -1.
func (s *State) findByDevPath(devPath string) int {
	for i := 0; i < s.PortCount; i++ {
		if s.Ports[i].Port.DevPath == devPath {
			return i
		}
	}
	return -1
}

// TotalBytesLogged sums BytesWritten across every monitored port's log,
// for the metrics gauge published alongside each status snapshot.
func (s *State) TotalBytesLogged() int64 {
	var total int64
	for i := 0; i < s.PortCount; i++ {
		total += s.Ports[i].Log.BytesWritten()
	}
	return total
}

// findByFilterToken returns the index of the monitored port whose dev_path
// or trailing tty name equals token, or -1.
func (s *State) findByFilterToken(token string) int {
	for i := 0; i < s.PortCount; i++ {
		p := &s.Ports[i].Port
		if p.DevPath == token || p.TTYName == token {
			return i
		}
	}
	return -1
}
