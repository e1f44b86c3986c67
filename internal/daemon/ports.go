package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgarske/uart-monitor/internal/identity"
	"github.com/dgarske/uart-monitor/internal/logwriter"
	"github.com/dgarske/uart-monitor/internal/sysutil"
	"github.com/dgarske/uart-monitor/internal/ttyio"
)

// bannerBaud is what the log banner reports regardless of the port's
// configured baud; see DESIGN.md.
const bannerBaud = 115200

// ErrDuplicate is returned by AddPort when dev_path is already monitored.
var ErrDuplicate = fmt.Errorf("duplicate port")

// ErrFilterExcluded is returned by AddPort when the port does not match
// the active device filter.
var ErrFilterExcluded = fmt.Errorf("port excluded by filter")

// ErrPortTableFull is returned by AddPort when MaxPorts is already in use.
var ErrPortTableFull = fmt.Errorf("port table full")

// buildBanner composes the per-port log header.
func buildBanner(p identity.Port, board string) string {
	return fmt.Sprintf(
		"Device: %s\nBoard: %s\nInterface: %d\nFunction: %s\nVID:PID: %04x:%04x\nBaud: %d\n",
		p.DevPath, board, p.InterfaceIndex, p.FunctionName, p.VID, p.PID, bannerBaud,
	)
}

// AddPort opens the serial handle and log file for an identified port,
// registers its fd with the readiness facility, and appends it to the
// dense port array. Idempotent by dev_path: an already-monitored port
// returns ErrDuplicate rather than reopening.
func (s *State) AddPort(rf *readinessFacility, p identity.Port, proxy bool) error {
	if !MatchesFilter(s.Filter, p.DevPath, p.TTYName) {
		return ErrFilterExcluded
	}
	if s.findByDevPath(p.DevPath) >= 0 {
		return ErrDuplicate
	}
	if s.PortCount >= MaxPorts {
		return ErrPortTableFull
	}

	var handle *ttyio.Handle
	var err error
	if proxy {
		handle, err = ttyio.OpenProxy(p.DevPath, s.DefaultBaud)
	} else {
		handle, err = ttyio.OpenReadOnly(p.DevPath, s.DefaultBaud)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", p.DevPath, err)
	}

	mp := &MonitoredPort{Port: p, Handle: handle, Baud: s.DefaultBaud, Proxy: proxy}

	logPath := filepath.Join(s.SessionDir, p.Label+".log")
	mp.Log, err = logwriter.Open(logPath, buildBanner(p, mp.Board()))
	if err != nil {
		handle.Close()
		return fmt.Errorf("open log for %s: %w", p.DevPath, err)
	}

	idx := s.PortCount
	tag := &sourceTag{Kind: sourcePort, PortIndex: idx}
	if err := rf.Register(handle.Fd(), encodeKey(sourcePort, idx)); err != nil {
		mp.Log.Close()
		handle.Close()
		return fmt.Errorf("register %s: %w", p.DevPath, err)
	}
	mp.Tag = tag

	if proxy && handle.HasPTY() {
		s.registerPTY(rf, mp, idx)
	}

	s.Ports[idx] = mp
	s.PortCount++
	return nil
}

// ptyLinkPath is where a proxy port's PTY-slave symlink is published:
// <base>/pty/<label>, symlinked to /dev/pts/N.
func (s *State) ptyLinkPath(label string) string {
	return filepath.Join(s.BaseDir, "pty", label)
}

// registerPTY arms a proxy port's PTY-master fd for readability and
// publishes its slave-path symlink. Both steps are best effort: a proxy
// port that can't get PTY forwarding wired still monitors the real device
// normally, matching the TIOCEXCL advisory-flag's non-fatal precedent.
func (s *State) registerPTY(rf *readinessFacility, mp *MonitoredPort, idx int) {
	if err := sysutil.EnsureDir(filepath.Join(s.BaseDir, "pty"), 0755); err == nil {
		sysutil.AtomicSymlink(mp.Handle.SlavePath(), s.ptyLinkPath(mp.Port.Label))
	}
	if err := rf.Register(mp.Handle.MasterFd(), encodeKey(sourcePTY, idx)); err == nil {
		mp.PTYRegistered = true
	}
}

// RemovePort unregisters the port at idx, marks it disconnected, closes
// its log and serial handle, then compacts the array: later entries shift
// down one slot and their tags (and, for still-monitoring ports, their
// epoll registration) are updated to the new index.
func (s *State) RemovePort(rf *readinessFacility, idx int) {
	mp := s.Ports[idx]
	rf.Unregister(mp.Handle.Fd())
	if mp.PTYRegistered {
		rf.Unregister(mp.Handle.MasterFd())
		os.Remove(s.ptyLinkPath(mp.Port.Label))
	}
	mp.Log.Marker("PORT DISCONNECTED")
	mp.Log.Close()
	mp.Handle.Close()

	for i := idx; i < s.PortCount-1; i++ {
		next := s.Ports[i+1]
		next.Tag.PortIndex = i
		s.Ports[i] = next
		if !next.Yielded {
			rf.Modify(next.Handle.Fd(), encodeKey(sourcePort, i))
			if next.PTYRegistered {
				rf.Modify(next.Handle.MasterFd(), encodeKey(sourcePTY, i))
			}
		}
	}
	s.Ports[s.PortCount-1] = nil
	s.PortCount--
}

// YieldPort releases the serial descriptor without discarding log or
// state. Idempotent: yielding an already-yielded port succeeds silently.
func (s *State) YieldPort(rf *readinessFacility, idx int) (alreadyYielded bool) {
	mp := s.Ports[idx]
	if mp.Yielded {
		return true
	}
	rf.Unregister(mp.Handle.Fd())
	if mp.PTYRegistered {
		rf.Unregister(mp.Handle.MasterFd())
		mp.PTYRegistered = false
	}
	mp.Handle.Close()
	mp.Yielded = true
	mp.Log.Marker("PORT YIELDED")
	return false
}

// ReclaimPort reopens a yielded port's serial handle and re-registers it
// at its existing slot index. Idempotent: reclaiming an already-monitoring
// port succeeds silently.
func (s *State) ReclaimPort(rf *readinessFacility, idx int) (alreadyMonitoring bool, err error) {
	mp := s.Ports[idx]
	if !mp.Yielded {
		return true, nil
	}

	var handle *ttyio.Handle
	if mp.Proxy {
		handle, err = ttyio.OpenProxy(mp.Port.DevPath, mp.Baud)
	} else {
		handle, err = ttyio.OpenReadOnly(mp.Port.DevPath, mp.Baud)
	}
	if err != nil {
		return false, fmt.Errorf("cannot reopen %s", mp.Port.DevPath)
	}

	if err := rf.Register(handle.Fd(), encodeKey(sourcePort, idx)); err != nil {
		handle.Close()
		return false, fmt.Errorf("epoll add failed for %s", mp.Port.DevPath)
	}

	mp.Handle = handle
	mp.Yielded = false
	if mp.Proxy && handle.HasPTY() {
		// A reopened proxy handle allocates a fresh PTY pair, so the
		// slave-path symlink and epoll registration are redone under
		// the port's unchanged slot index.
		s.registerPTY(rf, mp, idx)
	}
	mp.Log.Marker("PORT RECLAIMED")
	return false, nil
}
