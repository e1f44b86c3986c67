package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgarske/uart-monitor/internal/control"
	"github.com/dgarske/uart-monitor/internal/hotplug"
	"github.com/dgarske/uart-monitor/internal/identity"
	"github.com/dgarske/uart-monitor/internal/notify"
	"github.com/dgarske/uart-monitor/internal/session"
	"github.com/dgarske/uart-monitor/metrics"
)

// waitTimeoutMs is the single 500 ms wake driving both loop responsiveness
// and the stale-line flush.
const waitTimeoutMs = 500

// staleFlushIdle is the line-idle threshold for the periodic flush pass.
const staleFlushIdle = 200 * time.Millisecond

// hotplugSettle is the deliberate, loop-blocking settle sleep after an ADD
// event, giving the kernel time to finish populating sysfs before the new
// device is identified.
const hotplugSettle = 200 * time.Millisecond

// Core owns everything the main loop touches: the port table, the
// readiness facility, and the auxiliary event sources.
type Core struct {
	state        *State
	rf           *readinessFacility
	sig          *signalSource
	hp           hotplug.Source
	ctl          *control.Listener
	connTable    [maxControlConns]*controlConn
	overrides    identity.Overrides
	overridePath string
	log          *slog.Logger
	pid          int
	proxy        bool

	readBuf [ReadBufSize]byte
}

// Run executes the full lifecycle: acquire the pid file, create and prune
// a session, scan existing ttys, wire the readiness facility, run the
// main loop until shutdown, then clean up.
func Run(cfg Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return fmt.Errorf("ensure base dir %s: %w", cfg.BaseDir, err)
	}
	if err := AcquirePidFile(cfg.BaseDir); err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}
	defer ReleasePidFile(cfg.BaseDir)

	sessionDir, err := session.New(cfg.BaseDir, time.Now())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := session.Prune(cfg.BaseDir, LogMaxSessions); err != nil {
		logger.Warn("session prune failed", "error", err)
	}

	overrides, err := identity.LoadOverrides(cfg.OverridePath)
	if err != nil {
		logger.Warn("loading overrides failed", "error", err)
		overrides = identity.Overrides{}
	}

	ports, err := identity.Scan(overrides)
	if err != nil {
		logger.Warn("initial tty scan failed", "error", err)
	}

	rf, err := newReadinessFacility()
	if err != nil {
		return fmt.Errorf("create readiness facility: %w", err)
	}
	defer rf.Close()

	sig, err := newSignalSource()
	if err != nil {
		return fmt.Errorf("create signal source: %w", err)
	}
	defer sig.Close()
	if err := rf.Register(sig.Fd(), encodeKey(sourceSignal, 0)); err != nil {
		return fmt.Errorf("register signal source: %w", err)
	}

	hp, err := hotplug.Open()
	if err != nil {
		return fmt.Errorf("create hotplug source: %w", err)
	}
	defer hp.Close()
	if err := rf.Register(hp.Fd(), encodeKey(sourceHotplug, 0)); err != nil {
		return fmt.Errorf("register hotplug source: %w", err)
	}

	ctl, err := control.Listen(cfg.BaseDir + "/uart-monitor.sock")
	if err != nil {
		return fmt.Errorf("create control listener: %w", err)
	}
	defer ctl.Close()
	if err := rf.Register(ctl.Fd(), encodeKey(sourceControl, 0)); err != nil {
		return fmt.Errorf("register control listener: %w", err)
	}

	state := &State{
		BaseDir:     cfg.BaseDir,
		SessionDir:  sessionDir,
		DefaultBaud: cfg.BaudOrDefault(),
		Filter:      cfg.OnlyFilter,
		Systemd:     cfg.Systemd,
		Running:     true,
	}

	core := &Core{
		state:        state,
		rf:           rf,
		sig:          sig,
		hp:           hp,
		ctl:          ctl,
		overrides:    overrides,
		overridePath: cfg.OverridePath,
		log:          logger,
		pid:          os.Getpid(),
		proxy:        cfg.Proxy,
	}

	for _, p := range ports {
		if err := state.AddPort(rf, p, core.proxy); err != nil {
			logger.Info("port not added during scan", "dev", p.DevPath, "error", err)
		}
	}

	if err := state.WriteStatus(core.pid); err != nil {
		logger.Warn("initial status write failed", "error", err)
	}
	if cfg.Systemd {
		if err := notify.Ready(); err != nil {
			logger.Warn("systemd ready notification failed", "error", err)
		}
	}

	core.mainLoop()

	for i := range core.connTable {
		core.closeControlConn(i)
	}

	for i := 0; i < state.PortCount; i++ {
		mp := state.Ports[i]
		mp.Log.Marker("MONITOR STOPPED")
		mp.Log.Close()
		mp.Handle.Close()
	}
	os.Remove(cfg.BaseDir + "/status.json")
	if cfg.Systemd {
		notify.Stopping()
	}
	return nil
}

// mainLoop waits for readiness with a 500 ms timeout, dispatches each
// ready source by type, then runs the periodic stale-flush pass.
func (c *Core) mainLoop() {
	for c.state.Running {
		keys, err := c.rf.Wait(waitTimeoutMs)
		if err != nil {
			c.log.Error("readiness wait failed", "error", err)
			continue
		}

		for _, key := range keys {
			kind, idx := decodeKey(key)
			switch kind {
			case sourceSignal:
				c.handleSignal()
			case sourceHotplug:
				c.handleHotplug()
			case sourceControl:
				c.acceptControl()
			case sourceControlConn:
				c.handleControlConn(idx)
			case sourcePort:
				if c.handleSerial(idx) {
					// A removal compacted the array; stop servicing
					// this batch rather than reason about shifted
					// indices mid-iteration.
					goto batchDone
				}
			case sourcePTY:
				c.handlePTY(idx)
			}
		}
	batchDone:

		c.flushStale()
	}
}

func (c *Core) handleSignal() {
	kind, err := c.sig.Read()
	if err != nil {
		c.log.Error("signal read failed", "error", err)
		return
	}
	switch kind {
	case signalTerm, signalInt:
		c.state.Running = false
	case signalHup:
		c.rescan()
		if err := c.state.WriteStatus(c.pid); err != nil {
			c.log.Warn("status write after HUP failed", "error", err)
		}
	}
}

// rescan reloads the board-override file, re-identifies every
// currently-present tty, and calls AddPort for each; AddPort is idempotent
// by dev_path so already-monitored ports are skipped via ErrDuplicate.
func (c *Core) rescan() {
	if ov, err := identity.LoadOverrides(c.overridePath); err != nil {
		c.log.Warn("override reload failed", "error", err)
	} else {
		c.overrides = ov
	}
	ports, err := identity.Scan(c.overrides)
	if err != nil {
		c.log.Warn("rescan failed", "error", err)
		return
	}
	for _, p := range ports {
		if err := c.state.AddPort(c.rf, p, c.proxy); err != nil && err != ErrDuplicate && err != ErrFilterExcluded {
			c.log.Info("port not added during rescan", "dev", p.DevPath, "error", err)
		}
	}
}

func (c *Core) handleHotplug() {
	ev, ok, err := c.hp.Read()
	if err != nil {
		c.log.Error("hotplug read failed", "error", err)
		return
	}
	if !ok {
		return
	}

	metrics.IncHotplugEvents()

	switch ev.Action {
	case hotplug.ADD:
		time.Sleep(hotplugSettle)
		p, err := identity.Identify(ev.DevPath, c.overrides)
		if err != nil {
			c.log.Info("hotplug add not identified", "dev", ev.DevPath, "error", err)
			return
		}
		if err := c.state.AddPort(c.rf, p, c.proxy); err != nil {
			c.log.Info("hotplug add not added", "dev", ev.DevPath, "error", err)
			return
		}
		if err := c.state.WriteStatus(c.pid); err != nil {
			c.log.Warn("status write after hotplug add failed", "error", err)
		}
	case hotplug.REMOVE:
		idx := c.state.findByDevPath(ev.DevPath)
		if idx < 0 {
			return
		}
		c.log.Info("port removed", "dev", ev.DevPath)
		c.state.RemovePort(c.rf, idx)
		if err := c.state.WriteStatus(c.pid); err != nil {
			c.log.Warn("status write after hotplug remove failed", "error", err)
		}
	}
}

func (c *Core) dispatch(line string) string {
	return control.Dispatch(line, control.Ops{
		Status: func() (string, error) { return c.state.StatusJSON(c.pid) },
		Yield: func(dev string) (bool, bool, error) {
			idx := c.state.findByFilterToken(dev)
			if idx < 0 {
				return false, false, nil
			}
			already := c.state.YieldPort(c.rf, idx)
			if err := c.state.WriteStatus(c.pid); err != nil {
				c.log.Warn("status write after yield failed", "error", err)
			}
			return already, true, nil
		},
		Reclaim: func(dev string) (bool, bool, error) {
			idx := c.state.findByFilterToken(dev)
			if idx < 0 {
				return false, false, nil
			}
			already, err := c.state.ReclaimPort(c.rf, idx)
			if err != nil {
				return false, true, err
			}
			if err := c.state.WriteStatus(c.pid); err != nil {
				c.log.Warn("status write after reclaim failed", "error", err)
			}
			return already, true, nil
		},
		Quit: func() { c.state.Running = false },
	})
}

// handleSerial services one ready serial source: a non-blocking read of
// up to ReadBufSize, fed to the log writer on success. A zero-length or
// terminal-error read removes the port, writes a status snapshot, and
// reports true so the caller breaks out of the current readiness batch.
func (c *Core) handleSerial(idx int) (removed bool) {
	if idx >= c.state.PortCount {
		return false
	}
	mp := c.state.Ports[idx]

	buf := c.readBuf[:]
	n, err := mp.Handle.Read(buf)
	switch {
	case err != nil && isWouldBlock(err):
		return false
	case err != nil || n == 0:
		c.log.Info("serial read ended", "dev", mp.Port.DevPath, "error", err)
		c.state.RemovePort(c.rf, idx)
		if serr := c.state.WriteStatus(c.pid); serr != nil {
			c.log.Warn("status write after serial removal failed", "error", serr)
		}
		return true
	}

	if werr := mp.Log.Write(buf[:n]); werr != nil {
		c.log.Warn("log write failed", "dev", mp.Port.DevPath, "error", werr)
	}
	mp.BytesRead += int64(n)

	if mp.Proxy && mp.Handle.HasPTY() {
		mp.Handle.WriteMaster(buf[:n])
	}
	return false
}

// handlePTY services a proxy port's PTY-master fd: bytes a client wrote
// into the pty/<label> slave are forwarded out to the real device,
// completing the bidirectional forwarding plane (device->PTY is handled
// in handleSerial). See DESIGN.md for why the master fd is registered
// with the readiness facility rather than left write-only.
func (c *Core) handlePTY(idx int) {
	if idx >= c.state.PortCount {
		return
	}
	mp := c.state.Ports[idx]
	if !mp.Handle.HasPTY() {
		return
	}

	buf := c.readBuf[:]
	n, err := mp.Handle.ReadMaster(buf)
	if err != nil {
		if !isWouldBlock(err) {
			c.log.Info("pty master read ended", "dev", mp.Port.DevPath, "error", err)
		}
		return
	}
	if n == 0 {
		return
	}
	if _, werr := mp.Handle.Write(buf[:n]); werr != nil && !isWouldBlock(werr) {
		c.log.Warn("pty forward to device failed", "dev", mp.Port.DevPath, "error", werr)
	}
}

// flushStale runs the periodic partial-line flush pass over every
// monitored port.
func (c *Core) flushStale() {
	for i := 0; i < c.state.PortCount; i++ {
		c.state.Ports[i].Log.FlushStale(staleFlushIdle)
	}
}
