package daemon

import (
	"github.com/dgarske/uart-monitor/internal/control"

	"golang.org/x/sys/unix"
)

// maxControlConns bounds the number of simultaneously open control-socket
// client connections the event core services. The control protocol is
// strictly request/response with no persistent clients expected, so a
// small fixed table is enough; a client beyond this limit is refused at
// accept time rather than growing the table unbounded.
const maxControlConns = 8

// controlConn tracks one accepted control-socket client through its
// read-request / dispatch / write-response lifecycle, entirely within the
// single-threaded main loop: nothing here blocks, and nothing runs off the
// main loop's goroutine.
type controlConn struct {
	conn          *control.Conn
	awaitingWrite bool
}

// acceptControl accepts as many pending control-socket connections as are
// ready, registering each in a free connTable slot under sourceControlConn.
// A connection arriving when the table is full is accepted and immediately
// closed, since Accept4 is non-blocking and leaving it unaccepted would
// spin the readiness facility on the still-ready listener fd.
func (c *Core) acceptControl() {
	for {
		conn, err := c.ctl.AcceptConn()
		if err != nil {
			c.log.Warn("control accept failed", "error", err)
			return
		}
		if conn == nil {
			return
		}

		slot := c.freeConnSlot()
		if slot < 0 {
			c.log.Warn("control connection refused: table full")
			conn.Close()
			continue
		}

		if err := c.rf.Register(conn.Fd(), encodeKey(sourceControlConn, slot)); err != nil {
			c.log.Warn("control connection register failed", "error", err)
			conn.Close()
			continue
		}
		c.connTable[slot] = &controlConn{conn: conn}
	}
}

func (c *Core) freeConnSlot() int {
	for i := range c.connTable {
		if c.connTable[i] == nil {
			return i
		}
	}
	return -1
}

// handleControlConn services one readiness event on an accepted control
// connection: if it is still awaiting a request line, buffers whatever is
// newly readable and dispatches once a full line arrives, switching the
// registration to EPOLLOUT; if it is draining a response, writes as much as
// the socket will accept and closes the connection once done. A client
// that connects and never completes a line simply never advances past
// ReadLine — it holds one connTable slot and one epoll registration, but
// every other source keeps being serviced on schedule.
func (c *Core) handleControlConn(slot int) {
	cc := c.connTable[slot]
	if cc == nil {
		return
	}

	if !cc.awaitingWrite {
		line, ok, err := cc.conn.ReadLine()
		if err != nil {
			c.closeControlConn(slot)
			return
		}
		if !ok {
			return
		}

		cc.conn.SetResponse(c.dispatch(line))
		cc.awaitingWrite = true
		if err := c.rf.ModifyEvents(cc.conn.Fd(), unix.EPOLLOUT, encodeKey(sourceControlConn, slot)); err != nil {
			c.log.Warn("control connection mode switch failed", "error", err)
			c.closeControlConn(slot)
			return
		}
		// Fall through: try to write immediately in case the response
		// fits in the socket buffer without waiting for another
		// readiness event.
	}

	done, err := cc.conn.WritePending()
	if err != nil {
		c.closeControlConn(slot)
		return
	}
	if done {
		c.closeControlConn(slot)
	}
}

func (c *Core) closeControlConn(slot int) {
	cc := c.connTable[slot]
	if cc == nil {
		return
	}
	c.rf.Unregister(cc.conn.Fd())
	cc.conn.Close()
	c.connTable[slot] = nil
}
