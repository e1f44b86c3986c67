// Package control implements the administrative unix-domain socket: a
// newline-delimited text protocol for STATUS, YIELD, RECLAIM, and QUIT
// requests.
package control

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// maxRequestSize bounds a single client request line to a 4 KiB buffer.
const maxRequestSize = 4096

// backlog is the listen queue depth.
const backlog = 5

// Listener is the non-blocking, cloexec unix-domain stream socket clients
// connect to.
type Listener struct {
	fd   int
	path string
}

// Listen removes any stale socket file at path and binds a new listener.
func Listen(path string) (*Listener, error) {
	os.Remove(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("create control socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind control socket %s: %w", path, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen on control socket %s: %w", path, err)
	}
	return &Listener{fd: fd, path: path}, nil
}

// Fd returns the listening socket's file descriptor for registration with
// the readiness facility.
func (l *Listener) Fd() int { return l.fd }

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	err := unix.Close(l.fd)
	os.Remove(l.path)
	return err
}

// AcceptConn accepts one pending client connection as a non-blocking fd and
// wraps it in a Conn. Returns (nil, nil) when there is nothing to accept
// (EAGAIN), since the listener itself is also non-blocking and may be
// reported ready for a connection that's since been withdrawn.
func (l *Listener) AcceptConn() (*Conn, error) {
	connFd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, nil
		}
		return nil, fmt.Errorf("accept control client: %w", err)
	}
	return &Conn{fd: connFd}, nil
}

// Conn is one accepted, non-blocking client connection. It is a small state
// machine: buffer reads until a newline-terminated request line is
// complete, then buffer writes of the response until fully drained. Every
// method either makes progress or returns promptly on EAGAIN — nothing here
// ever blocks the caller's single-threaded event loop.
type Conn struct {
	fd int

	buf []byte // bytes read so far, not yet split into a line

	resp    []byte // pending response bytes, nil once nothing left to write
	respOff int
}

// Fd returns the connection's file descriptor for registration with the
// readiness facility.
func (c *Conn) Fd() int { return c.fd }

// ReadLine drains whatever is currently available on the socket into its
// internal buffer and reports whether a complete newline-terminated line is
// now available. ok is false with a nil error when the caller should wait
// for the fd to become readable again; err is non-nil only for a genuine
// failure or a clean peer close.
func (c *Conn) ReadLine() (line string, ok bool, err error) {
	var tmp [512]byte
	for {
		if idx := bytes.IndexByte(c.buf, '\n'); idx >= 0 {
			return c.takeLine(idx), true, nil
		}
		if len(c.buf) >= maxRequestSize {
			return "", false, fmt.Errorf("request line exceeds %d bytes", maxRequestSize)
		}
		n, rerr := unix.Read(c.fd, tmp[:])
		if n > 0 {
			c.buf = append(c.buf, tmp[:n]...)
			continue
		}
		if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
			return "", false, nil
		}
		if rerr != nil {
			return "", false, fmt.Errorf("read control client: %w", rerr)
		}
		// n == 0, no error: peer closed before sending a newline.
		if n == 0 {
			return "", false, fmt.Errorf("control client closed connection")
		}
	}
}

// takeLine extracts the line ending at buf[idx], trims its terminator, and
// leaves any bytes after it (the start of a pipelined next request) in buf.
func (c *Conn) takeLine(idx int) string {
	line := string(c.buf[:idx])
	rest := c.buf[idx+1:]
	c.buf = append([]byte(nil), rest...)
	return strings.TrimRight(line, "\r")
}

// SetResponse queues resp to be written out on subsequent WritePending
// calls.
func (c *Conn) SetResponse(resp string) {
	c.resp = []byte(resp)
	c.respOff = 0
}

// WritePending writes as much of the queued response as the socket will
// currently accept without blocking. done reports whether the whole
// response has now been written.
func (c *Conn) WritePending() (done bool, err error) {
	for c.respOff < len(c.resp) {
		n, werr := unix.Write(c.fd, c.resp[c.respOff:])
		if n > 0 {
			c.respOff += n
			continue
		}
		if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
			return false, nil
		}
		if werr != nil {
			return false, fmt.Errorf("write control client: %w", werr)
		}
	}
	return true, nil
}

// Close closes the underlying fd.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}
