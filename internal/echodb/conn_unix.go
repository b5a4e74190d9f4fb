//go:build unix

package echodb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/webriots/green"
	"golang.org/x/sys/unix"
)

var (
	// ErrBusy is returned by Send while a previous query is in progress.
	ErrBusy = errors.New("echodb: another command is already in progress")
	// ErrCanceled is reported by Poll after Cancel. The connection is
	// unusable afterwards.
	ErrCanceled = errors.New("echodb: canceling statement due to user request")
	// ErrClosed is reported by operations on a closed connection.
	ErrClosed = errors.New("echodb: connection already closed")
)

// QueryError is an error answer from the server.
type QueryError struct {
	Msg string
}

func (e *QueryError) Error() string {
	return "echodb: " + e.Msg
}

// Conn is an asynchronous client connection. Send starts a query,
// Poll advances it without ever blocking, Result returns the answer
// once Poll reports green.PollOK.
//
// A Conn is driven by one flow of execution at a time.
type Conn struct {
	nc       net.Conn
	rc       syscall.RawConn
	out      []byte
	in       []byte
	result   string
	resErr   error
	busy     bool
	err      error
	canceled atomic.Bool
}

var _ green.Conn = (*Conn)(nil)
var _ green.Canceler = (*Conn)(nil)

// Dial connects to an echodb server.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	sc, ok := nc.(syscall.Conn)
	if !ok {
		_ = nc.Close()
		return nil, errors.New("echodb: conn does not expose SyscallConn")
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		_ = nc.Close()
		return nil, err
	}

	return &Conn{nc: nc, rc: rc}, nil
}

// Fileno implements green.Conn.
func (c *Conn) Fileno() (int, error) {
	fd := -1
	if err := c.rc.Control(func(raw uintptr) { fd = int(raw) }); err != nil {
		return -1, err
	}
	return fd, nil
}

// Send starts query. It does not wait for the server.
func (c *Conn) Send(query string) error {
	if c.err != nil {
		return c.err
	}
	if c.busy {
		return ErrBusy
	}
	if strings.ContainsRune(query, '\n') {
		return errors.New("echodb: query contains a newline")
	}

	c.out = append(c.out[:0], query...)
	c.out = append(c.out, '\n')
	c.result, c.resErr = "", nil
	c.busy = true
	return nil
}

// Poll implements green.Conn.
func (c *Conn) Poll() (green.PollState, error) {
	if c.err != nil {
		return green.PollError, c.err
	}
	if c.canceled.Load() {
		return green.PollError, c.fail(ErrCanceled)
	}
	if !c.busy {
		return green.PollOK, nil
	}

	for len(c.out) > 0 {
		n, err := c.write(c.out)
		if errors.Is(err, unix.EAGAIN) {
			return green.PollWrite, nil
		}
		if err != nil {
			return green.PollError, c.fail(err)
		}
		c.out = c.out[n:]
	}

	var buf [512]byte
	for {
		if i := bytes.IndexByte(c.in, '\n'); i >= 0 {
			c.finish(string(c.in[:i]))
			c.in = append(c.in[:0], c.in[i+1:]...)
			return green.PollOK, nil
		}

		n, err := c.read(buf[:])
		if errors.Is(err, unix.EAGAIN) {
			return green.PollRead, nil
		}
		if err != nil {
			return green.PollError, c.fail(err)
		}
		if n == 0 {
			return green.PollError, c.fail(io.ErrUnexpectedEOF)
		}
		c.in = append(c.in, buf[:n]...)
	}
}

// Result returns the answer to the last completed query.
func (c *Conn) Result() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.busy {
		return "", ErrBusy
	}
	return c.result, c.resErr
}

// Cancel implements green.Canceler. It may be called from any
// goroutine; the next Poll fails with ErrCanceled.
func (c *Conn) Cancel() error {
	c.canceled.Store(true)
	return nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	if c.err == nil {
		c.err = ErrClosed
	}
	return c.nc.Close()
}

func (c *Conn) finish(line string) {
	c.busy = false
	if msg, ok := strings.CutPrefix(line, "ERR "); ok {
		c.resErr = &QueryError{Msg: msg}
		return
	}
	c.result = strings.TrimPrefix(line, "OK ")
}

func (c *Conn) fail(err error) error {
	c.busy = false
	c.err = err
	_ = c.nc.Close()
	return err
}

func (c *Conn) read(p []byte) (n int, err error) {
	cerr := c.rc.Read(func(fd uintptr) bool {
		n, err = unix.Read(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

func (c *Conn) write(p []byte) (n int, err error) {
	cerr := c.rc.Write(func(fd uintptr) bool {
		n, err = unix.Write(int(fd), p)
		return true
	})
	if cerr != nil {
		return 0, cerr
	}
	if n < 0 {
		n = 0
	}
	return n, err
}
