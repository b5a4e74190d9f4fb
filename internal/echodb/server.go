// Package echodb is a toy line-oriented database used to exercise
// cooperative waits against real sockets. The server answers every
// query line after a configurable latency; the client issues queries
// asynchronously and reports progress through green.Conn.
package echodb

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server answers "OK <query>" to each query line, or "ERR <msg>" to
// queries starting with "FAIL ".
type Server struct {
	ln      net.Listener
	latency time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLatency delays every answer by d.
func WithLatency(d time.Duration) ServerOption {
	return func(s *Server) { s.latency = d }
}

// WithServerLogger sets the server logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Listen starts a server on addr. Serving runs in the background
// until Close.
func Listen(addr string, opts ...ServerOption) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{ln: ln, log: zap.NewNop(), conns: make(map[net.Conn]struct{})}
	for _, o := range opts {
		o(s)
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting, drops open connections and waits for their
// goroutines to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = c.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(c)
	}
}

func (s *Server) handle(c net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		_ = c.Close()
	}()

	log := s.log.With(zap.String("remote", c.RemoteAddr().String()))
	log.Debug("session opened")

	sc := bufio.NewScanner(c)
	w := bufio.NewWriter(c)
	for sc.Scan() {
		query := sc.Text()
		if s.latency > 0 {
			time.Sleep(s.latency)
		}

		var reply string
		if msg, ok := strings.CutPrefix(query, "FAIL "); ok {
			reply = "ERR " + msg
		} else {
			reply = "OK " + query
		}

		if _, err := w.WriteString(reply + "\n"); err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
		if err := w.Flush(); err != nil {
			log.Debug("flush failed", zap.Error(err))
			return
		}
	}
	log.Debug("session closed", zap.Error(sc.Err()))
}
