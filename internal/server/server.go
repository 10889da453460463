package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cybermarket/internal/command"
	"cybermarket/internal/metrics"
	"cybermarket/internal/protocol"
	"cybermarket/internal/session"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

// Dispatcher handles one frame and pushes its reply onto sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, caller command.Caller, frame protocol.Frame, sink command.Sink)
}

// Config holds connection loop settings.
type Config struct {
	Addr         string
	MaxLineBytes int
	// IdleTimeout closes a connection that sends nothing for this long.
	// Zero disables it.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is the sustained frames per second accepted from one
	// connection. Zero disables throttling.
	RateLimit float64
	RateBurst int
}

// DefaultMaxLineBytes bounds a single request line.
const DefaultMaxLineBytes = 64 * 1024

// Server accepts protocol connections and runs one connection loop each.
type Server struct {
	cfg        Config
	dispatcher Dispatcher
	sessions   session.Registry
	metrics    *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]*conn
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// New creates a server. metrics may be nil.
func New(cfg Config, dispatcher Dispatcher, sessions session.Registry, m *metrics.Metrics) *Server {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		sessions:   sessions,
		metrics:    m,
		conns:      make(map[string]*conn),
	}
}

// ListenAndServe listens on cfg.Addr and serves until ctx is done or
// Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It returns nil once ctx is done or the
// server is shut down, after every connection has finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	connCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	log.Printf("[Server] Listening on %s", ln.Addr())

	var acceptErr error
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.isClosed() || ctx.Err() != nil {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			acceptErr = fmt.Errorf("accept failed: %w", err)
			break
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			nc.Close()
			break
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serveConn(connCtx, nc)
	}

	cancel()
	s.wg.Wait()
	log.Printf("[Server] Stopped accepting on %s", ln.Addr())
	return acceptErr
}

// Shutdown stops accepting, closes every connection and waits for their
// loops to finish or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// LiveConnections returns the identities of open connections, sorted.
func (s *Server) LiveConnections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(c *conn) {
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.metrics.ConnectionOpened()
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	s.metrics.ConnectionClosed()
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)
}
