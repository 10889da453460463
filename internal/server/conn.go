package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cybermarket/internal/command"
	"cybermarket/internal/protocol"
	"cybermarket/pkg/apierror"
	"cybermarket/pkg/response"
	"cybermarket/pkg/uid"
)

// conn is one accepted connection. It is the reply sink handed to the
// dispatcher.
type conn struct {
	id     string
	remote string
	nc     net.Conn
	queue  *ReplyQueue
}

// Push queues a reply for this connection.
func (c *conn) Push(r response.Reply) bool {
	return c.queue.Enqueue(r)
}

// serveConn runs the connection loop. Three things can wake it: a line
// from the reader goroutine, a signal from the reply queue, or the end of
// the connection.
func (s *Server) serveConn(parent context.Context, nc net.Conn) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(parent)
	c := &conn{
		id:     uid.New(),
		remote: nc.RemoteAddr().String(),
		nc:     nc,
		queue:  NewReplyQueue(),
	}
	caller := command.Caller{ConnID: c.id, RemoteAddr: c.remote}

	s.track(c)
	log.Printf("[Server] Connection %s opened from %s", uid.Short(c.id), c.remote)

	lines := make(chan string)
	readDone := make(chan error, 1)
	go s.readLoop(ctx, c, lines, readDone)

	reason := "closed"
	defer func() {
		cancel()
		c.queue.Close()
		nc.Close()

		unbindCtx, unbindCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.sessions.UnbindConn(unbindCtx, c.id); err != nil {
			log.Printf("[Server] Connection %s: failed to clear sessions: %v", uid.Short(c.id), err)
		}
		unbindCancel()

		s.untrack(c)
		log.Printf("[Server] Connection %s from %s %s", uid.Short(c.id), c.remote, reason)
	}()

	w := bufio.NewWriter(nc)
	for {
		select {
		case line := <-lines:
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			// DISCONNECT needs no request id
			if protocol.Verb(fields[0]) == protocol.VerbDisconnect {
				reason = "disconnected"
				return
			}
			frame, err := protocol.ParseFrame(line)
			if err != nil {
				c.queue.Enqueue(command.Malformed(err))
				continue
			}
			s.dispatcher.Dispatch(ctx, caller, frame, c)

		case <-c.queue.Wait():
			if err := s.flush(c, w); err != nil {
				reason = "write failed: " + err.Error()
				return
			}

		case err := <-readDone:
			// write out whatever the last frames produced before closing
			s.flush(c, w)
			switch {
			case err == nil || errors.Is(err, io.EOF):
				reason = "closed by peer"
			case errors.Is(err, bufio.ErrTooLong):
				reason = "sent a line longer than the limit"
			default:
				reason = "read failed: " + err.Error()
			}
			return

		case <-ctx.Done():
			reason = "closed by server"
			return
		}
	}
}

// readLoop scans lines off the socket and hands them to the connection
// loop. It exits on read error or when ctx is done.
func (s *Server) readLoop(ctx context.Context, c *conn, lines chan<- string, done chan<- error) {
	scanner := bufio.NewScanner(c.nc)
	scanner.Buffer(make([]byte, 0, 4096), s.cfg.MaxLineBytes)
	limiter := s.newLimiter()

	for {
		if s.cfg.IdleTimeout > 0 {
			c.nc.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = io.EOF
			}
			done <- err
			return
		}

		if err := s.throttle(ctx, limiter); err != nil {
			return
		}

		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// throttle waits for the connection's rate limiter.
func (s *Server) throttle(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	r := limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	s.metrics.FrameThrottled()
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// flush drains the reply queue onto the socket, one line per reply.
func (s *Server) flush(c *conn, w *bufio.Writer) error {
	if s.cfg.WriteTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}

	for {
		r, ok := c.queue.TryDequeue()
		if !ok {
			break
		}

		out, err := r.Encode()
		if err != nil {
			log.Printf("[Server] Connection %s: failed to encode reply %s: %v", uid.Short(c.id), r.RequestID, err)
			out = []byte(response.FromError(r.RequestID, apierror.InternalError("")).Line())
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
