package command

import (
	"context"
	"log"
	"runtime/debug"
	"sync"

	"cybermarket/internal/metrics"
	"cybermarket/internal/protocol"
	"cybermarket/internal/service"
	"cybermarket/pkg/apierror"
	"cybermarket/pkg/response"
)

// Sink receives replies for one connection.
type Sink interface {
	// Push queues a reply and reports whether the connection still accepts
	// replies.
	Push(reply response.Reply) bool
}

// Caller identifies the connection a frame arrived on.
type Caller struct {
	ConnID     string
	RemoteAddr string
}

// Services groups everything the handlers call into.
type Services struct {
	Accounts    *service.AccountService
	Merchants   *service.MerchantService
	Carts       *service.CartService
	Catalog     *service.CatalogService
	Invitations *service.InvitationService
}

// Dispatcher decodes frames, runs the matching handler and pushes exactly
// one reply per frame. Handlers run one at a time across all connections.
type Dispatcher struct {
	mu      sync.Mutex
	svc     Services
	metrics *metrics.Metrics
	debug   bool
}

// New creates a dispatcher. metrics may be nil.
func New(svc Services, m *metrics.Metrics, debug bool) *Dispatcher {
	return &Dispatcher{svc: svc, metrics: m, debug: debug}
}

// Dispatch handles one frame and pushes its reply onto sink.
func (d *Dispatcher) Dispatch(ctx context.Context, caller Caller, frame protocol.Frame, sink Sink) {
	reply := d.Execute(ctx, caller, frame)

	d.metrics.ObserveCommand(string(frame.Verb.Canonical()), reply.Status)
	if d.debug {
		log.Printf("[Dispatcher] conn=%s %s %s -> %d", caller.ConnID, frame.Verb, frame.RequestID, reply.Status)
	}

	if !sink.Push(reply) {
		log.Printf("[Dispatcher] conn=%s closed before reply %s was queued", caller.ConnID, frame.RequestID)
	}
}

// Execute handles one frame and returns its reply.
func (d *Dispatcher) Execute(ctx context.Context, caller Caller, frame protocol.Frame) (reply response.Reply) {
	cmd, err := protocol.Decode(frame)
	if err != nil {
		return response.FromError(frame.RequestID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] PANIC in %s: %v\n%s", frame.Verb, r, debug.Stack())
			reply = response.FromError(frame.RequestID, apierror.InternalError(""))
		}
	}()

	reply = d.handle(ctx, caller.ConnID, cmd)
	reply.RequestID = frame.RequestID
	return reply
}

// Malformed builds the reply for a line that could not be framed.
func Malformed(err error) response.Reply {
	return response.FromError("-", apierror.BadRequest(err.Error()))
}
