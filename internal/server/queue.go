package server

import (
	"sync"

	"cybermarket/pkg/response"
)

// ReplyQueue is the unbounded FIFO between the dispatcher and the write
// side of one connection. Enqueue never blocks, so a handler can always
// deliver its reply even while the connection is busy writing.
//
// The signal channel has a buffer of one and coalesces wakeups; the
// connection loop selects on Wait and then drains with TryDequeue.
type ReplyQueue struct {
	mu      sync.Mutex
	replies []response.Reply
	closed  bool
	signal  chan struct{}
}

// NewReplyQueue creates an empty queue.
func NewReplyQueue() *ReplyQueue {
	return &ReplyQueue{
		replies: make([]response.Reply, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends a reply. Returns false once the queue is closed.
func (q *ReplyQueue) Enqueue(r response.Reply) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.replies = append(q.replies, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the oldest reply without blocking.
func (q *ReplyQueue) TryDequeue() (response.Reply, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.replies) == 0 {
		return response.Reply{}, false
	}

	r := q.replies[0]
	q.replies[0] = response.Reply{} // release the payload
	if len(q.replies) == 1 {
		q.replies = q.replies[:0]
	} else {
		q.replies = q.replies[1:]
	}
	return r, true
}

// Wait returns a channel that fires when replies may be available. It is
// closed when the queue is closed.
func (q *ReplyQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued replies.
func (q *ReplyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.replies)
}

// Close discards pending replies and rejects further ones.
func (q *ReplyQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.replies = nil
	close(q.signal)
}
