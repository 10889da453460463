package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybermarket/pkg/response"
)

func TestReplyQueue_FIFO(t *testing.T) {
	q := NewReplyQueue()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(response.Created(id)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		r, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, r.RequestID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestReplyQueue_SignalCoalesces(t *testing.T) {
	q := NewReplyQueue()
	q.Enqueue(response.Created("1"))
	q.Enqueue(response.Created("2"))

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("expected signal")
	}

	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestReplyQueue_Close(t *testing.T) {
	q := NewReplyQueue()
	q.Enqueue(response.Created("1"))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(response.Created("2")))
	_, ok := q.TryDequeue()
	assert.False(t, ok, "pending replies are discarded")

	select {
	case _, open := <-q.Wait():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("wait channel should be closed")
	}
}
