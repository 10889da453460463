package cli

import (
	"bufio"
	"context"
	"net"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers every frame with "<id> 200 OK" after a short delay
// and records what it received.
type echoServer struct {
	ln   net.Listener
	mu   sync.Mutex
	seen []string
	done chan struct{}
}

func startEchoServer(t *testing.T) *echoServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &echoServer{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })

	go func() {
		defer close(s.done)
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()

		scanner := bufio.NewScanner(nc)
		for scanner.Scan() {
			line := scanner.Text()
			s.mu.Lock()
			s.seen = append(s.seen, line)
			s.mu.Unlock()

			fields := strings.Fields(line)
			if fields[0] == "DISCONNECT" {
				return
			}
			time.Sleep(20 * time.Millisecond)
			nc.Write([]byte(fields[1] + " 200 OK\n"))
		}
	}()
	return s
}

func (s *echoServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func TestSend_WaitsForRepliesBeforeDisconnect(t *testing.T) {
	srv := startEchoServer(t)

	in := strings.NewReader("LIST_MERCHANT 1\n\nLIST_MERCHANT 2\nLIST_MERCHANT 3\n")
	var out strings.Builder

	opts := &SendOptions{RootOptions: &RootOptions{}, Addr: srv.ln.Addr().String(), DialTimeout: time.Second, Drain: 5 * time.Second}
	require.NoError(t, Send(context.Background(), opts, in, &out))

	assert.Equal(t, "1 200 OK\n2 200 OK\n3 200 OK\n", out.String())

	select {
	case <-srv.done:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw DISCONNECT")
	}
	assert.Equal(t, []string{"LIST_MERCHANT 1", "LIST_MERCHANT 2", "LIST_MERCHANT 3", "DISCONNECT -"}, srv.received())
}

func TestSend_StopsAtUserDisconnect(t *testing.T) {
	srv := startEchoServer(t)

	in := strings.NewReader("LIST_MERCHANT 1\nDISCONNECT 2\nLIST_MERCHANT 3\n")
	var out strings.Builder

	opts := &SendOptions{RootOptions: &RootOptions{}, Addr: srv.ln.Addr().String(), DialTimeout: time.Second, Drain: 5 * time.Second}
	require.NoError(t, Send(context.Background(), opts, in, &out))

	assert.Equal(t, "1 200 OK\n", out.String())
	<-srv.done
	assert.Equal(t, []string{"LIST_MERCHANT 1", "DISCONNECT -"}, srv.received())
}

func TestSend_ReaderExitsWithUnreadReplies(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	served := make(chan struct{})
	go func() {
		defer close(served)
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		r := bufio.NewReader(nc)
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		// one reply for the request, then unsolicited extras
		nc.Write([]byte("1 200 OK\nx 200 OK\ny 200 OK\nz 200 OK\n"))
		r.ReadString('\n')
	}()

	baseline := runtime.NumGoroutine()

	opts := &SendOptions{RootOptions: &RootOptions{}, Addr: ln.Addr().String(), DialTimeout: time.Second, Drain: time.Second}
	var out strings.Builder
	require.NoError(t, Send(context.Background(), opts, strings.NewReader("LIST_MERCHANT 1\n"), &out))
	assert.True(t, strings.HasPrefix(out.String(), "1 200 OK\n"))

	<-served
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() < baseline },
		5*time.Second, 20*time.Millisecond, "reply reader must not outlive Send")
}

func TestSend_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	opts := &SendOptions{RootOptions: &RootOptions{}, Addr: addr, DialTimeout: time.Second}
	err = Send(context.Background(), opts, strings.NewReader(""), &strings.Builder{})
	assert.Error(t, err)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "send"}, names)
}
