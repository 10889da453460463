package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybermarket/internal/command"
	"cybermarket/internal/metrics"
	"cybermarket/internal/model"
	"cybermarket/internal/repository"
	"cybermarket/internal/service"
	"cybermarket/internal/session"
)

type testServer struct {
	srv      *Server
	store    *repository.SQLStore
	sessions *session.MemoryRegistry
	addr     string
}

func startServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)

	founder := &model.Merchant{Storename: "acme", Description: "tools", Email: "acme@shop.test", Password: "pw"}
	require.NoError(t, store.CreateMerchant(context.Background(), founder, nil))

	sessions := session.NewMemoryRegistry()
	accounts := service.NewAccountService(store, sessions)
	merchants := service.NewMerchantService(store, sessions)
	m := metrics.New()
	d := command.New(command.Services{
		Accounts:    accounts,
		Merchants:   merchants,
		Carts:       service.NewCartService(store, accounts),
		Catalog:     service.NewCatalogService(store, merchants),
		Invitations: service.NewInvitationService(store, merchants, 0),
	}, m, false)

	srv := New(cfg, d, sessions, m)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		store.Close()
	})

	return &testServer{srv: srv, store: store, sessions: sessions, addr: ln.Addr().String()}
}

type testClient struct {
	t  *testing.T
	nc net.Conn
	r  *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	nc, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { nc.Close() })
	return &testClient{t: t, nc: nc, r: bufio.NewReader(nc)}
}

func (c *testClient) write(lines ...string) {
	c.t.Helper()
	_, err := io.WriteString(c.nc, strings.Join(lines, "\n")+"\n")
	require.NoError(c.t, err)
}

func (c *testClient) read() string {
	c.t.Helper()
	c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimSuffix(line, "\n")
}

func (c *testClient) roundTrip(line string) string {
	c.t.Helper()
	c.write(line)
	return c.read()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestServer_LoginScenario(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	assert.Equal(t, "1 201 Created", c.roundTrip("CLIENT_CREATE 1 alice a@x.com pw"))
	assert.Equal(t, "2 200 OK: This user is logged in", c.roundTrip("CLIENT_LOGIN 2 alice pw"))

	third := c.roundTrip("CLIENT_LOGIN 3 alice pw")
	assert.True(t, strings.HasPrefix(third, "3 400 Bad Request: "), third)
	assert.Contains(t, third, "already logged in")
}

func TestServer_Pipelining(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	c.write(
		"CLIENT_CREATE a alice a@x.com pw",
		"CLIENT_LOGIN b alice pw",
		"",
		"CLIENT_GET_PRICE c",
	)

	assert.Equal(t, "a 201 Created", c.read())
	assert.Equal(t, "b 200 OK: This user is logged in", c.read())
	assert.Equal(t, "c 200 OK: Order price obtained\t\"0.00\"", c.read())
}

func TestServer_MalformedLineKeepsConnection(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	reply := c.roundTrip("LIST_MERCHANT")
	assert.True(t, strings.HasPrefix(reply, "- 400 Bad Request: "), reply)

	assert.True(t, strings.HasPrefix(c.roundTrip("LIST_MERCHANT 2"), "2 200 OK"))
}

func TestServer_DisconnectClearsSession(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	c.roundTrip("CLIENT_CREATE 1 alice a@x.com pw")
	c.roundTrip("CLIENT_LOGIN 2 alice pw")
	require.Len(t, ts.srv.LiveConnections(), 1)

	c.write("DISCONNECT 3")

	c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "DISCONNECT gets no reply")

	waitFor(t, func() bool { return len(ts.srv.LiveConnections()) == 0 })
	counts, err := ts.sessions.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[session.KindClient])

	// a fresh connection can log in again
	c2 := dial(t, ts.addr)
	assert.Equal(t, "4 200 OK: This user is logged in", c2.roundTrip("CLIENT_LOGIN 4 alice pw"))
}

func TestServer_BareDisconnect(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	c.roundTrip("CLIENT_CREATE 1 alice a@x.com pw")
	c.roundTrip("CLIENT_LOGIN 2 alice pw")
	c.write("DISCONNECT")

	c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "DISCONNECT without a request id still closes")

	waitFor(t, func() bool { return len(ts.srv.LiveConnections()) == 0 })
	counts, err := ts.sessions.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[session.KindClient])
}

func TestServer_PeerCloseClearsSession(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	c.roundTrip("CLIENT_CREATE 1 alice a@x.com pw")
	c.roundTrip("CLIENT_LOGIN 2 alice pw")
	c.nc.Close()

	waitFor(t, func() bool {
		counts, err := ts.sessions.Count(context.Background())
		return err == nil && counts[session.KindClient] == 0
	})
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	ts := startServer(t, Config{})
	alice := dial(t, ts.addr)
	other := dial(t, ts.addr)

	alice.roundTrip("CLIENT_CREATE 1 alice a@x.com pw")
	alice.roundTrip("CLIENT_LOGIN 2 alice pw")

	assert.True(t, strings.HasPrefix(other.roundTrip("CLIENT_GET_ITEMS 3"), "3 401 Unauthorized"))
	assert.True(t, strings.HasPrefix(alice.roundTrip("CLIENT_GET_ITEMS 4"), "4 200 OK"))
}

func TestServer_LineTooLong(t *testing.T) {
	ts := startServer(t, Config{MaxLineBytes: 64})
	c := dial(t, ts.addr)

	c.write("CLIENT_CREATE 1 " + strings.Repeat("x", 200) + " a@x.com pw")

	c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.r.ReadString('\n')
	assert.Error(t, err)
	waitFor(t, func() bool { return len(ts.srv.LiveConnections()) == 0 })
}

func TestServer_RateLimitedStillAnswers(t *testing.T) {
	ts := startServer(t, Config{RateLimit: 200, RateBurst: 1})
	c := dial(t, ts.addr)

	c.write("LIST_MERCHANT 1", "LIST_MERCHANT 2", "LIST_MERCHANT 3")
	for _, id := range []string{"1", "2", "3"} {
		assert.True(t, strings.HasPrefix(c.read(), id+" 200 OK"))
	}
}

func TestServer_Shutdown(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)
	c.roundTrip("LIST_MERCHANT 1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.srv.Shutdown(ctx))

	c.nc.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := c.r.ReadString('\n')
	assert.Error(t, err)
	assert.Empty(t, ts.srv.LiveConnections())
}

// TestServer_Transcript replays a full shopping session on one connection
// and compares the wire transcript with testdata/golden.
//
//	go test ./internal/server -run TestServer_Transcript -update
func TestServer_Transcript(t *testing.T) {
	ts := startServer(t, Config{})
	c := dial(t, ts.addr)

	requests := []string{
		"CLIENT_CREATE 1 alice a@x.com pw",
		"CLIENT_LOGIN 2 alice pw",
		"CLIENT_LOGIN 3 alice pw",
		"MERCHANT_LOGIN 4 acme pw",
		"MERCHANT_ADD_PRODUCT 5 widget 2.50 shiny",
		"MERCHANT_RESTOCK_PRODUCT 6 1 10",
		"LIST_PRODUCT 7 acme",
		"CLIENT_ADD_ITEM 8 1 2",
		"CLIENT_ADD_ITEM 9 1 0",
		"CLIENT_GET_ITEMS 10",
		"CLIENT_GET_PRICE 11",
		"CLIENT_CHECKOUT_ITEM 12",
		"MERCHANT_GET_PROFIT 13",
		"FROBNICATE 14",
		"LIST_MERCHANT 15",
	}

	var transcript strings.Builder
	for _, req := range requests {
		transcript.WriteString("> " + req + "\n")
		transcript.WriteString("< " + c.roundTrip(req) + "\n")
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "transcript", []byte(transcript.String()))
}
