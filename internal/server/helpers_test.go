package server_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/rendezvous/internal/config"
	"github.com/Tyrowin/rendezvous/internal/logging"
	"github.com/Tyrowin/rendezvous/internal/metrics"
	"github.com/Tyrowin/rendezvous/internal/network"
	"github.com/Tyrowin/rendezvous/internal/router"
	"github.com/Tyrowin/rendezvous/internal/server"
)

const readTimeout = 2 * time.Second

// testEnv is a running relay behind an httptest server.
type testEnv struct {
	t       *testing.T
	http    *httptest.Server
	server  *server.Server
	net     *network.Network
	metrics *metrics.Metrics
	cfg     *config.Config
}

func newTestEnv(t *testing.T, customize func(cfg *config.Config), opts ...router.RelayOption) *testEnv {
	t.Helper()

	cfg := config.Default()
	if customize != nil {
		customize(cfg)
	}
	cfg.Normalize()

	m := metrics.New()
	net := network.New(logging.Discard(), m)
	relay := router.NewRelay(net, opts...)
	srv := server.New(cfg, relay)
	srv.Start()

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(5 * time.Second)
		ts.Close()
	})

	return &testEnv{t: t, http: ts, server: srv, net: net, metrics: m, cfg: cfg}
}

func (e *testEnv) wsURL(path, query string) string {
	u := "ws" + strings.TrimPrefix(e.http.URL, "http") + path
	if query != "" {
		u += "?" + query
	}
	return u
}

func originHeader(origin string) http.Header {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return header
}

// dial connects to /ws with the given handshake query.
func (e *testEnv) dial(query string) *websocket.Conn {
	e.t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL("/ws", query), originHeader(e.http.URL))
	require.NoError(e.t, err)
	_ = resp.Body.Close()
	e.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// dialUser connects and waits until the name is registered.
func (e *testEnv) dialUser(query, name string) *websocket.Conn {
	e.t.Helper()
	conn := e.dial(query)
	e.waitFor(func() bool {
		_, ok := e.net.Nodes().Lookup(name)
		return ok
	})
	return conn
}

func (e *testEnv) waitFor(cond func() bool) {
	e.t.Helper()
	require.Eventually(e.t, cond, readTimeout, 5*time.Millisecond)
}

func (e *testEnv) waitForRoom(room string, members int) {
	e.t.Helper()
	e.waitFor(func() bool { return len(e.net.Rooms().Members(room)) == members })
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	return string(data)
}

func expectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message %q", data)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of message: %v", err)
}

// expectClosed reads until the connection reports an error.
func expectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				t.Fatal("connection was not closed")
			}
			return
		}
	}
}
