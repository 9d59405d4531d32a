package tcp_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omochice/toy-socket-relay/internal/chat"
	"github.com/omochice/toy-socket-relay/internal/transport/tcp"
)

func startServer(t *testing.T) (*tcp.Server, *chat.Hub) {
	t.Helper()

	hub := chat.NewHub(chat.NewRegistry(), nil)
	srv := tcp.New("127.0.0.1:0", hub, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Stop()
		hub.Shutdown()
	})
	return srv, hub
}

type lineConn struct {
	net.Conn
	lines *bufio.Scanner
}

func dial(t *testing.T, addr string) *lineConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &lineConn{Conn: conn, lines: bufio.NewScanner(conn)}
}

func (c *lineConn) readLine(t *testing.T) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if !c.lines.Scan() {
		t.Fatalf("read line: %v", c.lines.Err())
	}
	return c.lines.Text()
}

func waitCount(t *testing.T, hub *chat.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Registry().Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Count() = %d, want %d", hub.Registry().Count(), want)
}

func TestServer_Addr(t *testing.T) {
	srv, _ := startServer(t)

	addr := srv.Addr()
	if addr == "" {
		t.Error("Addr() returned empty string")
	}
}

func TestServer_ListenFailsOnUsedPort(t *testing.T) {
	srv, hub := startServer(t)

	other := tcp.New(srv.Addr(), hub, nil)
	if err := other.Listen(); err == nil {
		other.Stop()
		t.Fatal("Listen() on a used port succeeded")
	}
}

func TestServer_NameAndBroadcast(t *testing.T) {
	srv, _ := startServer(t)
	alice := dial(t, srv.Addr())

	alice.Write([]byte("Alice\n"))
	if got := alice.readLine(t); got != "[Server] Welcome Alice on TCP" {
		t.Fatalf("welcome = %q", got)
	}

	alice.Write([]byte("hello\n"))
	if got := alice.readLine(t); got != "[TCP#1 Alice]: hello" {
		t.Errorf("self-echo = %q, want %q", got, "[TCP#1 Alice]: hello")
	}
}

func TestServer_DisconnectDeregisters(t *testing.T) {
	srv, hub := startServer(t)
	conn := dial(t, srv.Addr())

	conn.Write([]byte("Alice"))
	conn.readLine(t)
	waitCount(t, hub, 1)

	conn.Close()
	waitCount(t, hub, 0)
}

func TestServer_ConcurrentConnectionsGetUniqueIDs(t *testing.T) {
	srv, hub := startServer(t)

	const n = 10
	var wg sync.WaitGroup
	conns := make([]*lineConn, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := net.Dial("tcp", srv.Addr())
			if err != nil {
				t.Errorf("dial %d: %v", i, err)
				return
			}
			conns[i] = &lineConn{Conn: conn, lines: bufio.NewScanner(conn)}
		}()
	}
	wg.Wait()
	for _, c := range conns {
		if c != nil {
			defer c.Close()
		}
	}
	waitCount(t, hub, n)

	seen := make(map[uint64]bool)
	for _, c := range hub.Registry().Snapshot() {
		if seen[c.ID] {
			t.Fatalf("duplicate id %d", c.ID)
		}
		seen[c.ID] = true
		if c.ID < 1 || c.ID > n {
			t.Errorf("id %d outside 1..%d", c.ID, n)
		}
	}
}

func TestServer_StopEndsServe(t *testing.T) {
	hub := chat.NewHub(chat.NewRegistry(), nil)
	srv := tcp.New("127.0.0.1:0", hub, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background()) }()

	srv.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after Stop", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return after Stop")
	}

	if _, err := net.Dial("tcp", srv.Addr()); err == nil {
		t.Error("expected error after stop, got nil")
	}
}

func TestServer_MultiLineReadIsOneUnit(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv.Addr())

	conn.Write([]byte("Dan"))
	conn.readLine(t)

	// One write of two lines arrives in one read and is relayed as one unit.
	conn.Write([]byte("a\nb"))
	got := conn.readLine(t)
	if !strings.HasPrefix(got, "[TCP#1 Dan]: a") {
		t.Errorf("first line = %q", got)
	}
}
