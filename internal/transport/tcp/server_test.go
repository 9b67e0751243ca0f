package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/linechat/internal/auth"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store/memory"
)

type testServer struct {
	addr   string
	hub    *core.Hub
	server *Server
	cancel context.CancelFunc
	done   chan error
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit = config.RateLimit{}
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	authService := auth.NewService(memory.New(), &auth.Hasher{Iterations: 1024})
	server := NewServer(cfg, hub, authService, &logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{
		addr:   ln.Addr().String(),
		hub:    hub,
		server: server,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { ts.done <- server.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-ts.done:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return ts
}

type testConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testConn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testConn) send(lines ...string) {
	c.t.Helper()

	for _, line := range lines {
		if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
			c.t.Fatalf("write %q: %v", line, err)
		}
	}
}

func (c *testConn) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func (c *testConn) expect(want string) {
	c.t.Helper()

	got, err := c.readLine()
	if err != nil {
		c.t.Fatalf("read (want %q): %v", want, err)
	}
	if got != want {
		c.t.Fatalf("expected %q, got %q", want, got)
	}
}

func (c *testConn) expectClosed() {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.r.ReadString('\n'); !errors.Is(err, io.EOF) {
		c.t.Fatalf("expected EOF, got %v", err)
	}
}

func TestEndToEndTenClientsSeeAllMessages(t *testing.T) {
	ts := startTestServer(t, nil)

	const clients = 10
	conns := make([]*testConn, clients)
	for i := 0; i < clients; i++ {
		conns[i] = dial(t, ts.addr)
		conns[i].send(
			fmt.Sprintf("/login foo%d bar%d", i, i),
			"/join foo",
			fmt.Sprintf("foobar%d", i),
		)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *testConn) {
			defer wg.Done()
			seen := make(map[string]bool)
			for len(seen) < clients {
				line, err := c.readLine()
				if err != nil {
					t.Errorf("client %d: read: %v (seen %d)", i, err, len(seen))
					return
				}
				if !strings.Contains(line, "foobar") {
					t.Errorf("client %d: unexpected line %q", i, line)
					return
				}
				if seen[line] {
					t.Errorf("client %d: duplicate line %q", i, line)
					return
				}
				seen[line] = true
				mu.Lock()
				total++
				mu.Unlock()
			}
		}(i, c)
	}
	wg.Wait()
	if total != clients*clients {
		t.Fatalf("expected %d observed messages, got %d", clients*clients, total)
	}

	wrong := dial(t, ts.addr)
	wrong.send("/login foo0 wrongpass", "/leave")
	wrong.expect(core.ReplyWrongPassword)
	wrong.expect(core.ReplyBye)
	wrong.expectClosed()

	late := dial(t, ts.addr)
	late.send("/login foo12 foo12", "/join foo", "/leave")
	late.expect(core.ReplyChatIsFull)
	late.expect(core.ReplyBye)
	late.expectClosed()

	for _, c := range conns {
		c.send("/leave")
		c.expect(core.ReplyBye)
		c.expectClosed()
	}

	room, ok := ts.hub.Get("foo")
	if !ok {
		t.Fatalf("expected room foo to exist")
	}
	if room.Len() != 0 {
		t.Fatalf("expected room to be empty, got %d members", room.Len())
	}
}

func TestCommandPrecedenceOverTCP(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dial(t, ts.addr)

	c.send("/join foo")
	c.expect(core.ReplyLogin)

	c.send("/login alice pw", "/users")
	c.expect(core.ReplyJoinChat)

	c.send("/join general", "/users", "/nope")
	c.expect("alice")
	c.expect(core.ReplyUnknown)

	c.send("/leave")
	c.expect(core.ReplyBye)
	c.expectClosed()
}

func TestDisconnectLeavesRoom(t *testing.T) {
	ts := startTestServer(t, nil)

	c := dial(t, ts.addr)
	c.send("/login alice pw", "/join general", "hello")
	c.expect("[alice]: hello")
	_ = c.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		room, _ := ts.hub.Get("general")
		if room.Len() == 0 && ts.server.ActiveConns() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected abrupt disconnect to remove membership")
}

func TestLineTooLongClosesConnection(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.MaxLineLength = 64
	})
	c := dial(t, ts.addr)

	c.send(strings.Repeat("x", 200))

	// The server may reset rather than close cleanly since unread input remains.
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var netErr net.Error
	if _, err := c.r.ReadString('\n'); err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		t.Fatalf("expected connection to be closed, got %v", err)
	}
}

func TestDefaultRateLimitKeepsEveryLine(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.Default().RateLimit
	})
	c := dial(t, ts.addr)

	const chatLines = 60
	lines := []string{"/login a b", "/join r"}
	for i := 0; i < chatLines; i++ {
		lines = append(lines, fmt.Sprintf("line%d", i))
	}
	lines = append(lines, "/leave")
	c.send(lines...)

	for i := 0; i < chatLines; i++ {
		c.expect(fmt.Sprintf("[a]: line%d", i))
	}
	c.expect(core.ReplyBye)
	c.expectClosed()
}

func TestRateLimitDelaysLines(t *testing.T) {
	ts := startTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimit{Burst: 2, PerSecond: 20}
	})
	c := dial(t, ts.addr)

	start := time.Now()
	c.send("one", "two", "three", "four", "five", "/leave")
	for i := 0; i < 5; i++ {
		c.expect(core.ReplyLogin)
	}
	c.expect(core.ReplyBye)
	c.expectClosed()

	// Four lines past the burst at 20/s.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("expected lines to be paced, finished in %v", elapsed)
	}
}

func TestLineLengthLimit(t *testing.T) {
	const maxLen = 8192

	tests := []struct {
		name     string
		length   int
		ending   string
		accepted bool
	}{
		{name: "max with LF", length: maxLen, ending: "\n", accepted: true},
		{name: "max with CRLF", length: maxLen, ending: "\r\n", accepted: true},
		{name: "over with LF", length: maxLen + 1, ending: "\n"},
		{name: "over with CRLF", length: maxLen + 1, ending: "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := startTestServer(t, nil)
			c := dial(t, ts.addr)

			c.send("/login c d", "/join r")
			body := strings.Repeat("y", tt.length)
			if _, err := io.WriteString(c.conn, body+tt.ending); err != nil {
				t.Fatalf("write: %v", err)
			}

			if tt.accepted {
				c.expect("[c]: " + body)
				c.send("/leave")
				c.expect(core.ReplyBye)
				c.expectClosed()
				return
			}

			// A reset is possible when input is left unread.
			_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			var netErr net.Error
			line, err := c.r.ReadString('\n')
			if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
				t.Fatalf("expected connection to be closed, got %q (%v)", line, err)
			}
		})
	}
}

func TestShutdownClosesConnections(t *testing.T) {
	ts := startTestServer(t, nil)
	c := dial(t, ts.addr)
	c.send("/login alice pw", "/join general", "hi")
	c.expect("[alice]: hi")

	ts.cancel()
	select {
	case err := <-ts.done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
		ts.done <- nil
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
	c.expectClosed()
}
