package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/auth"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store/memory"
)

type testEnv struct {
	hub    *core.Hub
	server *httptest.Server
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit = config.RateLimit{}
	if mutate != nil {
		mutate(&cfg)
	}

	disabledLogger := zerolog.Nop()
	hub := core.NewHub(&disabledLogger)
	authService := auth.NewService(memory.New(), &auth.Hasher{Iterations: 1024})

	server := NewServer(hub, authService, cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{hub: hub, server: ts}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, lines ...string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, line := range lines {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			t.Fatalf("write %q: %v", line, err)
		}
	}
}

func expect(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read (want %q): %v", want, err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected text message, got %v", typ)
	}
	if got := string(data); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func expectClose(t *testing.T, conn *websocket.Conn, want websocket.StatusCode) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err == nil {
		t.Fatalf("expected close, got message %q", data)
	}
	if got := websocket.CloseStatus(err); got != want {
		t.Fatalf("expected close status %v, got %v (%v)", want, got, err)
	}
}
