package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/linechat/internal/auth"
	"github.com/vovakirdan/linechat/internal/store/memory"
)

func mustLine(t *testing.T, c *Client) string {
	t.Helper()

	select {
	case line, ok := <-c.Outbound():
		if !ok {
			t.Fatalf("client %s closed while waiting for a line", c.ID)
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a line for client %s", c.ID)
	}
	return ""
}

func expectLine(t *testing.T, c *Client, want string) {
	t.Helper()

	if got := mustLine(t, c); got != want {
		t.Fatalf("client %s: expected %q, got %q", c.ID, want, got)
	}
}

// drain returns the lines already queued without waiting.
func drain(c *Client) []string {
	var lines []string
	for {
		select {
		case line, ok := <-c.Outbound():
			if !ok {
				return lines
			}
			lines = append(lines, line)
		default:
			return lines
		}
	}
}

func expectNoLine(t *testing.T, c *Client) {
	t.Helper()

	if lines := drain(c); len(lines) != 0 {
		t.Fatalf("client %s: expected no lines, got %q", c.ID, lines)
	}
}

type testEnv struct {
	hub  *Hub
	auth *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	nop := zerolog.Nop()
	return &testEnv{
		hub:  NewHub(&nop),
		auth: auth.NewService(memory.New(), &auth.Hasher{Iterations: 256}),
	}
}

func (e *testEnv) session(id string) (*Session, *Client) {
	c := NewClient(id, "test", 64)
	return NewSession(c, e.auth, e.hub, nil), c
}
