package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/ratelimit"
	"github.com/vovakirdan/linechat/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to a core.Session.
// Each text message carries one protocol line in either direction.
type WSHandler struct {
	hub  *core.Hub
	auth core.Authenticator
	cfg  config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authenticator core.Authenticator, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authenticator, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(int64(h.cfg.MaxLineLength))

	id := utils.NewID()
	logger := h.log.With().Str("conn_id", id).Str("remote", r.RemoteAddr).Str("transport", "ws").Logger()
	logger.Info().Msg("connection accepted")

	client := core.NewClient(id, r.RemoteAddr, h.cfg.OutboundQueue)
	session := core.NewSession(client, h.auth, h.hub, &logger)
	limiter := ratelimit.New(h.cfg.RateLimit.Burst, h.cfg.RateLimit.PerSecond, nil)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readErr := make(chan error, 1)
	writeErr := make(chan error, 1)
	go func() {
		readErr <- h.readLoop(ctx, conn, session, limiter, &logger)
	}()
	go func() {
		writeErr <- h.writeLoop(ctx, conn, client, &logger)
	}()

	select {
	case err = <-readErr:
		// Let the writer deliver what is queued, e.g. the reply to /leave.
		session.Close()
		<-writeErr
	case err = <-writeErr:
		cancel()
		<-readErr
		session.Close()
	}

	status, reason := closeStatus(err, client)
	switch status {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		logger.Info().Msg("connection closed")
	case websocket.StatusPolicyViolation:
		logger.Warn().Msg("slow consumer disconnected")
	default:
		logger.Warn().Err(err).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

func closeStatus(err error, client *core.Client) (websocket.StatusCode, string) {
	switch {
	case client.Dropped():
		return websocket.StatusPolicyViolation, "too slow"
	case err == nil, errors.Is(err, core.ErrSessionClosed):
		return websocket.StatusNormalClosure, core.ReplyBye
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		return websocket.StatusGoingAway, "closing"
	}
	if s := websocket.CloseStatus(err); s != -1 {
		return s, "closing"
	}
	return websocket.StatusInternalError, "internal error"
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session, limiter *ratelimit.Limiter, logger *zerolog.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			logger.Debug().Msg("binary message ignored")
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		line := strings.TrimRight(string(data), "\r\n")
		if err := session.Handle(ctx, line); err != nil {
			if !errors.Is(err, core.ErrSessionClosed) {
				logger.Error().Err(err).Msg("internal fault, closing connection")
			}
			return err
		}
	}
}

// writeLoop sends queued lines until the client queue is closed.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for line := range client.Outbound() {
		if err := h.writeLine(ctx, conn, line); err != nil {
			logger.Debug().Err(err).Msg("write ws line")
			client.CloseAfterFlush()
			return err
		}
	}
	return nil
}

func (h *WSHandler) writeLine(ctx context.Context, conn *websocket.Conn, line string) error {
	if h.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.WriteTimeout)
		defer cancel()
	}
	return conn.Write(ctx, websocket.MessageText, []byte(line))
}
