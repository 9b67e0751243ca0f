// Package tcp serves the line protocol over raw TCP (telnet).
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/ratelimit"
	"github.com/vovakirdan/linechat/internal/utils"
)

// ErrLineTooLong is returned when a line exceeds the configured maximum.
var ErrLineTooLong = errors.New("line too long")

// Server accepts telnet connections and bridges each one to a core.Session.
type Server struct {
	cfg  config.Config
	hub  *core.Hub
	auth core.Authenticator
	log  *zerolog.Logger

	conns *xsync.MapOf[string, net.Conn]
	wg    conc.WaitGroup
}

// NewServer builds a TCP server. Nothing is bound until ListenAndServe or Serve.
func NewServer(cfg config.Config, hub *core.Hub, authenticator core.Authenticator, logger *zerolog.Logger) *Server {
	return &Server{
		cfg:   cfg,
		hub:   hub,
		auth:  authenticator,
		log:   logger,
		conns: xsync.NewMapOf[string, net.Conn](),
	}
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes every
// open connection and waits for their handlers to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeAll()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("tcp listener stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Go(func() {
			s.handleConn(ctx, conn)
		})
	}
}

// ActiveConns reports the number of open connections.
func (s *Server) ActiveConns() int {
	return s.conns.Size()
}

func (s *Server) closeAll() {
	s.conns.Range(func(_ string, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	id := utils.NewID()
	addr := conn.RemoteAddr().String()
	logger := s.log.With().Str("conn_id", id).Str("remote", addr).Logger()

	s.conns.Store(id, conn)
	defer s.conns.Delete(id)
	if ctx.Err() != nil {
		_ = conn.Close()
		return
	}
	logger.Info().Msg("connection accepted")

	client := core.NewClient(id, addr, s.cfg.OutboundQueue)
	session := core.NewSession(client, s.auth, s.hub, &logger)
	limiter := ratelimit.New(s.cfg.RateLimit.Burst, s.cfg.RateLimit.PerSecond, nil)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, client, &logger)
	}()

	err := s.readLoop(ctx, conn, session, limiter, &logger)
	session.Close()
	<-writerDone
	_ = conn.Close()

	switch {
	case err == nil, errors.Is(err, core.ErrSessionClosed):
		logger.Info().Msg("connection closed")
	case errors.Is(err, ErrLineTooLong):
		logger.Info().Msg("connection closed, line too long")
	case client.Dropped():
		logger.Warn().Msg("slow consumer disconnected")
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		logger.Info().Msg("connection closed")
	default:
		logger.Warn().Err(err).Msg("connection closed with error")
	}
}

func (s *Server) readLoop(ctx context.Context, conn net.Conn, session *core.Session, limiter *ratelimit.Limiter, logger *zerolog.Logger) error {
	scanner := bufio.NewScanner(conn)
	// Room for the delimiter on top of the longest accepted line.
	scanner.Buffer(make([]byte, 0, 4096), s.cfg.MaxLineLength+2)

	for scanner.Scan() {
		line := scanner.Text()
		// The buffer leaves room for "\r\n", so a bare "\n" line can be one byte over.
		if len(line) > s.cfg.MaxLineLength {
			logger.Warn().Int("max", s.cfg.MaxLineLength).Msg("line too long")
			return ErrLineTooLong
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := session.Handle(ctx, line); err != nil {
			if !errors.Is(err, core.ErrSessionClosed) {
				logger.Error().Err(err).Msg("internal fault, closing connection")
			}
			return err
		}
	}

	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		logger.Warn().Int("max", s.cfg.MaxLineLength).Msg("line too long")
		return ErrLineTooLong
	}
	return err
}

// writeLoop drains the client queue into the connection, flushing whenever
// the queue runs empty. It closes the connection once the queue is closed so
// a blocked reader returns too.
func (s *Server) writeLoop(conn net.Conn, client *core.Client, logger *zerolog.Logger) {
	defer conn.Close()

	w := bufio.NewWriter(conn)
	failed := false
	for line := range client.Outbound() {
		if failed {
			continue
		}
		if s.cfg.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		_, err := w.WriteString(line + "\n")
		if err == nil && len(client.Outbound()) == 0 {
			err = w.Flush()
		}
		if err != nil {
			failed = true
			logger.Debug().Err(err).Msg("write failed")
			client.CloseAfterFlush()
			_ = conn.Close()
		}
	}
	if !failed {
		_ = w.Flush()
	}
}
