package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/vovakirdan/linechat/internal/auth"
	"github.com/vovakirdan/linechat/internal/store"
)

// Authenticator validates or creates identities on login.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*store.Identity, error)
}

// Session is the per-connection protocol state: who is logged in and which
// room the connection is in. It is driven by one goroutine at a time.
type Session struct {
	client *Client
	auth   Authenticator
	hub    *Hub
	log    zerolog.Logger

	username string
	// loggedIn is separate from username because "" is a valid name.
	loggedIn bool
	room     *Room
	closed   bool
}

// NewSession binds protocol state to a client.
func NewSession(client *Client, authenticator Authenticator, hub *Hub, logger *zerolog.Logger) *Session {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("conn_id", client.ID).Logger()
	}
	return &Session{
		client: client,
		auth:   authenticator,
		hub:    hub,
		log:    l,
	}
}

// Username returns the authenticated name and whether the session is logged in.
func (s *Session) Username() (string, bool) {
	return s.username, s.loggedIn
}

// Room returns the current room, or nil.
func (s *Session) Room() *Room {
	return s.room
}

// Handle interprets one inbound line. Protocol problems are answered on the
// client and return nil. ErrSessionClosed means the session ended via /leave;
// any other error is an internal fault and the connection should be dropped.
// A panic while handling the line is recovered and reported as such a fault.
func (s *Session) Handle(ctx context.Context, line string) (err error) {
	var pc panics.Catcher
	pc.Try(func() { err = s.handle(ctx, line) })
	if r := pc.Recovered(); r != nil {
		s.log.Error().Str("panic", r.String()).Msg("recovered from panic")
		return r.AsError()
	}
	return err
}

func (s *Session) handle(ctx context.Context, line string) error {
	if s.closed {
		return ErrSessionClosed
	}

	cmd := ParseCommand(line)
	s.log.Debug().Int("kind", int(cmd.Kind)).Msg("line received")

	switch {
	case cmd.Kind == CommandMessage:
		s.handleMessage(cmd.Text)
		return nil
	case cmd.Kind == CommandLeave:
		return s.handleLeave()
	case !s.loggedIn && cmd.Kind != CommandLogin:
		s.reply(ReplyLogin)
		return nil
	case cmd.Kind == CommandLogin:
		return s.handleLogin(ctx, cmd)
	case s.room == nil && cmd.Kind != CommandJoin:
		s.reply(ReplyJoinChat)
		return nil
	case cmd.Kind == CommandJoin:
		return s.handleJoin(cmd)
	case cmd.Kind == CommandUsers:
		s.reply(strings.Join(s.room.ListMembers(), ", "))
		return nil
	default:
		s.reply(ReplyUnknown)
		return nil
	}
}

// Close leaves the current room and stops the client. Safe to call repeatedly.
func (s *Session) Close() {
	s.leaveRoom()
	s.client.CloseAfterFlush()
	s.closed = true
}

func (s *Session) handleMessage(text string) {
	switch {
	case !s.loggedIn:
		s.reply(ReplyLogin)
	case s.room == nil:
		s.reply(ReplyJoinChat)
	case s.client.Closed():
		// Cut off as a slow consumer; the room already dropped us.
		s.leaveRoom()
	default:
		s.room.SendMessage(s.username, text)
	}
}

func (s *Session) handleLeave() error {
	s.leaveRoom()
	s.reply(ReplyBye)
	s.client.CloseAfterFlush()
	s.closed = true
	s.log.Debug().Str("user", s.username).Msg("session left")
	return ErrSessionClosed
}

func (s *Session) handleLogin(ctx context.Context, cmd Command) error {
	if cmd.Malformed {
		s.reply(ReplyLoginUsage)
		return nil
	}
	username, password := cmd.Args[0], cmd.Args[1]

	s.leaveRoom()

	ident, err := s.auth.Authenticate(ctx, username, password)
	if errors.Is(err, auth.ErrWrongPassword) {
		s.log.Info().Str("user", username).Msg("wrong password")
		s.reply(ReplyWrongPassword)
		return nil
	}
	if err != nil {
		return fmt.Errorf("authenticate %q: %w", username, err)
	}

	s.username = ident.Username
	s.loggedIn = true
	s.log.Info().Str("user", s.username).Msg("logged in")
	return nil
}

func (s *Session) handleJoin(cmd Command) error {
	if cmd.Malformed {
		s.reply(ReplyJoinUsage)
		return nil
	}

	s.leaveRoom()

	room := s.hub.GetOrCreate(cmd.Args[0])
	switch err := room.Join(s.client, s.username); {
	case errors.Is(err, ErrRoomFull):
		s.reply(ReplyChatIsFull)
		return nil
	case err != nil:
		return fmt.Errorf("join %q: %w", room.Name, err)
	}

	s.room = room
	s.log.Info().Str("user", s.username).Str("room", room.Name).Msg("joined room")
	return nil
}

func (s *Session) leaveRoom() {
	if s.room == nil {
		return
	}
	if s.room.Leave(s.client) {
		s.log.Info().Str("user", s.username).Str("room", s.room.Name).Msg("left room")
	}
	s.room = nil
}

func (s *Session) reply(line string) {
	if !s.client.Send(line) {
		s.log.Warn().Msg("reply dropped, client closed")
	}
}
