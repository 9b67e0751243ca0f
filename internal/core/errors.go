package core

import "errors"

// Replies sent to the offending connection. Existing clients match on them,
// so they must not change.
const (
	ReplyWrongPassword = "Wrong password!"
	ReplyChatIsFull    = "Chat is full!"
	ReplyLogin         = "Please login!"
	ReplyJoinChat      = "Please join some chat!"
	ReplyBye           = "Bye!"
	ReplyUnknown       = "Unknown command!"
	ReplyLoginUsage    = "Use '/login username password' to login"
	ReplyJoinUsage     = "Use '/join chatname' to join chat"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("already joined")
	ErrClientClosed  = errors.New("client closed")
	// ErrSessionClosed is returned once the session handled /leave or was closed.
	ErrSessionClosed = errors.New("session closed")
)
