package core

import "strings"

// CommandKind describes what an inbound line asks for.
type CommandKind int

const (
	// CommandMessage is a plain chat line.
	CommandMessage CommandKind = iota
	// CommandLeave leaves the room and ends the session.
	CommandLeave
	// CommandLogin authenticates the connection.
	CommandLogin
	// CommandJoin moves the connection into a room.
	CommandJoin
	// CommandUsers lists the members of the current room.
	CommandUsers
	// CommandUnknown is any other slash-prefixed line.
	CommandUnknown
)

const (
	cmdLeave = "/leave"
	cmdUsers = "/users"
	// The trailing space is significant: "/login" alone is not a login attempt.
	cmdLoginPrefix = "/login "
	cmdJoinPrefix  = "/join "
)

// Command is a classified inbound line.
type Command struct {
	Kind CommandKind
	// Args holds the tokens after the command word when the arity is right.
	Args []string
	// Malformed is set for /login and /join with the wrong number of tokens.
	Malformed bool
	// Text is the raw line for chat messages.
	Text string
}

// ParseCommand classifies a single line.
func ParseCommand(line string) Command {
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CommandMessage, Text: line}
	}

	switch {
	case line == cmdLeave:
		return Command{Kind: CommandLeave}
	case strings.HasPrefix(line, cmdLoginPrefix):
		return withArgs(CommandLogin, line, 2)
	case strings.HasPrefix(line, cmdJoinPrefix):
		return withArgs(CommandJoin, line, 1)
	case line == cmdUsers:
		return Command{Kind: CommandUsers}
	default:
		return Command{Kind: CommandUnknown}
	}
}

// withArgs splits on single spaces and checks only the token count, so empty
// tokens are valid arguments: "/join " names the room "".
func withArgs(kind CommandKind, line string, want int) Command {
	tokens := strings.Split(line, " ")
	if len(tokens) != want+1 {
		return Command{Kind: kind, Malformed: true}
	}
	return Command{Kind: kind, Args: tokens[1:]}
}
