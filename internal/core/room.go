package core

import (
	"sync"

	"github.com/gammazero/deque"
)

const (
	// RoomCapacity is the maximum number of members per room.
	RoomCapacity = 10
	// HistorySize is the number of recent messages replayed on join.
	HistorySize = 10
)

type member struct {
	client *Client
	name   string
}

// Room is a capacity-bounded broadcast group with a bounded message history.
// Membership and history share one lock, so a joiner sees every message
// exactly once: either in the replay or live.
type Room struct {
	Name string

	mu      sync.RWMutex
	members []member
	history deque.Deque[string]
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{Name: name}
}

// Join adds the client under the given display name and replays history to it.
func (r *Room) Join(c *Client, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(c) >= 0 {
		return ErrAlreadyJoined
	}
	if len(r.members) >= RoomCapacity {
		return ErrRoomFull
	}

	r.members = append(r.members, member{client: c, name: name})
	for i := 0; i < r.history.Len(); i++ {
		if !c.Send(r.history.At(i)) {
			r.removeAt(len(r.members) - 1)
			return ErrClientClosed
		}
	}
	return nil
}

// SendMessage records the message in history and broadcasts it to every
// member. Members that cannot keep up are removed. It returns the number of
// members the line was queued for.
func (r *Room) SendMessage(author, text string) int {
	line := FormatMessage(author, text)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.history.Len() >= HistorySize {
		r.history.PopFront()
	}
	r.history.PushBack(line)

	delivered := 0
	for i := 0; i < len(r.members); {
		if r.members[i].client.Send(line) {
			delivered++
			i++
			continue
		}
		r.removeAt(i)
	}
	return delivered
}

// Leave removes the client. Returns true if it was a member.
func (r *Room) Leave(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(c)
	if i < 0 {
		return false
	}
	r.removeAt(i)
	return true
}

// ListMembers returns member names in join order.
func (r *Room) ListMembers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.members))
	for _, m := range r.members {
		names = append(names, m.name)
	}
	return names
}

// History returns a copy of the buffered messages, oldest first.
func (r *Room) History() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, r.history.Len())
	for i := 0; i < r.history.Len(); i++ {
		lines = append(lines, r.history.At(i))
	}
	return lines
}

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) indexOf(c *Client) int {
	for i, m := range r.members {
		if m.client == c {
			return i
		}
	}
	return -1
}

func (r *Room) removeAt(i int) {
	r.members = append(r.members[:i], r.members[i+1:]...)
}
