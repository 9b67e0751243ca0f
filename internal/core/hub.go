package core

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// Hub is the room registry. Rooms are created lazily on first join and are
// never removed.
type Hub struct {
	rooms *xsync.MapOf[string, *Room]
	log   *zerolog.Logger
}

// RoomInfo is a point-in-time summary of a room.
type RoomInfo struct {
	Name        string
	Members     int
	HistorySize int
}

// NewHub creates an empty registry.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		rooms: xsync.NewMapOf[string, *Room](),
		log:   logger,
	}
}

// GetOrCreate returns the room with the given name, creating it if needed.
// Concurrent first joins observe the same *Room.
func (h *Hub) GetOrCreate(name string) *Room {
	room, loaded := h.rooms.LoadOrCompute(name, func() *Room {
		return NewRoom(name)
	})
	if !loaded {
		h.log.Info().Str("room", name).Msg("room created")
	}
	return room
}

// Get looks up an existing room.
func (h *Hub) Get(name string) (*Room, bool) {
	return h.rooms.Load(name)
}

// Snapshot summarizes all rooms sorted by name.
func (h *Hub) Snapshot() []RoomInfo {
	infos := make([]RoomInfo, 0, h.rooms.Size())
	h.rooms.Range(func(name string, room *Room) bool {
		infos = append(infos, RoomInfo{
			Name:        name,
			Members:     room.Len(),
			HistorySize: len(room.History()),
		})
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
