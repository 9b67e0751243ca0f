package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/proto"
)

// RoomHandlers exposes read-only room state over HTTP.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// Health reports liveness.
// GET /health
func (h *RoomHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, proto.Health{
		Status: "ok",
		Rooms:  len(h.hub.Snapshot()),
	})
}

// ListRooms handles listing every room created so far.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms := roomSummaries(h.hub.Snapshot())
	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, rooms)
}

// GetRoom handles retrieving members and history of one room.
// GET /api/rooms/:name
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	name := c.Param("name")

	room, ok := h.hub.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: "room not found"})
		return
	}

	c.JSON(http.StatusOK, roomDetail(room))
}
