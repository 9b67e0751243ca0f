// Package proto defines the JSON shapes served by the admin API.
package proto

// RoomSummary is one entry of GET /api/rooms.
type RoomSummary struct {
	Name        string `json:"name"`
	Members     int    `json:"members"`
	HistorySize int    `json:"history_size"`
}

// RoomDetail is returned by GET /api/rooms/:name.
type RoomDetail struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
	History []string `json:"history"`
}

// Health is returned by GET /health.
type Health struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
