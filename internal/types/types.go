package types

import (
	"time"
)

// Message is a single chat message in a room's history. Ids are
// time-based and strictly increasing in post order.
type Message struct {
	Id        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Room      string    `json:"room"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomSummary is the room-browser view of a room.
type RoomSummary struct {
	Name         string    `json:"name"`
	MemberCount  int       `json:"member_count"`
	Creator      string    `json:"creator"`
	LastActivity time.Time `json:"last_activity"`
}
