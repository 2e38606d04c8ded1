package server

import (
	"sort"
	"time"

	"github.com/npezzotti/go-chatbroker/internal/types"
)

// Registry is the authoritative mapping of room name to room state.
// It is owned by the ChatServer dispatch goroutine, which is the only
// context allowed to call its methods; that makes getOrCreate and
// every check-then-mutate sequence atomic without locks.
type Registry struct {
	rooms map[string]*Room
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// getOrCreate returns the room with the given name, creating it with
// creator as the sole admin if it does not exist. Two consecutive
// calls for the same new name never produce two rooms.
func (reg *Registry) getOrCreate(name, creator string) (*Room, bool) {
	if room, ok := reg.rooms[name]; ok {
		return room, false
	}

	room := newRoom(name, creator, reg.now())
	reg.rooms[name] = room

	return room, true
}

func (reg *Registry) get(name string) (*Room, bool) {
	room, ok := reg.rooms[name]
	return room, ok
}

// remove deletes the room from the registry. Callers are responsible
// for broadcasting the room-removed notification.
func (reg *Registry) remove(name string) {
	delete(reg.rooms, name)
}

// touch updates the room's last-activity timestamp.
func (reg *Registry) touch(name string) {
	if room, ok := reg.rooms[name]; ok {
		room.lastActivity = reg.now()
	}
}

// list returns a summary of every room, most recently active first.
// Ties sort by name so the order is deterministic.
func (reg *Registry) list() []types.RoomSummary {
	summaries := make([]types.RoomSummary, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		summaries = append(summaries, room.summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastActivity.Equal(summaries[j].LastActivity) {
			return summaries[i].Name < summaries[j].Name
		}
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})

	return summaries
}

func (reg *Registry) count() int {
	return len(reg.rooms)
}
