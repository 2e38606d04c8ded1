package server

import (
	"slices"
	"time"

	"github.com/npezzotti/go-chatbroker/internal/types"
)

const (
	maxUsernameLen = 20
	maxRoomNameLen = 30
)

// Room holds the full state of one chat room. A room exists in the
// registry iff it has at least one member; the last member leaving
// deletes it. Rooms are mutated only from the ChatServer dispatch
// goroutine, so no locking is required.
type Room struct {
	name         string
	createdBy    string
	members      []string
	admins       map[string]struct{}
	history      []types.Message
	lastActivity time.Time
}

func newRoom(name, creator string, now time.Time) *Room {
	return &Room{
		name:         name,
		createdBy:    creator,
		admins:       map[string]struct{}{creator: {}},
		lastActivity: now,
	}
}

// addMember appends username to the member list in join order. Adding
// a username that is already a member is a no-op. Reports whether the
// member list changed.
func (r *Room) addMember(username string) bool {
	if r.hasMember(username) {
		return false
	}

	r.members = append(r.members, username)
	return true
}

// removeMember removes username from the member list, preserving the
// join order of the remaining members. The creator stays in the admin
// set even after leaving.
func (r *Room) removeMember(username string) bool {
	for i, m := range r.members {
		if m == username {
			r.members = slices.Delete(r.members, i, i+1)
			return true
		}
	}

	return false
}

func (r *Room) hasMember(username string) bool {
	return slices.Contains(r.members, username)
}

func (r *Room) isAdmin(username string) bool {
	_, ok := r.admins[username]
	return ok
}

// promote adds target to the admin set if actor is already an admin
// and target is not. Any other combination is a silent no-op so that
// non-admins learn nothing about the admin set.
func (r *Room) promote(actor, target string) bool {
	if !r.isAdmin(actor) || r.isAdmin(target) {
		return false
	}

	r.admins[target] = struct{}{}
	return true
}

// appendMessage appends msg to the history and marks the room active.
func (r *Room) appendMessage(msg types.Message) {
	r.history = append(r.history, msg)
	r.lastActivity = msg.CreatedAt
}

// deleteMessage removes the message with the given id if actor is an
// admin of the room and the id is present. Reports whether the history
// changed.
func (r *Room) deleteMessage(actor, id string) bool {
	if !r.isAdmin(actor) {
		return false
	}

	for i, m := range r.history {
		if m.Id == id {
			r.history = slices.Delete(r.history, i, i+1)
			return true
		}
	}

	return false
}

func (r *Room) adminList() []string {
	admins := make([]string, 0, len(r.admins))
	for a := range r.admins {
		admins = append(admins, a)
	}
	slices.Sort(admins)

	return admins
}

// snapshot builds the room-info view sent to a joining or switching
// session.
func (r *Room) snapshot(username string) *RoomInfo {
	return &RoomInfo{
		Name:    r.name,
		IsAdmin: r.isAdmin(username),
		Members: slices.Clone(r.members),
		History: slices.Clone(r.history),
	}
}

func (r *Room) summary() types.RoomSummary {
	return types.RoomSummary{
		Name:         r.name,
		MemberCount:  len(r.members),
		Creator:      r.createdBy,
		LastActivity: r.lastActivity,
	}
}
