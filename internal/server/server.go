package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/npezzotti/go-chatbroker/internal/stats"
	"github.com/npezzotti/go-chatbroker/internal/types"
)

const (
	statActiveConnections = "ActiveConnections"
	statActiveRooms       = "ActiveRooms"
	statMessagesPosted    = "MessagesPosted"
	statMessagesDeleted   = "MessagesDeleted"
)

type stopReq struct {
	done chan struct{}
}

// ChatServer coordinates all rooms and sessions. A single dispatch
// goroutine (Run) owns the registry, the session table and every
// room's mutable state; client pumps only parse events and forward
// them on eventChan. That makes every check-then-mutate sequence
// (create-if-absent, promote-if-admin, delete-if-admin) atomic with
// no locks.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	registry       *Registry
	dispatcher     *Dispatcher
	eventChan      chan *ClientMessage
	RegisterChan   chan *Client
	DeRegisterChan chan *Client
	stop           chan stopReq
	done           chan struct{}
	lastMessageId  int64
}

func NewChatServer(logger *log.Logger, su stats.StatsProvider) (*ChatServer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cs := &ChatServer{
		log:            logger,
		stats:          su,
		registry:       NewRegistry(),
		dispatcher:     newDispatcher(logger),
		eventChan:      make(chan *ClientMessage, 256),
		RegisterChan:   make(chan *Client),
		DeRegisterChan: make(chan *Client),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}

	su.RegisterMetric(statActiveConnections)
	su.RegisterMetric(statActiveRooms)
	su.RegisterMetric(statMessagesPosted)
	su.RegisterMetric(statMessagesDeleted)

	return cs, nil
}

// Run processes all inbound events on a single goroutine until
// Shutdown is called.
func (cs *ChatServer) Run() {
	for {
		select {
		case msg := <-cs.eventChan:
			cs.dispatchEvent(msg)
		case c := <-cs.RegisterChan:
			cs.addSession(c)
		case c := <-cs.DeRegisterChan:
			cs.handleDisconnect(c)
		case req := <-cs.stop:
			cs.log.Println("stopping clients")
			for c := range cs.dispatcher.sessions {
				c.stopClient()
			}

			close(req.done)
			close(cs.done)
			return
		}
	}
}

// Shutdown stops the dispatch loop and all connected clients. It
// returns early with the context's error if the loop does not stop in
// time.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) addSession(c *Client) {
	cs.log.Printf("registering connection %q", c.id)
	cs.dispatcher.addSession(newSession(c))
	cs.stats.Incr(statActiveConnections)
}

func (cs *ChatServer) dispatchEvent(msg *ClientMessage) {
	if msg.client == nil || !msg.valid() {
		if msg.client != nil {
			msg.client.queueMessage(ErrInvalidMessage(msg.Id))
		}
		return
	}

	switch {
	case msg.Join != nil:
		cs.handleJoin(msg)
	case msg.Switch != nil:
		cs.handleSwitch(msg)
	case msg.Publish != nil:
		cs.handlePublish(msg)
	case msg.Delete != nil:
		cs.handleDelete(msg)
	case msg.AddAdmin != nil:
		cs.handleAddAdmin(msg)
	case msg.ListRooms != nil:
		cs.handleListRooms(msg)
	case msg.ListUsers != nil:
		cs.handleListUsers(msg)
	}
}

// handleJoin creates the room on first join, records membership and
// makes the room the session's active room. The joining session gets a
// full snapshot; everyone else learns about it through users-updated,
// room-activity and, for new rooms, a global room-created event.
func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	s, ok := cs.dispatcher.session(msg.client)
	if !ok {
		return
	}

	username := truncate(strings.TrimSpace(msg.Join.Username), maxUsernameLen)
	roomName := truncate(strings.TrimSpace(msg.Join.RoomName), maxRoomNameLen)
	if username == "" || roomName == "" {
		msg.client.queueMessage(ErrBadRequest(msg.Id, "username and room name are required"))
		return
	}

	room, created := cs.registry.getOrCreate(roomName, username)
	if created {
		cs.log.Printf("room %q created by %q", roomName, username)
		cs.stats.Incr(statActiveRooms)
	}

	alreadyJoined := s.hasJoined(roomName)
	if !alreadyJoined {
		room.addMember(username)
		s.joinRoom(roomName)
	}

	s.username = username
	s.activeRoom = roomName

	msg.client.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		RoomInfo:    room.snapshot(username),
	})

	if alreadyJoined {
		// re-joining a joined room is a switch, not a join
		return
	}

	if created {
		summary := room.summary()
		cs.dispatcher.notifyAll(&ServerMessage{
			BaseMessage:  BaseMessage{Timestamp: Now()},
			Notification: &Notification{RoomCreated: &summary},
		})
	}

	cs.notifyUsersUpdated(room)

	if !created {
		cs.dispatcher.notifyRoom(roomName, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				Notice: &Notice{
					RoomName: roomName,
					Text:     fmt.Sprintf("%s has joined the room.", username),
				},
			},
		})
	}

	cs.log.Printf("%q joined room %q", username, roomName)
}

// handleSwitch changes the session's active room without re-joining.
// Only rooms the session has already joined are valid targets; stale
// or never-joined targets are silently ignored.
func (cs *ChatServer) handleSwitch(msg *ClientMessage) {
	s, ok := cs.dispatcher.session(msg.client)
	if !ok {
		return
	}

	roomName := msg.Switch.RoomName
	if !s.hasJoined(roomName) {
		return
	}

	room, ok := cs.registry.get(roomName)
	if !ok {
		return
	}

	s.activeRoom = roomName
	msg.client.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		RoomInfo:    room.snapshot(s.username),
	})

	cs.log.Printf("%q switched to room %q", s.username, roomName)
}

// handlePublish appends a message to the session's active room and
// fans it out. The author is not required to be a current member of
// the room; membership is implied by the active-room requirement.
func (cs *ChatServer) handlePublish(msg *ClientMessage) {
	s, ok := cs.dispatcher.session(msg.client)
	if !ok || s.username == "" || s.activeRoom == "" {
		return
	}

	room, ok := cs.registry.get(s.activeRoom)
	if !ok {
		return
	}

	message := types.Message{
		Id:        cs.nextMessageId(),
		Author:    s.username,
		Text:      msg.Publish.Text,
		Room:      room.name,
		CreatedAt: Now(),
	}

	room.appendMessage(message)
	cs.stats.Incr(statMessagesPosted)

	cs.dispatcher.notifyRoom(room.name, &ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: message.CreatedAt},
		Message:     &message,
	})

	cs.dispatcher.notifyAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			RoomActivity: &RoomActivity{
				Name:        room.name,
				MemberCount: len(room.members),
				LastMessage: message.Text,
				Timestamp:   message.CreatedAt,
			},
		},
	})
}

// handleDelete removes a message from a room's history if the actor is
// an admin of that room and the id exists. Anything else is a silent
// no-op so non-admins get no feedback about admin-only affordances.
func (cs *ChatServer) handleDelete(msg *ClientMessage) {
	s, ok := cs.dispatcher.session(msg.client)
	if !ok {
		return
	}

	room, ok := cs.registry.get(msg.Delete.RoomName)
	if !ok {
		return
	}

	if !room.deleteMessage(s.username, msg.Delete.Id) {
		return
	}

	cs.stats.Incr(statMessagesDeleted)
	cs.log.Printf("%q deleted message %q in room %q", s.username, msg.Delete.Id, room.name)

	cs.dispatcher.notifyRoom(room.name, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			MessageDeleted: &MessageDeleted{
				Id:       msg.Delete.Id,
				RoomName: room.name,
			},
		},
	})
}

// handleAddAdmin promotes the target if the actor is an admin and the
// target is not already one; otherwise silent no-op.
func (cs *ChatServer) handleAddAdmin(msg *ClientMessage) {
	s, ok := cs.dispatcher.session(msg.client)
	if !ok {
		return
	}

	room, ok := cs.registry.get(msg.AddAdmin.RoomName)
	if !ok {
		return
	}

	target := msg.AddAdmin.Username
	if !room.promote(s.username, target) {
		return
	}

	cs.log.Printf("%q promoted %q to admin in room %q", s.username, target, room.name)

	cs.dispatcher.notifyRoom(room.name, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			Notice: &Notice{
				RoomName: room.name,
				Text:     fmt.Sprintf("%s is now an administrator.", target),
			},
		},
	})

	cs.notifyUsersUpdated(room)

	cs.dispatcher.notifyRoom(room.name, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			AdminGranted: &AdminGranted{
				Username: target,
				RoomName: room.name,
			},
		},
	})
}

func (cs *ChatServer) handleListRooms(msg *ClientMessage) {
	msg.client.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		RoomList:    &RoomList{Rooms: cs.registry.list()},
	})
}

func (cs *ChatServer) handleListUsers(msg *ClientMessage) {
	room, ok := cs.registry.get(msg.ListUsers.RoomName)
	if !ok {
		return
	}

	msg.client.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		Notification: &Notification{
			UsersUpdated: usersUpdated(room),
		},
	})
}

// handleDisconnect leaves every room the session had joined, deleting
// rooms whose member list becomes empty, then destroys the session.
func (cs *ChatServer) handleDisconnect(c *Client) {
	s, ok := cs.dispatcher.session(c)
	if !ok {
		return
	}

	cs.log.Printf("removing connection %q", s.connectionId)
	cs.dispatcher.removeSession(c)
	cs.stats.Decr(statActiveConnections)

	if s.username == "" {
		return
	}

	for _, roomName := range s.joinedRooms {
		room, ok := cs.registry.get(roomName)
		if !ok {
			continue
		}

		room.removeMember(s.username)

		if len(room.members) == 0 {
			cs.registry.remove(roomName)
			cs.stats.Decr(statActiveRooms)
			cs.log.Printf("room %q is empty, removing", roomName)

			cs.dispatcher.notifyAll(&ServerMessage{
				BaseMessage:  BaseMessage{Timestamp: Now()},
				Notification: &Notification{RoomRemoved: &RoomRemoved{Name: roomName}},
			})
			continue
		}

		cs.notifyUsersUpdated(room)

		cs.dispatcher.notifyRoom(roomName, &ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				Notice: &Notice{
					RoomName: roomName,
					Text:     fmt.Sprintf("%s has left the room.", s.username),
				},
			},
		})
	}
}

// notifyUsersUpdated sends the room's member and admin lists to the
// room and a member-count activity update to every connection, keeping
// room-browser views in sync without requiring every client to have
// joined every room.
func (cs *ChatServer) notifyUsersUpdated(room *Room) {
	cs.dispatcher.notifyRoom(room.name, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			UsersUpdated: usersUpdated(room),
		},
	})

	cs.dispatcher.notifyAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			RoomActivity: &RoomActivity{
				Name:        room.name,
				MemberCount: len(room.members),
				Timestamp:   Now(),
			},
		},
	})
}

func usersUpdated(room *Room) *UsersUpdated {
	return &UsersUpdated{
		RoomName: room.name,
		Members:  append([]string(nil), room.members...),
		Admins:   room.adminList(),
	}
}

// nextMessageId returns a time-based id that is strictly increasing
// even when the clock has not advanced between calls. Only the
// dispatch goroutine calls it.
func (cs *ChatServer) nextMessageId() string {
	id := time.Now().UnixMilli()
	if id <= cs.lastMessageId {
		id = cs.lastMessageId + 1
	}
	cs.lastMessageId = id

	return strconv.FormatInt(id, 10)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
