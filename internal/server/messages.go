package server

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-chatbroker/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is an inbound client event. Exactly one of the request
// fields is set; anything else is rejected at the router boundary
// before it reaches the coordination core.
type ClientMessage struct {
	BaseMessage
	Join      *Join      `json:"join,omitempty"`
	Switch    *Switch    `json:"switch,omitempty"`
	Publish   *Publish   `json:"publish,omitempty"`
	Delete    *Delete    `json:"delete,omitempty"`
	AddAdmin  *AddAdmin  `json:"add_admin,omitempty"`
	ListRooms *ListRooms `json:"list_rooms,omitempty"`
	ListUsers *ListUsers `json:"list_users,omitempty"`
	client    *Client
}

// valid reports whether exactly one request field is set.
func (m *ClientMessage) valid() bool {
	n := 0
	if m.Join != nil {
		n++
	}
	if m.Switch != nil {
		n++
	}
	if m.Publish != nil {
		n++
	}
	if m.Delete != nil {
		n++
	}
	if m.AddAdmin != nil {
		n++
	}
	if m.ListRooms != nil {
		n++
	}
	if m.ListUsers != nil {
		n++
	}

	return n == 1
}

type Join struct {
	Username string `json:"username"`
	RoomName string `json:"room_name"`
}

type Switch struct {
	RoomName string `json:"room_name"`
}

type Publish struct {
	Text string `json:"text"`
}

type Delete struct {
	Id       string `json:"id"`
	RoomName string `json:"room_name"`
}

type AddAdmin struct {
	Username string `json:"username"`
	RoomName string `json:"room_name"`
}

type ListRooms struct{}

type ListUsers struct {
	RoomName string `json:"room_name"`
}

// ServerMessage is an outbound event: a direct response to the
// requester (response, room_info, room_list, users), a room message,
// or a notification fanned out by the dispatcher.
type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	RoomInfo     *RoomInfo      `json:"room_info,omitempty"`
	RoomList     *RoomList      `json:"room_list,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	SkipClient   *Client        `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

// RoomInfo is the snapshot sent to a session that joins or switches to
// a room.
type RoomInfo struct {
	Name    string          `json:"name"`
	IsAdmin bool            `json:"is_admin"`
	Members []string        `json:"members"`
	History []types.Message `json:"history"`
}

type RoomList struct {
	Rooms []types.RoomSummary `json:"rooms"`
}

type Notification struct {
	UsersUpdated   *UsersUpdated      `json:"users_updated,omitempty"`
	MessageDeleted *MessageDeleted    `json:"message_deleted,omitempty"`
	AdminGranted   *AdminGranted      `json:"admin_granted,omitempty"`
	Notice         *Notice            `json:"notice,omitempty"`
	RoomCreated    *types.RoomSummary `json:"room_created,omitempty"`
	RoomRemoved    *RoomRemoved       `json:"room_removed,omitempty"`
	RoomActivity   *RoomActivity      `json:"room_activity,omitempty"`
}

type UsersUpdated struct {
	RoomName string   `json:"room_name"`
	Members  []string `json:"members"`
	Admins   []string `json:"admins"`
}

type MessageDeleted struct {
	Id       string `json:"id"`
	RoomName string `json:"room_name"`
}

type AdminGranted struct {
	Username string `json:"username"`
	RoomName string `json:"room_name"`
}

type Notice struct {
	RoomName string `json:"room_name"`
	Text     string `json:"text"`
}

type RoomRemoved struct {
	Name string `json:"name"`
}

// RoomActivity is the global room-browser update emitted whenever a
// room's membership or history changes.
type RoomActivity struct {
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	LastMessage string    `json:"last_message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NoErrOK(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
		},
	}
}

func ErrBadRequest(id int, reason string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func ErrTooManyRequests(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusTooManyRequests,
			Error:        "rate limit exceeded",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
