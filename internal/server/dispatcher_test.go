package server

import (
	"testing"

	"github.com/npezzotti/go-chatbroker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_notifyRoom(t *testing.T) {
	d := newDispatcher(testutil.TestLogger(t))

	member := newTestClient(t, "conn-member")
	memberSession := newSession(member)
	memberSession.joinRoom("general")
	d.addSession(memberSession)

	outsider := newTestClient(t, "conn-outsider")
	d.addSession(newSession(outsider))

	msg := &ServerMessage{Notification: &Notification{Notice: &Notice{RoomName: "general", Text: "hi"}}}
	d.notifyRoom("general", msg)

	require.Len(t, drainMessages(member), 1, "expected delivery to room member")
	assert.Empty(t, drainMessages(outsider), "expected no delivery outside the room")
}

func Test_notifyRoom_skipClient(t *testing.T) {
	d := newDispatcher(testutil.TestLogger(t))

	a := newTestClient(t, "conn-a")
	sa := newSession(a)
	sa.joinRoom("general")
	d.addSession(sa)

	b := newTestClient(t, "conn-b")
	sb := newSession(b)
	sb.joinRoom("general")
	d.addSession(sb)

	d.notifyRoom("general", &ServerMessage{
		Notification: &Notification{Notice: &Notice{RoomName: "general", Text: "hi"}},
		SkipClient:   a,
	})

	assert.Empty(t, drainMessages(a), "expected skipped client to receive nothing")
	assert.Len(t, drainMessages(b), 1)
}

func Test_notifyRoom_backgroundedRoom(t *testing.T) {
	d := newDispatcher(testutil.TestLogger(t))

	c := newTestClient(t, "conn-1")
	s := newSession(c)
	s.joinRoom("general")
	s.joinRoom("random")
	s.activeRoom = "random"
	d.addSession(s)

	d.notifyRoom("general", &ServerMessage{
		Notification: &Notification{Notice: &Notice{RoomName: "general", Text: "hi"}},
	})

	assert.Len(t, drainMessages(c), 1, "expected delivery based on membership, not focus")
}

func Test_notifyAll(t *testing.T) {
	d := newDispatcher(testutil.TestLogger(t))

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(t, "conn")
		d.addSession(newSession(clients[i]))
	}

	d.notifyAll(&ServerMessage{Notification: &Notification{RoomRemoved: &RoomRemoved{Name: "general"}}})

	for i, c := range clients {
		assert.Lenf(t, drainMessages(c), 1, "expected client %d to receive global event", i)
	}
}

func Test_notify_fullQueueDropped(t *testing.T) {
	d := newDispatcher(testutil.TestLogger(t))

	c := &Client{
		id:   "conn-slow",
		log:  testutil.TestLogger(t),
		send: make(chan *ServerMessage, 1),
		stop: make(chan struct{}),
	}
	s := newSession(c)
	s.joinRoom("general")
	d.addSession(s)

	msg := &ServerMessage{Notification: &Notification{Notice: &Notice{RoomName: "general", Text: "hi"}}}
	d.notifyRoom("general", msg)
	d.notifyRoom("general", msg) // queue full, dropped

	assert.Len(t, drainMessages(c), 1, "expected overflow to be dropped, not block")
}
