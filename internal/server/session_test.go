package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_newSession(t *testing.T) {
	c := newTestClient(t, "conn-1")
	s := newSession(c)

	assert.Equal(t, "conn-1", s.connectionId)
	assert.Empty(t, s.username, "expected session to start unidentified")
	assert.Empty(t, s.joinedRooms)
	assert.Empty(t, s.activeRoom)
}

func Test_joinRoom(t *testing.T) {
	s := newSession(newTestClient(t, "conn-1"))

	s.joinRoom("general")
	s.joinRoom("random")
	s.joinRoom("general")

	assert.Equal(t, []string{"general", "random"}, s.joinedRooms, "expected join order without duplicates")
	assert.True(t, s.hasJoined("general"))
	assert.False(t, s.hasJoined("secret"))
}
