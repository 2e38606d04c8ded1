package server

// Session is the server-side state for one live connection. It is
// created when the connection registers and destroyed on disconnect,
// at which point the session leaves every room it had joined.
//
// A session starts unidentified: username is empty until the first
// successful join. Room membership survives switches; activeRoom, when
// set, is always an element of joinedRooms.
type Session struct {
	connectionId string
	client       *Client
	username     string
	joinedRooms  []string
	activeRoom   string
}

func newSession(c *Client) *Session {
	return &Session{
		connectionId: c.id,
		client:       c,
	}
}

func (s *Session) hasJoined(roomName string) bool {
	for _, name := range s.joinedRooms {
		if name == roomName {
			return true
		}
	}

	return false
}

// joinRoom records roomName in the session's joined set, preserving
// join order. Idempotent.
func (s *Session) joinRoom(roomName string) {
	if !s.hasJoined(roomName) {
		s.joinedRooms = append(s.joinedRooms, roomName)
	}
}
