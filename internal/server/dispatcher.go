package server

import (
	"log"
)

// Dispatcher fans server messages out to connected sessions. It reads
// the session table owned by the ChatServer dispatch goroutine and
// must only be called from that goroutine. Delivery is best effort,
// fire once: each message is queued on the target client's buffered
// send channel and dropped if the client cannot keep up.
type Dispatcher struct {
	log      *log.Logger
	sessions map[*Client]*Session
}

func newDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		log:      logger,
		sessions: make(map[*Client]*Session),
	}
}

func (d *Dispatcher) addSession(s *Session) {
	d.sessions[s.client] = s
}

func (d *Dispatcher) removeSession(c *Client) {
	delete(d.sessions, c)
}

func (d *Dispatcher) session(c *Client) (*Session, bool) {
	s, ok := d.sessions[c]
	return s, ok
}

// notifyRoom delivers msg to every session that has joined the room,
// skipping msg.SkipClient if set. Membership, not active focus,
// decides delivery so backgrounded rooms stay current.
func (d *Dispatcher) notifyRoom(roomName string, msg *ServerMessage) {
	for client, session := range d.sessions {
		if client == msg.SkipClient {
			continue
		}
		if !session.hasJoined(roomName) {
			continue
		}

		if !client.queueMessage(msg) {
			d.log.Printf("dropping room message for connection %q", session.connectionId)
		}
	}
}

// notifyAll delivers msg to every connection, joined or not. Used for
// room-browser events (room-created, room-removed, room-activity).
func (d *Dispatcher) notifyAll(msg *ServerMessage) {
	for client, session := range d.sessions {
		if client == msg.SkipClient {
			continue
		}

		if !client.queueMessage(msg) {
			d.log.Printf("dropping global message for connection %q", session.connectionId)
		}
	}
}
