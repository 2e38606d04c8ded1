package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatbroker/internal/server"
	"github.com/teris-io/shortid"
)

type SessionResponse struct {
	ConnectionId string `json:"connection_id"`
}

// createSession mints a guest session: an opaque connection id inside
// a signed cookie. The id identifies the connection in logs and
// metrics; the username is established later, in-protocol, on the
// first join.
func (s *ChatBrokerApp) createSession(w http.ResponseWriter, r *http.Request) {
	connectionId, err := shortid.Generate()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tokenString, err := s.generateToken(connectionId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(defaultExp),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.writeJson(w, http.StatusCreated, SessionResponse{ConnectionId: connectionId})
}

func (s *ChatBrokerApp) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *ChatBrokerApp) serveWs(w http.ResponseWriter, r *http.Request) {
	connectionId, ok := ConnectionId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(connectionId, conn, s.cs, s.log, s.eventRateLimit)
	s.cs.RegisterChan <- client

	go client.Write()
	go client.Read()
}

func (s *ChatBrokerApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Println("error encoding response:", err)
	}
}
