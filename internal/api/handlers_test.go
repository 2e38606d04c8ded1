package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatbroker/internal/config"
	"github.com/npezzotti/go-chatbroker/internal/server"
	"github.com/npezzotti/go-chatbroker/internal/stats"
	"github.com/npezzotti/go-chatbroker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

func newTestApp(t *testing.T) *ChatBrokerApp {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return(nil)
	su.On("Incr", mock.Anything).Return(nil).Maybe()
	su.On("Decr", mock.Anything).Return(nil).Maybe()

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(logger, su)
	require.NoError(t, err, "failed to create chat server")

	cfg, err := config.NewConfig("localhost:8000", testSigningKey, nil, 100)
	require.NoError(t, err, "failed to create config")

	return NewChatBrokerApp(http.NewServeMux(), logger, cs, cfg)
}

func Test_createSession(t *testing.T) {
	s := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ConnectionId, "expected a connection id in the response")

	var tokenCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieKey {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie, "expected session cookie to be set")
	assert.True(t, tokenCookie.HttpOnly)

	connectionId, err := s.extractConnectionIdFromToken(tokenCookie.Value)
	require.NoError(t, err)
	assert.Equal(t, resp.ConnectionId, connectionId, "expected cookie to carry the returned id")
}

func Test_healthz(t *testing.T) {
	s := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func Test_serveWs_unauthorized(t *testing.T) {
	s := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expected upgrade to require a session cookie")
}

// End to end: create a guest session, dial the websocket and join a
// room over the wire.
func Test_serveWs_joinRoom(t *testing.T) {
	s := newTestApp(t)
	go s.cs.Run()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.cs.Shutdown(ctx))
	}()

	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/session", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == tokenCookieKey {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie)

	wsUrl := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Add("Cookie", tokenCookie.Name+"="+tokenCookie.Value)

	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, header)
	require.NoError(t, err, "failed to dial websocket")
	defer conn.Close()

	join := map[string]any{
		"id":   1,
		"join": map[string]string{"username": "Ana", "room_name": "General"},
	}
	require.NoError(t, conn.WriteJSON(join))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg server.ServerMessage
	require.NoError(t, conn.ReadJSON(&msg), "expected a reply to the join")

	for msg.RoomInfo == nil {
		require.NoError(t, conn.ReadJSON(&msg), "expected room-info after join")
	}

	assert.Equal(t, "General", msg.RoomInfo.Name)
	assert.True(t, msg.RoomInfo.IsAdmin, "expected creator to be admin")
	assert.Equal(t, []string{"Ana"}, msg.RoomInfo.Members)
}
