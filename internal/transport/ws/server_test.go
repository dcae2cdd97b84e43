package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/security"
	"github.com/cwrk-planet/coderjam/internal/service"
	"github.com/cwrk-planet/coderjam/internal/sqlite"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	padID  = "Pad123"
	padKey = "let-me-in"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testEnv struct {
	srv *httptest.Server
	hub *Hub
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "pads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hash, err := security.HashKey(padKey, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), domain.NewPad(padID, hash)))

	sessions := service.NewSessionService(
		store,
		service.NewGrantCache(store, 0),
		service.NewRegistry(),
		service.NewPersister(store, time.Second),
	)
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, sessions, opts).HandleWS))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, typ string, payload any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(map[string]any{"type": typ, "payload": payload}))
}

func recv(t *testing.T, c *websocket.Conn) inbound {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg inbound
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func recvState(t *testing.T, c *websocket.Conn) domain.PadState {
	t.Helper()
	msg := recv(t, c)
	require.Equal(t, service.EventPadStateUpdated, msg.Type)
	var st domain.PadState
	require.NoError(t, json.Unmarshal(msg.Payload, &st))
	return st
}

func recvError(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	msg := recv(t, c)
	require.Equal(t, service.EventError, msg.Type)
	var p service.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p.Message
}

func TestWS_SessionFlow(t *testing.T) {
	env := newTestEnv(t, Options{})
	a, b := env.dial(t), env.dial(t)

	send(t, a, TypeJoinPad, JoinPayload{PadID: padID, UserName: "alice", Key: padKey})
	snapA := recvState(t, a)
	require.Len(t, snapA.Users, 1)
	aliceID := snapA.Users[0].ID
	require.NotNil(t, snapA.OwnerID)
	assert.Equal(t, aliceID, *snapA.OwnerID)
	assert.Equal(t, domain.DefaultLanguage, *snapA.Language)

	send(t, b, TypeJoinPad, JoinPayload{PadID: padID, UserName: "bob", Key: padKey})
	snapB := recvState(t, b)
	require.Len(t, snapB.Users, 2)
	bobID := snapB.Users[1].ID
	assert.Equal(t, aliceID, *snapB.OwnerID)

	list := recvState(t, a)
	assert.Nil(t, list.Code)
	assert.Len(t, list.Users, 2)

	send(t, a, TypePadStateUpdate, map[string]any{"padId": padID, "code": "console.log(1)"})
	upd := recvState(t, b)
	require.NotNil(t, upd.Code)
	assert.Equal(t, "console.log(1)", *upd.Code)
	assert.Nil(t, upd.Language)
	assert.Nil(t, upd.Users)

	send(t, b, TypeUserRename, RenamePayload{PadID: padID, NewName: "Robert"})
	for _, c := range []*websocket.Conn{a, b} {
		msg := recv(t, c)
		require.Equal(t, service.EventUserRenamed, msg.Type)
		var p service.UserRenamed
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		assert.Equal(t, service.UserRenamed{PadID: padID, UserID: bobID, NewName: "Robert"}, p)
	}

	require.NoError(t, a.Close())
	left := recv(t, b)
	require.Equal(t, service.EventUserLeft, left.Type)
	var lp service.UserLeft
	require.NoError(t, json.Unmarshal(left.Payload, &lp))
	assert.Equal(t, aliceID, lp.UserID)

	after := recvState(t, b)
	require.NotNil(t, after.OwnerID)
	assert.Equal(t, bobID, *after.OwnerID)
	assert.Equal(t, "console.log(1)", *after.Code)
	require.Len(t, after.Users, 1)

	assert.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWS_Rejections(t *testing.T) {
	env := newTestEnv(t, Options{})
	c := env.dial(t)

	send(t, c, TypeJoinPad, JoinPayload{PadID: "bad!", Key: padKey})
	assert.Equal(t, "invalid pad id format", recvError(t, c))

	send(t, c, TypeJoinPad, JoinPayload{PadID: padID, Key: "wrong"})
	assert.Equal(t, "bad key", recvError(t, c))

	send(t, c, TypeJoinPad, JoinPayload{PadID: "QQQQQQ", Key: padKey})
	assert.Equal(t, "pad not found", recvError(t, c))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "malformed message", recvError(t, c))

	send(t, c, TypeJoinPad, "not an object")
	assert.Equal(t, "malformed message", recvError(t, c))

	// unknown events are ignored; the connection stays usable
	send(t, c, "chat", map[string]string{"text": "hi"})
	send(t, c, TypeJoinPad, JoinPayload{PadID: padID, UserName: "eve", Key: padKey})
	st := recvState(t, c)
	assert.Len(t, st.Users, 1)
}

func TestWS_RateLimited(t *testing.T) {
	env := newTestEnv(t, Options{MessagesPerSecond: 0.001, Burst: 1})
	c := env.dial(t)

	send(t, c, TypeJoinPad, JoinPayload{PadID: padID, UserName: "a", Key: padKey})
	recvState(t, c)

	send(t, c, TypePadStateUpdate, map[string]any{"padId": padID, "code": "x"})
	assert.Equal(t, "rate limit exceeded", recvError(t, c))
}

func TestWS_OriginCheck(t *testing.T) {
	env := newTestEnv(t, Options{AllowedOrigins: []string{"https://pad.example"}})
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://pad.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestHub_CloseAll(t *testing.T) {
	env := newTestEnv(t, Options{})
	c1, c2 := env.dial(t), env.dial(t)
	require.Eventually(t, func() bool { return env.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	env.hub.CloseAll()

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := c.ReadMessage()
		assert.Error(t, err)
	}
	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
