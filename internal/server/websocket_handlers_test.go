package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves env.app on a loopback port and returns its ws base URL.
func (e *testEnv) listen() string {
	e.t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(e.t, err)
	go func() { _ = e.app.Listener(ln) }()
	e.t.Cleanup(func() { _ = e.app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func dialChat(t *testing.T, base, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(base+"/ws/"+token, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.MessagePublic {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg models.MessagePublic
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)

	resp := env.do(http.MethodGet, "/ws/"+env.token(user), nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebSocket_InvalidTokenClosesWithPolicyViolation(t *testing.T) {
	env := newTestEnv(t)
	base := env.listen()

	conn := dialChat(t, base, "not-a-token")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "Invalid token", closeErr.Text)
}

func TestWebSocket_FlaggedAccountIsRefused(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("force_reset", true).Error)
	base := env.listen()

	conn := dialChat(t, base, env.token(user))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, "Password reset required", closeErr.Text)
	assert.False(t, env.srv.registry.Online(user.ID))
}

func TestWebSocket_PrivateMessageFanOut(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	alice := testutil.MakeUser(t, env.db, models.RoleUser, company)
	bob := testutil.MakeUser(t, env.db, models.RoleUser, company)
	carol := testutil.MakeUser(t, env.db, models.RoleUser, company)
	base := env.listen()

	aliceConn := dialChat(t, base, env.token(alice))
	bobConn := dialChat(t, base, env.token(bob))
	carolConn := dialChat(t, base, env.token(carol))
	require.Eventually(t, func() bool { return env.srv.registry.Count() == 3 }, 3*time.Second, 10*time.Millisecond)

	// A malformed frame is skipped and the connection stays usable.
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, aliceConn.WriteJSON(map[string]string{"target": uintString(bob.ID), "content": "meet at gate 3"}))

	got := readMessage(t, bobConn)
	assert.Equal(t, "meet at gate 3", got.Content)
	assert.Equal(t, alice.ID, got.SenderID)

	// The sender is part of the room's audience too.
	echo := readMessage(t, aliceConn)
	assert.Equal(t, got.ID, echo.ID)

	// The message was stored before delivery.
	var stored int64
	require.NoError(t, env.db.Model(&models.Message{}).Where("id = ?", got.ID).Count(&stored).Error)
	assert.Equal(t, int64(1), stored)

	// Follow-ups can address the room directly.
	require.NoError(t, bobConn.WriteJSON(map[string]string{"room_id": got.RoomID.String(), "content": "on my way"}))
	assert.Equal(t, "on my way", readMessage(t, aliceConn).Content)

	// Carol is not in the private room and receives nothing.
	require.NoError(t, carolConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := carolConn.ReadMessage()
	require.Error(t, err)
}

func TestWebSocket_HTTPMessagesAreDelivered(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	alice := testutil.MakeUser(t, env.db, models.RoleUser, company)
	bob := testutil.MakeUser(t, env.db, models.RoleUser, company)
	base := env.listen()

	bobConn := dialChat(t, base, env.token(bob))
	require.Eventually(t, func() bool { return env.srv.registry.Online(bob.ID) }, 3*time.Second, 10*time.Millisecond)

	resp := env.do(http.MethodPost, "/chat/channels/company/messages", map[string]string{"content": "shift change at 6"}, env.token(alice))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := readMessage(t, bobConn)
	assert.Equal(t, "shift change at 6", got.Content)
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	base := env.listen()

	conn := dialChat(t, base, env.token(user))
	require.Eventually(t, func() bool { return env.srv.registry.Online(user.ID) }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return !env.srv.registry.Online(user.ID) }, 3*time.Second, 10*time.Millisecond)
}

func TestWebSocket_PongRefreshesPresence(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	base := env.listen()
	key := "ws:last_seen:" + strconv.FormatUint(uint64(user.ID), 10)

	conn := dialChat(t, base, env.token(user))
	require.Eventually(t, func() bool { return env.mr.Exists(key) }, 3*time.Second, 10*time.Millisecond)

	env.mr.Del(key)
	require.NoError(t, conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second)))
	require.Eventually(t, func() bool { return env.mr.Exists(key) }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, env.mr.TTL(key) > 0)
}
