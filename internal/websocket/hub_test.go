package websocket

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"agent-builder/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Type   string            `json:"type"`
	ChatID uint              `json:"chat_id"`
	Data   models.DebugEvent `json:"data"`
}

func newHubServer(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(origins)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.URL.Query().Get("chat"))
		_ = hub.ServeChat(w, r, uint(id))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, chatID uint) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?chat=" + strconv.Itoa(int(chatID))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello received
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, MessageTypeConnected, hello.Type)
	require.Equal(t, chatID, hello.ChatID)
	return conn
}

func TestPublishReachesOnlyChatSubscribers(t *testing.T) {
	hub, srv := newHubServer(t, nil)
	watcher := dial(t, srv, 1)
	other := dial(t, srv, 2)

	require.Eventually(t, func() bool { return hub.ClientCount(1) == 1 && hub.ClientCount(2) == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(&models.DebugEvent{ID: 7, ChatID: 1, Type: models.DebugSuccess, Message: "Message sent by Helper"})

	var msg received
	require.NoError(t, watcher.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, watcher.ReadJSON(&msg))
	assert.Equal(t, MessageTypeDebugEvent, msg.Type)
	assert.Equal(t, uint(1), msg.ChatID)
	assert.Equal(t, uint(7), msg.Data.ID)
	assert.Equal(t, models.DebugSuccess, msg.Data.Type)
	assert.Equal(t, "Message sent by Helper", msg.Data.Message)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := newHubServer(t, nil)
	conn := dial(t, srv, 3)
	require.Eventually(t, func() bool { return hub.ClientCount(3) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(3) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownClosesConnections(t *testing.T) {
	hub, srv := newHubServer(t, nil)
	conn := dial(t, srv, 4)
	require.Eventually(t, func() bool { return hub.ClientCount(4) == 1 }, time.Second, 10*time.Millisecond)

	hub.Shutdown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount(4))

	assert.NotPanics(t, func() {
		hub.Publish(&models.DebugEvent{ChatID: 4, Type: models.DebugInfo, Message: "late"})
		hub.Shutdown()
	})
}

func TestOriginCheck(t *testing.T) {
	_, srv := newHubServer(t, []string{"http://localhost:5173/"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?chat=1"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:5173")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestWildcardOrigin(t *testing.T) {
	_, srv := newHubServer(t, []string{"*"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?chat=1"

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://anywhere.example"}})
	require.NoError(t, err)
	conn.Close()
}
