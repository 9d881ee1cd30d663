package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"room-service/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.AddClient("ROOMCODEAA", nil, ConnInfo{ConnID: "c1", User: "alice"})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}
	if hub.ConnCount("ROOMCODEAA") != 1 {
		t.Fatalf("expected one connection")
	}

	hub.RemoveClient("ROOMCODEAA", nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room to be removed")
	}
	if len(hub.connInfo) != 0 {
		t.Fatalf("expected conn info to be removed")
	}
}

// wsPair dials a throwaway websocket server and returns both ends of the
// connection so the server side can be registered in a hub.
func wsPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	upg := websocket.Upgrader{}
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upg.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connCh <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-connCh
	t.Cleanup(func() { server.Close() })
	return server, client
}

func readEvent(t *testing.T, conn *websocket.Conn) models.RoomEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.RoomEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func requireNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestBroadcastToRoomReachesAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server1, client1 := wsPair(t)
	server2, client2 := wsPair(t)
	hub.AddClient("ROOMCODEAA", server1, ConnInfo{ConnID: "c1", User: "alice"})
	hub.AddClient("ROOMCODEAA", server2, ConnInfo{ConnID: "c2", User: "bob"})

	hub.BroadcastToRoom("ROOMCODEAA", models.RoomEvent{
		Type:   models.EventRoomDeleted,
		RoomID: "ROOMCODEAA",
	})

	for _, client := range []*websocket.Conn{client1, client2} {
		event := readEvent(t, client)
		require.Equal(t, models.EventRoomDeleted, event.Type)
		require.Equal(t, "ROOMCODEAA", event.RoomID)
	}
}

func TestBroadcastToRoomExceptSkipsOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server1, client1 := wsPair(t)
	server2, client2 := wsPair(t)
	hub.AddClient("ROOMCODEAA", server1, ConnInfo{ConnID: "c1", User: "alice"})
	hub.AddClient("ROOMCODEAA", server2, ConnInfo{ConnID: "c2", User: "bob"})

	hub.BroadcastToRoomExcept("ROOMCODEAA", server1, models.RoomEvent{
		Type:     models.EventTyping,
		RoomID:   "ROOMCODEAA",
		User:     "alice",
		IsTyping: true,
	})

	event := readEvent(t, client2)
	require.Equal(t, models.EventTyping, event.Type)
	require.True(t, event.IsTyping)

	requireNoEvent(t, client1)
}

func TestCloseRoomClosesConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	server1, client1 := wsPair(t)
	hub.AddClient("ROOMCODEAA", server1, ConnInfo{ConnID: "c1", User: "alice"})

	hub.CloseRoom("ROOMCODEAA")

	require.Equal(t, 0, hub.ConnCount("ROOMCODEAA"))
	require.NoError(t, client1.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client1.ReadMessage()
	require.Error(t, err)
}
