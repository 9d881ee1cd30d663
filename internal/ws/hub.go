package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"room-service/internal/models"
	"room-service/internal/observability"
)

// Hub maintains the live websocket connections per room and fans events out
// to them. Fan-out is fire-and-forget: a dead connection is closed and
// removed, never retried or buffered for.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
		logger:   logger,
	}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(roomID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	if _, ok := h.connInfo[roomID]; !ok {
		h.connInfo[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[roomID][conn] = info
}

// RemoveClient removes a websocket connection from a room.
func (h *Hub) RemoveClient(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if infos, ok := h.connInfo[roomID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, roomID)
		}
	}
}

// BroadcastToRoom delivers the event to every connection currently joined to
// the room, including the originator.
func (h *Hub) BroadcastToRoom(roomID string, event models.RoomEvent) {
	h.broadcast(roomID, nil, event)
}

// BroadcastToRoomExcept delivers the event to every connection in the room
// except one. Used only for typing indicators.
func (h *Hub) BroadcastToRoomExcept(roomID string, except *websocket.Conn, event models.RoomEvent) {
	h.broadcast(roomID, except, event)
}

// SendToConn delivers the event to a single connection. Used only for the
// join-time history replay.
func (h *Hub) SendToConn(conn *websocket.Conn, event models.RoomEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// CloseRoom closes every connection in the room and drops its hub state.
// Used when the room itself is destroyed.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	conns := h.rooms[roomID]
	delete(h.rooms, roomID)
	delete(h.connInfo, roomID)
	h.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
}

// ConnCount reports the number of live connections in a room.
func (h *Hub) ConnCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) broadcast(roomID string, except *websocket.Conn, event models.RoomEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		if conn != except {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("broadcast marshal failed", zap.String("event", event.Type), zap.Error(err))
		return
	}

	observability.IncBroadcast(event.Type)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("websocket write failed",
				zap.String("room_id", roomID),
				zap.String("event", event.Type),
				zap.Error(err))
			conn.Close()
			h.RemoveClient(roomID, conn)
			observability.IncWSEvent("ws_error")
		}
	}
}
