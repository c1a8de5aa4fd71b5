// internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Team membership messages
	MessageTeamMemberAdded          MessageType = "team_member_added"
	MessageTeamMemberRemoved        MessageType = "team_member_removed"
	MessageTeamMemberRoleUpdated    MessageType = "team_member_role_updated"
	MessageTeamOwnershipTransferred MessageType = "team_ownership_transferred"
	MessageTeamPlanChanged          MessageType = "team_plan_changed"

	// Invitation messages
	MessageInvitationReceived MessageType = "invitation_received"

	// System messages
	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool // team:<id>, user:<id>
	mu       sync.Mutex
	lastPing time.Time
}

// Hub maintains the set of active clients and routes messages to rooms.
type Hub struct {
	clients     map[*Client]bool
	roomClients map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	roomBroadcast chan *RoomMessage

	log *zap.SugaredLogger
	mu  sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
}

// NewHub creates a new Hub
func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		roomBroadcast: make(chan *RoomMessage, 256),
		log:           log,
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case <-pingTicker.C:
			h.pingClients()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.log.Debugw("Client registered", "user_id", client.UserID, "client_id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	client.mu.Lock()
	for room := range client.Rooms {
		h.removeFromRoom(client, room)
	}
	client.mu.Unlock()

	close(client.Send)
	h.log.Debugw("Client disconnected", "user_id", client.UserID, "client_id", client.ID, "total_clients", len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
	h.roomClients = make(map[string]map[*Client]bool)
}

// removeFromRoom expects h.mu to be held.
func (h *Hub) removeFromRoom(client *Client, room string) {
	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.roomClients[rm.Room]
	if !ok {
		return
	}

	sent := 0
	for client := range clients {
		select {
		case client.Send <- rm.Message:
			sent++
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
	h.log.Debugw("Broadcast to room", "room", rm.Room, "clients", sent)
}

func (h *Hub) pingClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})
	for client := range h.clients {
		select {
		case client.Send <- data:
		default:
			go func(c *Client) {
				h.unregister <- c
			}(client)
		}
	}
}

// ============================================
// Public Methods for Room Management
// ============================================

// JoinRoom adds a client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
	h.log.Debugw("Client joined room", "user_id", client.UserID, "room", room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	h.removeFromRoom(client, room)
	h.log.Debugw("Client left room", "user_id", client.UserID, "room", room)
}

// LeaveRoomForUser drops every connection of userID from room.
func (h *Hub) LeaveRoomForUser(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.roomClients[room] {
		if client.UserID != userID {
			continue
		}
		client.mu.Lock()
		delete(client.Rooms, room)
		client.mu.Unlock()
		h.removeFromRoom(client, room)
	}
}

// ============================================
// Public Methods for Sending Messages
// ============================================

// SendToRoom queues a message for every client in room. When the queue is
// full the message is dropped.
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		h.log.Errorw("Error marshaling message", "type", msgType, "error", err)
		return
	}

	select {
	case h.roomBroadcast <- &RoomMessage{Room: room, Message: data}:
	default:
		h.log.Warnw("Broadcast queue full, dropping message", "room", room, "type", msgType)
	}
}

// ============================================
// Query Methods
// ============================================

// IsUserOnline checks if a user is currently connected
func (h *Hub) IsUserOnline(userID string) bool {
	return h.GetRoomClients(UserRoom(userID)) > 0
}

// GetRoomClients returns the number of clients in a room
func (h *Hub) GetRoomClients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.roomClients[room])
}

// GetConnectedClientsCount returns total connected clients
func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
