// Package websocket streams debug events to clients watching a chat.
package websocket

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"agent-builder/internal/logging"
	"agent-builder/pkg/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types for WebSocket communication
const (
	MessageTypeConnected  = "connected"
	MessageTypeDebugEvent = "debug_event"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	ChatID    uint        `json:"chat_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type broadcast struct {
	chatID  uint
	message Message
}

// Hub fans debug events out to the clients subscribed to each chat
type Hub struct {
	// Clients per chat
	rooms map[uint]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	shutdown   chan struct{}
	once       sync.Once

	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewHub creates a hub accepting upgrades from the given origins. A "*"
// entry accepts any origin; requests without an Origin header are accepted.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		} else if o != "" {
			allowed[o] = struct{}{}
		}
	}

	h := &Hub{
		rooms:      make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		shutdown:   make(chan struct{}),
		log:        logging.Named("websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
	return h
}

// Run starts the hub's main loop and returns after Shutdown
func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
			}
			h.rooms = make(map[uint]map[*Client]struct{})
			h.mu.Unlock()
			h.log.Info("websocket hub shutdown complete")
			return

		case client := <-h.register:
			h.mu.Lock()
			clients, ok := h.rooms[client.chatID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.rooms[client.chatID] = clients
			}
			clients[client] = struct{}{}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.removeClient(client)

		case b := <-h.broadcast:
			h.deliver(b)
		}
	}
}

// Shutdown stops Run and closes every client connection
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.shutdown) })
}

// Publish queues an event for the chat's subscribers. It never blocks; when
// the queue is full the event is dropped from the live stream only.
func (h *Hub) Publish(event *models.DebugEvent) {
	msg := Message{
		Type:      MessageTypeDebugEvent,
		ChatID:    event.ChatID,
		Data:      event,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- broadcast{chatID: event.ChatID, message: msg}:
	case <-h.shutdown:
	default:
		h.log.Warn("websocket broadcast queue full, dropping event", zap.Uint("chat_id", event.ChatID))
	}
}

// ClientCount returns the number of clients watching a chat
func (h *Hub) ClientCount(chatID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[client.chatID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.chatID)
	}
}

func (h *Hub) deliver(b broadcast) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.rooms[b.chatID] {
		select {
		case client.send <- b.message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("dropping slow websocket client", zap.Uint("chat_id", b.chatID))
		h.removeClient(client)
	}
}

// ServeChat upgrades the request and subscribes the connection to chatID
func (h *Hub) ServeChat(w http.ResponseWriter, r *http.Request, chatID uint) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		chatID: chatID,
		send:   make(chan Message, 256),
	}
	client.send <- Message{Type: MessageTypeConnected, ChatID: chatID, Timestamp: time.Now().UTC()}

	select {
	case h.register <- client:
	case <-h.shutdown:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}
