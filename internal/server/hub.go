package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Notifier broadcasts an upload event to whoever is listening right now.
// Delivery is at-most-once and unordered; implementations must not block.
type Notifier interface {
	NewImage(imageURL, publicID string)
}

// newImageEvent is the wire payload pushed to connected subscribers.
type newImageEvent struct {
	Event string       `json:"event"`
	Data  newImageData `json:"data"`
}

type newImageData struct {
	ImageURL string `json:"imageUrl"`
	PublicID string `json:"publicId"`
}

// Hub fans messages out to all connected WebSocket clients. The Run loop
// owns the client set; Register/Unregister/NewImage only submit work over
// channels. There is no replay for late subscribers and no delivery
// guarantee for slow ones.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	mu    sync.RWMutex
	count int
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		// Buffered so the upload path never waits on the fan-out loop.
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			log.Info().Int("clients", len(h.clients)).Msg("subscriber connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.Close()
			}
			h.setCount(len(h.clients))
			log.Info().Int("clients", len(h.clients)).Msg("subscriber disconnected")

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Warn().Err(err).Msg("dropping unresponsive subscriber")
					delete(h.clients, client)
					_ = client.Close()
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

func (h *Hub) Register(client *websocket.Conn) {
	h.register <- client
}

func (h *Hub) Unregister(client *websocket.Conn) {
	h.unregister <- client
}

// NewImage queues a newImage event for broadcast. If the queue is full
// the event is dropped; subscribers treat these as hints, not a log.
func (h *Hub) NewImage(imageURL, publicID string) {
	b, err := json.Marshal(newImageEvent{
		Event: "newImage",
		Data:  newImageData{ImageURL: imageURL, PublicID: publicID},
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
		log.Warn().Msg("broadcast queue full, notification dropped")
	}
}

// ClientCount reports how many subscribers are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
