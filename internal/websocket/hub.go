package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ash-assistant-be/internal/pkg/logger"
	"ash-assistant-be/pkg/rag/executor"

	"github.com/redis/go-redis/v9"
)

// Hub fans streamed assistant events out to the websocket clients watching a
// session. A session usually has one client (the desktop shell), but
// multiple viewers are allowed.
type Hub struct {
	// Registered clients map: SessionID -> List of Clients
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance relay (nil when running alone)
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis relay if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"conn_id":    client.ConnID,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Session has no watchers", map[string]interface{}{
						"session_id": client.SessionID,
					})
				}
			}
			h.mu.Unlock()
		}
	}
}

// RelayEvent sends one stream event to every client watching the session and
// forwards it to other instances through Redis.
func (h *Hub) RelayEvent(sessionID string, event executor.Event) {
	data, _ := json.Marshal(map[string]interface{}{
		"session_id": sessionID,
		"event":      event,
	})

	if h.rdb == nil {
		h.deliverLocal(sessionID, data)
		return
	}

	// With Redis attached every instance (this one included) delivers via
	// its subscription, so publish is the single delivery path.
	payload := map[string]interface{}{
		"session_id": sessionID,
		"message":    data,
	}
	jsonPayload, _ := json.Marshal(payload)
	h.rdb.Publish(context.Background(), "ash_stream_events", jsonPayload)
}

func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{
				"session_id": sessionID,
				"conn_id":    client.ConnID,
			})
			// The unregister handler is the sole closer of Send
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	// Every instance subscribes to the shared stream channel and delivers
	// to the sessions it has locally. Events for sessions held elsewhere
	// are ignored.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "ash_stream_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			SessionID string          `json:"session_id"`
			Message   json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		h.mu.RLock()
		_, local := h.clients[payload.SessionID]
		h.mu.RUnlock()
		if local {
			h.deliverLocal(payload.SessionID, payload.Message)
		}
	}
}
