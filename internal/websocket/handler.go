package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a websocket connection to a session's event feed.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: sessionID,
		ConnID:    uuid.New(),
		Send:      make(chan []byte, 256),
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
