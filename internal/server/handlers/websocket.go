// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"spotshare/internal/adapter/chat"
)

// WebSocketClient represents one connected chat participant. Outbound
// messages go through enqueue, never directly into send: NATS delivers on its
// own goroutines and an in-flight callback can outlive Unsubscribe, so send
// is never closed and teardown is signaled through done instead.
type WebSocketClient struct {
	conn              *websocket.Conn
	send              chan []byte
	done              chan struct{}
	spotID            string
	userID            string
	natsConn          *nats.Conn
	natsSubscriptions []*nats.Subscription
	closeOnce         sync.Once
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// SpotWebSocketHandler handles WebSocket connections for the two-party chat
// channel attached to a claimed spot. Messages flow through the spot's NATS
// chat subject so both parties and the chat bridge see the same stream.
func SpotWebSocketHandler(natsConn *nats.Conn, bridge *chat.Bridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spotID := chi.URLParam(r, "id")
		if spotID == "" {
			http.Error(w, "Missing spot ID", http.StatusBadRequest)
			return
		}

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Missing user ID", http.StatusBadRequest)
			return
		}

		// Only the two channel parties may join, once the claim created it.
		ch, ok := bridge.Channel(spotID)
		if !ok {
			http.Error(w, "No chat channel for spot", http.StatusNotFound)
			return
		}
		if userID != ch.OwnerID && userID != ch.ClaimantID {
			http.Error(w, "Not a channel participant", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := &WebSocketClient{
			conn:     conn,
			send:     make(chan []byte, 256),
			done:     make(chan struct{}),
			spotID:   spotID,
			userID:   userID,
			natsConn: natsConn,
		}

		go client.writePump()
		go client.readPump()

		if err := client.subscribe(); err != nil {
			log.Printf("Failed to subscribe to chat subjects: %v", err)
			client.closeConnection()
			return
		}

		welcome := map[string]interface{}{
			"type":       "welcome",
			"channel_id": ch.ID,
			"spot_id":    spotID,
			"time":       time.Now(),
		}

		welcomeJSON, _ := json.Marshal(welcome)
		client.enqueue(welcomeJSON)

		log.Printf("New WebSocket connection for spot %s from user %s", spotID, userID)
	}
}

// readPump pumps messages from the WebSocket connection to NATS
func (c *WebSocketClient) readPump() {
	config := DefaultWebSocketConfig()

	defer func() {
		c.closeConnection()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.processIncomingMessage(message)
	}
}

// writePump pumps messages from NATS to the WebSocket connection
func (c *WebSocketClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processIncomingMessage validates and relays one incoming chat message
func (c *WebSocketClient) processIncomingMessage(message []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Failed to parse WebSocket message: %v", err)
		return
	}

	msgType, ok := msg["type"].(string)
	if !ok {
		log.Printf("Missing message type")
		return
	}

	msg["user_id"] = c.userID
	msg["time"] = time.Now()

	switch msgType {
	case "message":
		msg["id"] = fmt.Sprintf("msg_%d", time.Now().UnixNano())
		c.publish(chat.ChannelSubject(c.spotID), msg)

	case "typing":
		c.publish(chat.ChannelSubject(c.spotID)+".typing", msg)

	default:
		log.Printf("Unknown message type: %s", msgType)
	}
}

// enqueue hands one outbound message to the write pump. Once teardown has
// started the message is dropped; the send channel itself stays open so a
// late NATS callback can never hit a closed channel.
func (c *WebSocketClient) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *WebSocketClient) publish(subject string, msg map[string]interface{}) {
	msgJSON, _ := json.Marshal(msg)
	if err := c.natsConn.Publish(subject, msgJSON); err != nil {
		log.Printf("Failed to publish to %s: %v", subject, err)
	}
}

// subscribe attaches the client to the spot's chat subjects
func (c *WebSocketClient) subscribe() error {
	subjects := []string{
		chat.ChannelSubject(c.spotID),
		chat.ChannelSubject(c.spotID) + ".typing",
		fmt.Sprintf("notify.%s", c.userID),
	}

	for _, subject := range subjects {
		sub, err := c.natsConn.Subscribe(subject, func(msg *nats.Msg) {
			c.enqueue(msg.Data)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		c.natsSubscriptions = append(c.natsSubscriptions, sub)
	}

	return nil
}

// closeConnection tears down the connection and its NATS subscriptions. Both
// pumps call it on exit; the Once keeps the teardown single-shot. done is
// closed before unsubscribing so a callback blocked in enqueue is released
// rather than left sending into a channel nobody drains.
func (c *WebSocketClient) closeConnection() {
	c.closeOnce.Do(func() {
		close(c.done)

		for _, sub := range c.natsSubscriptions {
			sub.Unsubscribe()
		}

		c.conn.Close()

		log.Printf("WebSocket connection closed for spot %s, user %s", c.spotID, c.userID)
	})
}
