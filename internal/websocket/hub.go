package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/internal/stream"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send small
	// control frames, feedback flows the other way.
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// FeedbackEvent is the wire shape of one broadcast message.
type FeedbackEvent struct {
	Type     string             `json:"type"`
	Feedback *entities.Feedback `json:"feedback"`
}

// Hub maintains the set of active clients and pushes every completed
// feedback from the live stream to each of them.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	broker *stream.Broker

	logger *zap.Logger
}

// NewHub creates a hub fed by the given live feedback broker.
func NewHub(broker *stream.Broker, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broker:     broker,
		logger:     logger,
	}
}

// Run starts the hub's main loop. It returns when the broker closes.
func (h *Hub) Run() {
	sub := h.broker.Subscribe(0)
	defer h.broker.Unsubscribe(sub)

	for {
		select {
		case client := <-h.register:
			h.clients[client.id] = client
			h.logger.Info("Feedback stream client connected", zap.String("clientID", client.id))

		case client := <-h.unregister:
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.logger.Info("Feedback stream client disconnected", zap.String("clientID", client.id))

		case feedback, ok := <-sub.Events():
			if !ok {
				for _, client := range h.clients {
					close(client.send)
				}
				h.clients = make(map[string]*Client)
				h.logger.Info("Feedback stream closed, hub shutting down")
				return
			}
			h.broadcast(feedback)
		}
	}
}

// broadcast fans one completed feedback out to every connected client. A
// client whose send buffer is full is dropped rather than allowed to stall
// the others.
func (h *Hub) broadcast(feedback *entities.Feedback) {
	payload, err := json.Marshal(FeedbackEvent{Type: "feedback_completed", Feedback: feedback})
	if err != nil {
		h.logger.Error("Failed to encode feedback event", zap.Error(err))
		return
	}

	for id, client := range h.clients {
		select {
		case client.send <- payload:
		default:
			delete(h.clients, id)
			close(client.send)
			h.logger.Warn("Dropping slow feedback stream client",
				zap.String("clientID", id),
				zap.String("feedbackID", feedback.ID))
		}
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	id string

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and attaches the connection to the
// hub as a feedback stream consumer.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		id:     uuid.NewString(),
		logger: logger,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump discards client input and notices disconnects. Consumers never
// send application data, only control frames.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
	}
}

// writePump pumps feedback events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
