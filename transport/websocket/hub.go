package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/chip-tracker/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Buffered frames per client before it is dropped as too slow.
	clientBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

type outbound struct {
	connID string
	data   []byte
}

// Hub owns every live connection. Frames read from a client go to the
// handler; messages for a connection are queued through the hub loop so
// each client receives them in the order they were sent.
type Hub struct {
	handler service.Handler
	logger  *slog.Logger

	// Registered clients by connection ID. Only the Run goroutine touches it.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound
	done       chan struct{}

	connected atomic.Int64
}

// NewHub creates a hub that feeds client frames to handler.
func NewHub(handler service.Handler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		handler:    handler,
		logger:     logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 1024),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and returns when ctx is done. Remaining
// clients are closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, client := range h.clients {
			h.unregisterClient(client)
		}
	}()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.outbound:
			h.deliver(msg)

		case <-ctx.Done():
			return
		}
	}
}

// ServeWS upgrades the request and gives the connection a fresh identity.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Send queues msg for one connection. Messages for unknown connections are
// dropped.
func (h *Hub) Send(connID string, msg service.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", "event", msg.Event, "err", err)
		return
	}

	select {
	case h.outbound <- outbound{connID: connID, data: data}:
	case <-h.done:
	}
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	n := h.connected.Add(1)
	h.logger.Debug("client connected", "conn", client.id, "clients", n)
}

func (h *Hub) unregisterClient(client *Client) {
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
		n := h.connected.Add(-1)
		h.logger.Debug("client disconnected", "conn", client.id, "clients", n)
	}
}

func (h *Hub) deliver(msg outbound) {
	client, ok := h.clients[msg.connID]
	if !ok {
		return
	}
	select {
	case client.send <- msg.data:
	default:
		// Client's send channel is full, close it
		h.logger.Warn("dropping slow client", "conn", client.id)
		h.unregisterClient(client)
	}
}

// readPump pumps frames from the connection to the handler. A closed
// connection is reported to the handler as a disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.handler.Disconnect(context.Background(), c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed", "conn", c.id, "err", err)
			}
			break
		}
		c.hub.handler.Handle(context.Background(), c.id, data)
	}
}

// writePump pumps queued messages to the connection, one frame each.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
