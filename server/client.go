package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teranos/framemark/logger"
)

// WebSocket timeouts, following the gorilla chat example.
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client is one WebSocket connection.
type Client struct {
	server *Server
	conn   *websocket.Conn
	id     string

	mu        sync.Mutex // guards closed and sends on send
	send      chan interface{}
	closed    bool
	closeOnce sync.Once
}

func newClient(s *Server, conn *websocket.Conn, id string) *Client {
	return &Client{
		server: s,
		conn:   conn,
		id:     id,
		send:   make(chan interface{}, MaxClientMessageQueueSize),
	}
}

// readPump reads commands until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.ctx.Done():
			c.close()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.server.logger.Debugw("Read pump started", logger.FieldClientID, c.id)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.server.logger.Warnw("JSON unmarshal error",
				logger.FieldError, err.Error(),
				logger.FieldClientID, c.id,
			)
			c.sendJSON(&Reply{Type: "reply", OK: false, Error: &ErrorBody{
				Code:    "invalid_request",
				Message: "message is not a JSON command envelope",
			}})
			continue
		}
		c.sendJSON(c.server.dispatch(&env, c.id))
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes (going away, abnormal, no status) are silently ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			logger.FieldError, err.Error(),
			logger.FieldClientID, c.id,
		)
	}
}

// writePump owns all writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("Message write error",
					logger.FieldError, err.Error(),
					logger.FieldClientID, c.id,
				)
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

// trySend queues msg unless the queue is full or the client is closed.
func (c *Client) trySend(msg interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// sendJSON queues a direct reply to this client.
func (c *Client) sendJSON(msg interface{}) {
	if !c.trySend(msg) {
		c.server.logger.Warnw("Failed to queue message (channel full)",
			logger.FieldClientID, c.id,
		)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}
