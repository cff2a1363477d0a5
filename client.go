package main

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const sendBufferSize = 16

// client is one websocket connection. Outbound messages pass through a
// buffered channel so a stalled peer never blocks a broadcast.
type client struct {
	conn   *websocket.Conn
	send   chan any
	id     string
	name   string
	roomID string

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, name, roomID string) *client {
	return &client{
		conn:   conn,
		send:   make(chan any, sendBufferSize),
		name:   name,
		roomID: roomID,
	}
}

// trySend queues a payload for delivery, dropping it silently when the
// connection is already closed or the peer cannot keep up.
func (c *client) trySend(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- payload:
	default:
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) readPump(srv *server) {
	defer func() {
		srv.disconnect(c)
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Str("player", c.id).Err(err).Msg("Discarding malformed frame")
			continue
		}

		srv.handle(c, msg)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for payload := range c.send {
		if err := c.conn.WriteJSON(payload); err != nil {
			return
		}
	}

	// send channel closed: say goodbye properly
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// closePolicy refuses a connection with the policy-violation close code
// and a human-readable reason, then drops it.
func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	_ = conn.Close()
}
